package push

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportCounts(t *testing.T) {
	r := NewReport(Hub, "contacts")
	r.Add(Outcome{Operation: Create})
	r.Add(Outcome{Operation: Update, Err: errors.New("422")})
	r.Add(Outcome{Operation: Skip})
	r.Add(Outcome{Operation: Update})

	assert.Equal(t, 2, r.Succeeded())
	assert.Equal(t, 1, r.Failed())
	assert.Equal(t, 1, r.Skipped())
	assert.Len(t, r.Errors(), 1)

	var nilReport *Report
	assert.Zero(t, nilReport.Succeeded())
	assert.Nil(t, nilReport.Errors())
}

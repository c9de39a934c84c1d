package ptr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTo(t *testing.T) {
	s := "test"
	p := To(s)
	assert.Equal(t, s, *p)
	assert.NotSame(t, &s, p)
}

func TestBool(t *testing.T) {
	assert.False(t, *Bool(false))
	assert.True(t, *Bool(true))
}

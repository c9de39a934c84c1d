package correlation_test

import (
	"testing"

	"github.com/agentstation/hubsync/pkg/correlation"
	"github.com/agentstation/hubsync/pkg/correlation/correlationtest"
)

func TestMemory(t *testing.T) {
	correlationtest.Run(t, func(t *testing.T) correlationtest.Backend {
		return correlation.NewMemory()
	})
}

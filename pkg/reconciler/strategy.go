package reconciler

import (
	"strings"

	"github.com/agentstation/utc"

	"github.com/agentstation/hubsync/pkg/push"
)

// StrategyType represents the type of conflict resolution strategy.
type StrategyType string

// String returns the string representation of a strategy type.
func (s StrategyType) String() string {
	return string(s)
}

// Name returns the name of the strategy type.
func (s StrategyType) Name() string {
	words := strings.Split(s.String(), "-")
	for i, word := range words {
		if len(word) > 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

const (
	// StrategyTypeLatestUpdate lets the most recently updated side win.
	StrategyTypeLatestUpdate StrategyType = "latest-update"
	// StrategyTypePreemption lets a configured side always win.
	StrategyTypePreemption StrategyType = "preemption"
)

// Candidate holds what a strategy knows about one record present on both
// sides. A zero time with its Known flag unset means the side did not expose
// a parsable update time.
type Candidate struct {
	HubUpdatedAt      utc.Time
	HubKnown          bool
	ExternalUpdatedAt utc.Time
	ExternalKnown     bool
}

// Strategy decides which side's version of a record wins.
type Strategy interface {
	// Type returns the strategy type
	Type() StrategyType

	// Description returns a human-readable description
	Description() string

	// Winner returns the side whose version is kept.
	Winner(c Candidate) push.Side
}

type latestStrategy struct{}

// NewLatestStrategy returns the default strategy: the Hub wins only when its
// update time is strictly later than External's, so equal times favor
// External. A Hub time that cannot be read never wins; an unreadable External
// time loses to a readable Hub time.
func NewLatestStrategy() Strategy {
	return latestStrategy{}
}

func (latestStrategy) Type() StrategyType { return StrategyTypeLatestUpdate }

func (latestStrategy) Description() string {
	return "Keep the most recently updated version, External on ties"
}

func (latestStrategy) Winner(c Candidate) push.Side {
	switch {
	case !c.HubKnown:
		return push.External
	case !c.ExternalKnown:
		return push.Hub
	case c.HubUpdatedAt.Time.After(c.ExternalUpdatedAt.Time):
		return push.Hub
	default:
		return push.External
	}
}

type preemptionStrategy struct {
	side push.Side
}

// NewPreemptionStrategy returns a strategy that always keeps side.
func NewPreemptionStrategy(side push.Side) Strategy {
	return preemptionStrategy{side: side}
}

func (s preemptionStrategy) Type() StrategyType { return StrategyTypePreemption }

func (s preemptionStrategy) Description() string {
	return "Always keep the " + string(s.side) + " version"
}

func (s preemptionStrategy) Winner(Candidate) push.Side { return s.side }

package sitesync

import "time"

// State is the orchestrator's position in the sync cycle.
type State string

const (
	StateIdle       State = "idle"
	StateSyncing    State = "syncing"
	StatePublishing State = "publishing"
	// StateFailed is transient: a failed cycle records its reason and the
	// orchestrator returns to StateIdle straight away.
	StateFailed State = "failed"
)

// Outcome is how a trigger was handled.
type Outcome int

const (
	// OutcomePublished means the trigger ran a cycle that published
	OutcomePublished Outcome = iota
	// OutcomeQueued means a cycle was in flight; the trigger was coalesced
	// into the single follow-up cycle
	OutcomeQueued
	// OutcomeFailed means the trigger ran a cycle that failed
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePublished:
		return "published"
	case OutcomeQueued:
		return "queued"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Result is returned by Trigger.
type Result struct {
	Outcome Outcome
	// Commit is the published commit, set for OutcomePublished
	Commit string
}

// Status is a point-in-time snapshot of the orchestrator.
type Status struct {
	State           State      `json:"state"`
	Pending         bool       `json:"pending"`
	Ref             string     `json:"ref"`
	CurrentRef      string     `json:"currentRef,omitempty"`
	LastCommit      string     `json:"lastCommit,omitempty"`
	LastError       string     `json:"lastError,omitempty"`
	LastPublishedAt *time.Time `json:"lastPublishedAt,omitempty"`
	LastFailedAt    *time.Time `json:"lastFailedAt,omitempty"`
	Cycles          int        `json:"cycles"`
	Failures        int        `json:"failures"`
}

package domain

import "time"

type DecisionKind string

const (
	DecisionDetected     DecisionKind = "DETECTED"
	DecisionBlocked      DecisionKind = "BLOCKED"
	DecisionMerged       DecisionKind = "MERGED"
	DecisionPartialMerge DecisionKind = "PARTIAL_MERGE"
	DecisionCantMerge    DecisionKind = "CANT_MERGE"
)

// Decision is a journal entry describing what the merger did for one event.
type Decision struct {
	ID        int64
	Kind      DecisionKind
	Topic     string
	Trigger   ChangeRef
	Event     EventType
	Members   []DecisionMember
	CreatedAt *time.Time
}

type DecisionMember struct {
	Project     string
	Number      int
	Submittable bool
	Mergeable   bool
	Merged      bool
	Error       string // empty when the merge call succeeded or was not issued
}

package domain

import "time"

type EventType string

const (
	EventTopicChanged    EventType = "topic-changed"
	EventPatchSetCreated EventType = "patchset-created"
	EventCommentAdded    EventType = "comment-added"
)

// Hold label is the reserved blocking vote posted by the bot. Comment events
// carrying only this vote from the bot are its own echo.
const (
	HoldLabel = "Code-Review"
	HoldValue = "-1"
)

type Account struct {
	Name     string
	Email    string
	Username string
}

// Approval is one label delta attached to a comment event.
type Approval struct {
	Type     string
	Value    string
	OldValue string
}

func (a Approval) IsHold() bool {
	return a.Type == HoldLabel && a.Value == HoldValue
}

// Event is a denormalized review notification. Approvals is nil when the
// event carried no approval data at all.
type Event struct {
	Type       EventType
	Change     Change
	Actor      Account
	Approvals  []Approval
	CreatedAt  time.Time
	ReceivedAt time.Time
}

func (e *Event) Supported() bool {
	switch e.Type {
	case EventTopicChanged, EventPatchSetCreated, EventCommentAdded:
		return true
	default:
		return false
	}
}

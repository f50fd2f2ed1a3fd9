package gerrit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

// StreamEventTypes are the event types the merger subscribes to.
var StreamEventTypes = []domain.EventType{
	domain.EventTopicChanged,
	domain.EventPatchSetCreated,
	domain.EventCommentAdded,
}

// ParseEvent decodes one stream-events / webhook payload. Unsupported event
// types return domain.ErrUnsupportedEvent so callers can skip them quietly.
func ParseEvent(data []byte) (*domain.Event, error) {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}

	event := &domain.Event{
		Type:       domain.EventType(raw.Type),
		ReceivedAt: time.Now().UTC(),
	}
	if !event.Supported() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedEvent, raw.Type)
	}

	if raw.Change == nil {
		return nil, fmt.Errorf("%w: %s without change", domain.ErrInvalidEvent, raw.Type)
	}
	number, err := raw.Change.Number.Int()
	if err != nil || number <= 0 {
		return nil, fmt.Errorf("%w: bad change number %q", domain.ErrInvalidEvent, raw.Change.Number)
	}
	if strings.TrimSpace(raw.Change.Project) == "" {
		return nil, fmt.Errorf("%w: change %d without project", domain.ErrInvalidEvent, number)
	}

	event.Change = domain.Change{
		Number:   number,
		ChangeID: raw.Change.ID,
		Project:  raw.Change.Project,
		Branch:   raw.Change.Branch,
		Topic:    raw.Change.Topic,
		Subject:  raw.Change.Subject,
		Status:   domain.ChangeStatus(raw.Change.Status),
	}
	if raw.PatchSet != nil {
		event.Change.CurrentRevision = raw.PatchSet.Revision
	}

	switch event.Type {
	case domain.EventCommentAdded:
		event.Actor = raw.Author.toDomain()
	case domain.EventPatchSetCreated:
		event.Actor = raw.Uploader.toDomain()
	case domain.EventTopicChanged:
		event.Actor = raw.Changer.toDomain()
	}

	if raw.Approvals != nil {
		event.Approvals = make([]domain.Approval, 0, len(raw.Approvals))
		for _, a := range raw.Approvals {
			event.Approvals = append(event.Approvals, domain.Approval{
				Type:     a.Type,
				Value:    string(a.Value),
				OldValue: string(a.OldValue),
			})
		}
	}

	if raw.EventCreatedOn > 0 {
		event.CreatedAt = time.Unix(raw.EventCreatedOn, 0).UTC()
	}

	return event, nil
}

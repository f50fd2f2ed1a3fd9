package service

import (
	"strings"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

// FeedbackFilter recognises comment events that are the echo of the merger's
// own hold vote.
type FeedbackFilter struct {
	botEmail string
}

func NewFeedbackFilter(botEmail string) *FeedbackFilter {
	return &FeedbackFilter{botEmail: strings.TrimSpace(botEmail)}
}

// ShouldProcess returns false only for comment events authored by the bot
// whose approvals are all exactly the hold vote. Any other actor, any other
// vote, or an event without approval data is processed.
func (f *FeedbackFilter) ShouldProcess(e *domain.Event) bool {
	if e.Type != domain.EventCommentAdded {
		return true
	}
	if !f.IsBot(e.Actor) {
		return true
	}
	if len(e.Approvals) == 0 {
		return true
	}
	for _, a := range e.Approvals {
		if !a.IsHold() {
			return true
		}
	}
	return false
}

// IsBot reports whether the account is the configured bot identity.
func (f *FeedbackFilter) IsBot(a domain.Account) bool {
	return f.botEmail != "" && strings.TrimSpace(a.Email) == f.botEmail
}

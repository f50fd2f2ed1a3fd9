package service

import (
	"context"
	"sync"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
)

type fakeChange struct {
	change      domain.Change
	submittable bool
	mergeable   bool
	dependent   bool
}

type postedMessage struct {
	Ref  domain.ChangeRef
	Text string
	Hold bool
}

// fakeReview is an in-memory review system.
type fakeReview struct {
	mu       sync.Mutex
	changes  map[domain.ChangeRef]*fakeChange
	merges   []domain.ChangeRef
	messages []postedMessage

	// injected failures
	getErr    error
	queryErr  error
	checkErr  error
	mergeErrs map[domain.ChangeRef]error

	submittableCalls map[domain.ChangeRef]int
	mergeableCalls   map[domain.ChangeRef]int
}

func newFakeReview(changes ...*fakeChange) *fakeReview {
	f := &fakeReview{
		changes:          make(map[domain.ChangeRef]*fakeChange),
		mergeErrs:        make(map[domain.ChangeRef]error),
		submittableCalls: make(map[domain.ChangeRef]int),
		mergeableCalls:   make(map[domain.ChangeRef]int),
	}
	for _, c := range changes {
		if c.change.Status == "" {
			c.change.Status = domain.ChangeStatusNew
		}
		f.changes[c.change.Ref()] = c
	}
	return f
}

func change(project string, number int, topic string, submittable, mergeable bool) *fakeChange {
	return &fakeChange{
		change: domain.Change{
			Project:         project,
			Number:          number,
			Branch:          "master",
			Topic:           topic,
			CurrentRevision: "rev",
		},
		submittable: submittable,
		mergeable:   mergeable,
	}
}

func (f *fakeReview) snapshot(c *fakeChange) *domain.Change {
	cp := c.change
	cp.Submittable = c.submittable
	cp.Mergeable = c.mergeable
	return &cp
}

func (f *fakeReview) GetChange(_ context.Context, ref domain.ChangeRef) (*domain.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.changes[ref]
	if !ok {
		return nil, domain.ErrChangeNotFound
	}
	return f.snapshot(c), nil
}

func (f *fakeReview) QueryOpenByTopic(_ context.Context, topic string) ([]*domain.Change, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []*domain.Change
	for _, c := range f.changes {
		if c.change.Topic == topic && c.change.Status == domain.ChangeStatusNew {
			out = append(out, f.snapshot(c))
		}
	}
	return out, nil
}

func (f *fakeReview) IsSubmittable(_ context.Context, ref domain.ChangeRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submittableCalls[ref]++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	c, ok := f.changes[ref]
	if !ok {
		return false, domain.ErrChangeNotFound
	}
	return c.submittable, nil
}

func (f *fakeReview) IsMergeable(_ context.Context, ref domain.ChangeRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mergeableCalls[ref]++
	if f.checkErr != nil {
		return false, f.checkErr
	}
	c, ok := f.changes[ref]
	if !ok {
		return false, domain.ErrChangeNotFound
	}
	return c.mergeable, nil
}

func (f *fakeReview) HasDependentReview(_ context.Context, ref domain.ChangeRef) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return false, f.checkErr
	}
	c, ok := f.changes[ref]
	if !ok {
		return false, domain.ErrChangeNotFound
	}
	return c.dependent, nil
}

// Merge is idempotent: merging a merged change records nothing.
func (f *fakeReview) Merge(_ context.Context, ch *domain.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := ch.Ref()
	if err := f.mergeErrs[ref]; err != nil {
		return err
	}
	c, ok := f.changes[ref]
	if !ok {
		return domain.ErrChangeNotFound
	}
	if c.change.Status == domain.ChangeStatusMerged {
		return nil
	}
	c.change.Status = domain.ChangeStatusMerged
	f.merges = append(f.merges, ref)
	return nil
}

func (f *fakeReview) PostComment(_ context.Context, ref domain.ChangeRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, postedMessage{Ref: ref, Text: text})
	return nil
}

func (f *fakeReview) SetBlockingLabel(_ context.Context, ref domain.ChangeRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, postedMessage{Ref: ref, Text: text, Hold: true})
	return nil
}

func (f *fakeReview) mergedRefs() []domain.ChangeRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ChangeRef(nil), f.merges...)
}

func (f *fakeReview) posted() []postedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]postedMessage(nil), f.messages...)
}

// fakeDecisions collects journal entries.
type fakeDecisions struct {
	mu        sync.Mutex
	decisions []*domain.Decision
	err       error
}

func (f *fakeDecisions) Create(_ context.Context, d *domain.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.decisions = append(f.decisions, d)
	return nil
}

func (f *fakeDecisions) ListByTopic(_ context.Context, topic string, _ int) ([]*domain.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Decision
	for _, d := range f.decisions {
		if d.Topic == topic {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDecisions) ListRecent(_ context.Context, _ int) ([]*domain.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Decision(nil), f.decisions...), nil
}

func (f *fakeDecisions) kinds() []domain.DecisionKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.DecisionKind, len(f.decisions))
	for i, d := range f.decisions {
		out[i] = d.Kind
	}
	return out
}

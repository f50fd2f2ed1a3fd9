package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/message"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
	"github.com/ZertGraf/gerrit-automerge/internal/repository"
)

// AutoMerger drives atomic topic submission. Each event re-resolves the group
// and re-evaluates it from live review state; nothing is remembered between
// events apart from the write-only decision journal.
type AutoMerger struct {
	client    ReviewClient
	filter    *FeedbackFilter
	resolver  *GroupResolver
	evaluator *ReadinessEvaluator
	annotator *Annotator
	decisions repository.DecisionRepository
	logger    *logger.Logger

	// one event at a time
	mu sync.Mutex
}

func NewAutoMerger(
	client ReviewClient,
	filter *FeedbackFilter,
	templates *message.Templates,
	decisions repository.DecisionRepository,
	logger *logger.Logger,
) *AutoMerger {
	return &AutoMerger{
		client:    client,
		filter:    filter,
		resolver:  NewGroupResolver(client, logger),
		evaluator: NewReadinessEvaluator(client),
		annotator: NewAnnotator(client, templates),
		decisions: decisions,
		logger:    logger.Component("service/automerger"),
	}
}

// HandleEvent processes one event to completion. Concurrent callers are
// serialized.
func (m *AutoMerger) HandleEvent(ctx context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch e.Type {
	case domain.EventTopicChanged, domain.EventPatchSetCreated:
		return m.onNewAtomicPatchSet(ctx, e)
	case domain.EventCommentAdded:
		return m.onCommentAdded(ctx, e)
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedEvent, e.Type)
	}
}

func (m *AutoMerger) onNewAtomicPatchSet(ctx context.Context, e *domain.Event) error {
	change := &e.Change
	if !change.IsAtomic() {
		return nil
	}

	log := m.logger.Change(change.Project, change.Number, change.Topic)

	if err := m.checkExists(ctx, change.Ref(), log); err != nil {
		return err
	}

	dependent, err := m.client.HasDependentReview(ctx, change.Ref())
	if err != nil {
		return fmt.Errorf("check dependent reviews of %s: %w", change.Ref(), err)
	}

	data := &message.Data{Change: change}

	if dependent {
		log.Info("atomic change depends on other open changes in the same repository, setting hold vote",
			"event", e.Type)
		if err := m.annotator.Hold(ctx, message.AtomicReviewsSameRepo, data); err != nil {
			return err
		}
		m.record(ctx, e, domain.DecisionBlocked, nil)
		return nil
	}

	log.Info("atomic review detected", "event", e.Type)
	if err := m.annotator.Comment(ctx, message.AtomicReviewDetected, data); err != nil {
		return err
	}
	m.record(ctx, e, domain.DecisionDetected, nil)
	return nil
}

func (m *AutoMerger) onCommentAdded(ctx context.Context, e *domain.Event) error {
	if !m.filter.ShouldProcess(e) {
		m.logger.Debug("ignoring echo of own hold vote",
			"project", e.Change.Project,
			"change", e.Change.Number)
		return nil
	}

	change := &e.Change
	log := m.logger.Change(change.Project, change.Number, change.Topic)

	if err := m.checkExists(ctx, change.Ref(), log); err != nil {
		return err
	}

	submittable, err := m.client.IsSubmittable(ctx, change.Ref())
	if err != nil {
		return fmt.Errorf("check submittable %s: %w", change.Ref(), err)
	}
	if !submittable {
		log.Debug("change is not submittable yet")
		return nil
	}

	log.Info("change is submittable, evaluating its group", "actor", e.Actor.Email)
	return m.attemptToMerge(ctx, e, log)
}

func (m *AutoMerger) attemptToMerge(ctx context.Context, e *domain.Event, log *logger.Logger) error {
	change := &e.Change

	group, err := m.resolver.Resolve(ctx, change)
	if err != nil {
		return err
	}
	if len(group) == 0 {
		log.Info("no open change left in the group, nothing to merge")
		return nil
	}

	verdict, err := m.evaluator.Evaluate(ctx, group)
	if err != nil {
		return err
	}

	if !verdict.Submittable {
		log.Info("group is not fully approved yet",
			"members", len(group),
			"waiting_on", refStrings(verdict.Unsubmittable(group)))
		return nil
	}

	if verdict.Mergeable {
		return m.mergeGroup(ctx, e, group, verdict, log)
	}

	unmergeable := verdict.Unmergeable(group)
	if m.filter.IsBot(e.Actor) {
		// our own comment must not trigger another one
		log.Info("group is approved but not mergeable, triggered by own comment, not annotating",
			"unmergeable", refStrings(unmergeable))
		return nil
	}

	log.Info("group is approved but not mergeable",
		"unmergeable", refStrings(unmergeable))

	err = m.annotator.Comment(ctx, message.CantMerge, &message.Data{
		Change:      change,
		Group:       group,
		Verdict:     verdict,
		Unmergeable: unmergeable,
	})
	if err != nil {
		return err
	}
	m.record(ctx, e, domain.DecisionCantMerge, decisionMembers(group, verdict))
	return nil
}

// mergeGroup submits every member independently. Failed members are not
// rolled back; submit is idempotent, so a later event retries the rest.
func (m *AutoMerger) mergeGroup(
	ctx context.Context,
	e *domain.Event,
	group []*domain.Change,
	verdict *domain.GroupVerdict,
	log *logger.Logger,
) error {
	log.Info("group is ready, merging every member", "members", len(group))

	members := decisionMembers(group, verdict)
	var errs []error
	merged := 0
	for i, member := range group {
		if err := m.client.Merge(ctx, member); err != nil {
			log.Error("failed to merge group member",
				"member", member.Ref().String(),
				"error", err)
			members[i].Error = err.Error()
			errs = append(errs, fmt.Errorf("merge %s: %w", member.Ref(), err))
			continue
		}
		members[i].Merged = true
		merged++
	}

	if len(errs) == 0 {
		log.Info("atomic group merged", "members", len(group))
		m.record(ctx, e, domain.DecisionMerged, members)
		return nil
	}

	m.record(ctx, e, domain.DecisionPartialMerge, members)
	if merged == 0 {
		return fmt.Errorf("merge atomic group: %w", errors.Join(errs...))
	}
	log.Error("atomic group left partially merged, manual action or a new event is required",
		"merged", merged,
		"failed", len(errs))
	return fmt.Errorf("%w: %d of %d members failed: %w",
		domain.ErrPartialMerge, len(errs), len(group), errors.Join(errs...))
}

// checkExists guards against changes deleted between emission and processing.
func (m *AutoMerger) checkExists(ctx context.Context, ref domain.ChangeRef, log *logger.Logger) error {
	if _, err := m.client.GetChange(ctx, ref); err != nil {
		if errors.Is(err, domain.ErrChangeNotFound) {
			log.Warn("change vanished before the event was processed, dropping stale event")
		}
		return fmt.Errorf("check change %s exists: %w", ref, err)
	}
	return nil
}

// record journals a decision. Journal failures never fail the event.
func (m *AutoMerger) record(ctx context.Context, e *domain.Event, kind domain.DecisionKind, members []domain.DecisionMember) {
	d := &domain.Decision{
		Kind:    kind,
		Topic:   e.Change.Topic,
		Trigger: e.Change.Ref(),
		Event:   e.Type,
		Members: members,
	}
	if err := m.decisions.Create(ctx, d); err != nil {
		m.logger.Warn("failed to journal decision",
			"kind", kind,
			"change", e.Change.Ref().String(),
			"error", err)
	}
}

func decisionMembers(group []*domain.Change, verdict *domain.GroupVerdict) []domain.DecisionMember {
	members := make([]domain.DecisionMember, len(group))
	for i, c := range group {
		r := verdict.PerMember[c.Ref()]
		members[i] = domain.DecisionMember{
			Project:     c.Project,
			Number:      c.Number,
			Submittable: r.Submittable,
			Mergeable:   r.Mergeable,
		}
	}
	return members
}

func refStrings(refs []domain.ChangeRef) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

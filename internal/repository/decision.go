package repository

import (
	"context"
	"fmt"
	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type DecisionRepo struct {
	db     *pgxpool.Pool
	logger *logger.Logger
}

func NewDecisionRepo(db *pgxpool.Pool, logger *logger.Logger) *DecisionRepo {
	return &DecisionRepo{
		db:     db,
		logger: logger.Component("repository/decision"),
	}
}

// Create stores a decision and its member rows in one transaction.
func (r *DecisionRepo) Create(ctx context.Context, d *domain.Decision) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO automerge_decisions (kind, topic, project, change_number, event_type)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING decision_id, created_at
        `, d.Kind, d.Topic, d.Trigger.Project, d.Trigger.Number, d.Event).Scan(&d.ID, &d.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert decision: %w", err)
		}

		for _, m := range d.Members {
			_, err := tx.Exec(ctx, `
                INSERT INTO automerge_decision_members
                    (decision_id, project, change_number, submittable, mergeable, merged, error)
                VALUES ($1, $2, $3, $4, $5, $6, $7)
            `, d.ID, m.Project, m.Number, m.Submittable, m.Mergeable, m.Merged, m.Error)
			if err != nil {
				return fmt.Errorf("insert member %s~%d: %w", m.Project, m.Number, err)
			}
		}

		return nil
	})
}

// ListByTopic returns the newest decisions of one topic first.
func (r *DecisionRepo) ListByTopic(ctx context.Context, topic string, limit int) ([]*domain.Decision, error) {
	return r.list(ctx, `
        SELECT decision_id, kind, topic, project, change_number, event_type, created_at
        FROM automerge_decisions
        WHERE topic = $1
        ORDER BY created_at DESC, decision_id DESC
        LIMIT $2
    `, topic, limit)
}

// ListRecent returns the newest decisions across every topic.
func (r *DecisionRepo) ListRecent(ctx context.Context, limit int) ([]*domain.Decision, error) {
	return r.list(ctx, `
        SELECT decision_id, kind, topic, project, change_number, event_type, created_at
        FROM automerge_decisions
        ORDER BY created_at DESC, decision_id DESC
        LIMIT $1
    `, limit)
}

func (r *DecisionRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Decision, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	decisions := []*domain.Decision{}
	byID := make(map[int64]*domain.Decision)
	ids := []int64{}
	for rows.Next() {
		d := &domain.Decision{}
		if err := rows.Scan(&d.ID, &d.Kind, &d.Topic, &d.Trigger.Project, &d.Trigger.Number, &d.Event, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Members = []domain.DecisionMember{}
		decisions = append(decisions, d)
		byID[d.ID] = d
		ids = append(ids, d.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	if len(ids) == 0 {
		return decisions, nil
	}

	if err := r.loadMembers(ctx, ids, byID); err != nil {
		return nil, err
	}

	return decisions, nil
}

func (r *DecisionRepo) loadMembers(ctx context.Context, ids []int64, byID map[int64]*domain.Decision) error {
	rows, err := r.db.Query(ctx, `
        SELECT decision_id, project, change_number, submittable, mergeable, merged, error
        FROM automerge_decision_members
        WHERE decision_id = ANY($1)
        ORDER BY project, change_number
    `, ids)
	if err != nil {
		return fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id int64
			m  domain.DecisionMember
		)
		if err := rows.Scan(&id, &m.Project, &m.Number, &m.Submittable, &m.Mergeable, &m.Merged, &m.Error); err != nil {
			return fmt.Errorf("scan member: %w", err)
		}
		if d, ok := byID[id]; ok {
			d.Members = append(d.Members, m)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate rows: %w", err)
	}
	return nil
}

// withTx executes a function within a database transaction.
// Automatically handles commit/rollback based on error status.
func (r *DecisionRepo) withTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				r.logger.Error("failed to rollback transaction",
					"error", rbErr,
					"original_error", err,
				)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/database"
	"github.com/ahmetcantryk/sigorka-new-ui-sub002/internal/funnel"
)

// FunnelRepository persists funnel sessions and finished quote runs.
// The live in-memory session stays authoritative; this is a write-through
// record so sessions survive a restart and runs are auditable.
type FunnelRepository struct {
	db *database.Database
}

// NewFunnelRepository creates a new FunnelRepository instance.
func NewFunnelRepository(db *database.Database) *FunnelRepository {
	return &FunnelRepository{db: db}
}

// SaveSession upserts the session row keyed by session id.
func (r *FunnelRepository) SaveSession(ctx context.Context, record funnel.SessionRecord) error {
	query := `
		INSERT INTO funnel_sessions (id, state, customer_id, proposal_id, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			customer_id = EXCLUDED.customer_id,
			proposal_id = EXCLUDED.proposal_id,
			updated_at = now()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		record.ID,
		record.State,
		nullable(record.CustomerID),
		nullable(record.ProposalID),
	)
	if err != nil {
		return fmt.Errorf("failed to save funnel session %s: %w", record.ID, err)
	}
	return nil
}

// GetSession reads one persisted session. Returns nil, nil when the id is
// unknown (not an error).
func (r *FunnelRepository) GetSession(ctx context.Context, id string) (*funnel.SessionRecord, error) {
	query := `
		SELECT id, state, COALESCE(customer_id, ''), COALESCE(proposal_id, '')
		FROM funnel_sessions
		WHERE id = $1
	`

	var record funnel.SessionRecord
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&record.ID,
		&record.State,
		&record.CustomerID,
		&record.ProposalID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query funnel session %s: %w", id, err)
	}
	return &record, nil
}

// RecordQuoteRun appends one finished polling session.
func (r *FunnelRepository) RecordQuoteRun(ctx context.Context, record funnel.QuoteRunRecord) error {
	query := `
		INSERT INTO quote_runs (session_id, proposal_id, outcome, progress, offer_count, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		record.SessionID,
		record.ProposalID,
		record.Outcome,
		record.Progress,
		record.OfferCount,
		record.StartedAt,
		record.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record quote run for session %s: %w", record.SessionID, err)
	}
	return nil
}

// nullable maps empty strings to NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

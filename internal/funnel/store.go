package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used for reads/writes. A pgx.Tx satisfies
// it, so store methods can participate in the caller's transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the pool surface the store needs.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists funnel sources, the pending signup queue, and sync run
// audit rows in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("funnel: pgx pool required")
	}
	return &Store{pool: pool}
}

func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

const sourceColumns = `id, source_type, name, config, is_active, auto_sync_enabled,
		last_sync_at, last_sync_status, sync_frequency_hours,
		total_leads_captured, total_conversions`

// ActiveSource loads the single active source row for a type.
func (s *Store) ActiveSource(ctx context.Context, st SourceType) (*Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM funnel_sources
		WHERE source_type = $1 AND is_active = true
		LIMIT 1
	`
	src, err := scanSource(s.pool.QueryRow(ctx, query, st))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, st)
		}
		return nil, fmt.Errorf("funnel: load source %s: %w", st, err)
	}
	return src, nil
}

// DueSources lists active auto-sync sources whose frequency window has
// elapsed (or that have never synced).
func (s *Store) DueSources(ctx context.Context, now time.Time) ([]Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM funnel_sources
		WHERE is_active = true
			AND auto_sync_enabled = true
			AND (last_sync_at IS NULL
				OR last_sync_at + make_interval(hours => sync_frequency_hours) <= $1)
		ORDER BY source_type
	`
	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("funnel: list due sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("funnel: scan due source: %w", err)
		}
		out = append(out, *src)
	}
	return out, rows.Err()
}

// FindPendingForUpdate looks up a pending signup by normalized email,
// locking the row so concurrent runs serialize per email. Returns
// (nil, nil) when no row exists.
func (s *Store) FindPendingForUpdate(ctx context.Context, q Querier, email string) (*PendingSignup, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		SELECT id, email, first_name, last_name, company, user_type, status,
			signup_metadata, created_at, updated_at
		FROM pending_signup_queue
		WHERE email = $1
		FOR UPDATE
	`
	var p PendingSignup
	err := q.QueryRow(ctx, query, email).Scan(
		&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Company, &p.UserType,
		&p.Status, &p.Metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("funnel: find pending signup: %w", err)
	}
	return &p, nil
}

// InsertPending creates a new pending signup row. The unique index on email
// is the last line of defense against concurrent double-insert.
func (s *Store) InsertPending(ctx context.Context, q Querier, p *PendingSignup) error {
	if q == nil {
		q = s.pool
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.UserType == "" {
		p.UserType = "brand"
	}
	query := `
		INSERT INTO pending_signup_queue (
			id, email, first_name, last_name, company,
			user_type, status, signup_metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	`
	if _, err := q.Exec(ctx, query,
		p.ID, p.Email, p.FirstName, p.LastName, p.Company,
		p.UserType, SignupStatusPending, p.Metadata,
	); err != nil {
		return fmt.Errorf("funnel: insert pending signup: %w", err)
	}
	return nil
}

// UpdatePending refreshes a pending row: identity fields keep their
// existing value unless the new one is non-null, the metadata snapshot is
// replaced wholesale.
func (s *Store) UpdatePending(ctx context.Context, q Querier, email string, firstName, lastName, company *string, metadata []byte) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE pending_signup_queue
		SET first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			company = COALESCE($4, company),
			signup_metadata = $5,
			updated_at = now()
		WHERE email = $1
	`
	if _, err := q.Exec(ctx, query, email, firstName, lastName, company, metadata); err != nil {
		return fmt.Errorf("funnel: update pending signup: %w", err)
	}
	return nil
}

// FinishSource advances the watermark and cumulative counters after a run.
// Must be called inside the run's transaction.
func (s *Store) FinishSource(ctx context.Context, q Querier, sourceID uuid.UUID, status string, newLeads int, completedAt time.Time) error {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE funnel_sources
		SET last_sync_at = $2,
			last_sync_status = $3,
			total_leads_captured = total_leads_captured + $4
		WHERE id = $1
	`
	if _, err := q.Exec(ctx, query, sourceID, completedAt, status, newLeads); err != nil {
		return fmt.Errorf("funnel: finish source: %w", err)
	}
	return nil
}

// InsertSyncRun appends the audit row for one run. Rows are never mutated
// after insert.
func (s *Store) InsertSyncRun(ctx context.Context, q Querier, run *SyncRun) error {
	if q == nil {
		q = s.pool
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	var messages []string
	if run.ErrorsCount > 0 {
		messages = run.ErrorMessages
	}
	query := `
		INSERT INTO funnel_sync_logs (
			id, funnel_source_id, sync_type, sync_status,
			leads_processed, leads_created, leads_updated, leads_skipped,
			errors_count, error_messages, started_at, completed_at,
			duration_seconds, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now())
	`
	if _, err := q.Exec(ctx, query,
		run.ID, run.SourceID, run.SyncType, run.SyncStatus,
		run.LeadsProcessed, run.LeadsCreated, run.LeadsUpdated, run.LeadsSkipped,
		run.ErrorsCount, messages, run.StartedAt, run.CompletedAt,
		run.DurationSeconds,
	); err != nil {
		return fmt.Errorf("funnel: insert sync log: %w", err)
	}
	return nil
}

// LatestRun returns the most recent audit row for a source, or (nil, nil)
// when the source has never completed a run.
func (s *Store) LatestRun(ctx context.Context, sourceID uuid.UUID) (*SyncRun, error) {
	query := `
		SELECT id, funnel_source_id, sync_type, sync_status,
			leads_processed, leads_created, leads_updated, leads_skipped,
			errors_count, error_messages, started_at, completed_at,
			duration_seconds
		FROM funnel_sync_logs
		WHERE funnel_source_id = $1
		ORDER BY started_at DESC
		LIMIT 1
	`
	var run SyncRun
	err := s.pool.QueryRow(ctx, query, sourceID).Scan(
		&run.ID, &run.SourceID, &run.SyncType, &run.SyncStatus,
		&run.LeadsProcessed, &run.LeadsCreated, &run.LeadsUpdated, &run.LeadsSkipped,
		&run.ErrorsCount, &run.ErrorMessages, &run.StartedAt, &run.CompletedAt,
		&run.DurationSeconds,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("funnel: latest run: %w", err)
	}
	return &run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var src Source
	if err := row.Scan(
		&src.ID, &src.SourceType, &src.Name, &src.Config, &src.IsActive,
		&src.AutoSyncEnabled, &src.LastSyncAt, &src.LastSyncStatus,
		&src.SyncFrequencyHours, &src.TotalLeadsCaptured, &src.TotalConversions,
	); err != nil {
		return nil, err
	}
	return &src, nil
}

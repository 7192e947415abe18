package funnel

import (
	"context"
	"fmt"
	"time"
)

// Ledger owns the per-source watermark and the per-run audit log. A run's
// record writes, watermark advance, and audit row commit in one
// transaction; if the run aborts before CommitRun the watermark is
// untouched and no audit row exists.
type Ledger struct {
	store *Store
	now   func() time.Time
}

func NewLedger(store *Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// WithClock overrides the ledger clock, for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	if now != nil {
		l.now = now
	}
	return l
}

// RunContext tallies one in-flight run. Record and RecordError are pure
// in-memory bookkeeping; nothing touches the store until CommitRun.
type RunContext struct {
	Source    *Source
	SyncType  string
	StartedAt time.Time

	processed int
	created   int
	updated   int
	skipped   int
	errors    []string
}

// BeginRun opens the in-memory tally for one source run.
func (l *Ledger) BeginRun(source *Source, syncType string) *RunContext {
	if syncType == "" {
		syncType = SyncTypeManual
	}
	return &RunContext{
		Source:    source,
		SyncType:  syncType,
		StartedAt: l.now().UTC(),
	}
}

// Record tallies one reconciled record.
func (rc *RunContext) Record(outcome Outcome) {
	rc.processed++
	switch outcome {
	case OutcomeCreated:
		rc.created++
	case OutcomeUpdated:
		rc.updated++
	case OutcomeSkipped:
		rc.skipped++
	}
}

// RecordError tallies one failed record. The record still counts as
// processed.
func (rc *RunContext) RecordError(err error) {
	rc.processed++
	rc.errors = append(rc.errors, err.Error())
}

// Errors returns the ordered per-record error messages.
func (rc *RunContext) Errors() []string { return rc.errors }

// Status is the aggregate run status: success with zero record errors,
// partial otherwise. Total failure never reaches CommitRun.
func (rc *RunContext) Status() string {
	if len(rc.errors) == 0 {
		return SyncStatusSuccess
	}
	return SyncStatusPartial
}

// CommitRun advances the source watermark to now, bumps the cumulative lead
// counter by the created count, and appends the audit row — all inside the
// caller's transaction alongside the run's record writes.
func (l *Ledger) CommitRun(ctx context.Context, q Querier, rc *RunContext) (*SyncRun, error) {
	completedAt := l.now().UTC()
	status := rc.Status()

	if err := l.store.FinishSource(ctx, q, rc.Source.ID, status, rc.created, completedAt); err != nil {
		return nil, fmt.Errorf("funnel: commit run: %w", err)
	}

	run := &SyncRun{
		SourceID:        rc.Source.ID,
		SyncType:        rc.SyncType,
		SyncStatus:      status,
		LeadsProcessed:  rc.processed,
		LeadsCreated:    rc.created,
		LeadsUpdated:    rc.updated,
		LeadsSkipped:    rc.skipped,
		ErrorsCount:     len(rc.errors),
		ErrorMessages:   rc.errors,
		StartedAt:       rc.StartedAt,
		CompletedAt:     completedAt,
		DurationSeconds: int(completedAt.Sub(rc.StartedAt).Seconds()),
	}
	if err := l.store.InsertSyncRun(ctx, q, run); err != nil {
		return nil, fmt.Errorf("funnel: commit run: %w", err)
	}
	return run, nil
}

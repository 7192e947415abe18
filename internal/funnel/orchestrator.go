package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/engarde-app/signup-sync/internal/observability/metrics"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

const defaultWindowDays = 7

// SyncService drives one source end-to-end: load config, compute the fetch
// window, invoke the adapter, reconcile each record, commit the ledger.
// Multi-source runs isolate per-source failures.
type SyncService struct {
	store      *Store
	registry   *Registry
	reconciler *Reconciler
	ledger     *Ledger
	cache      *StatusCache
	metrics    *metrics.SyncMetrics
	logger     *logging.Logger
	windowDays int
	now        func() time.Time
}

type SyncServiceConfig struct {
	Store    *Store
	Registry *Registry

	// Optional collaborators.
	Cache   *StatusCache
	Metrics *metrics.SyncMetrics
	Logger  *logging.Logger

	WindowDays int
	Now        func() time.Time
}

func NewSyncService(cfg SyncServiceConfig) (*SyncService, error) {
	if cfg.Store == nil {
		return nil, errors.New("funnel: sync service requires store")
	}
	if cfg.Registry == nil {
		return nil, errors.New("funnel: sync service requires adapter registry")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &SyncService{
		store:      cfg.Store,
		registry:   cfg.Registry,
		reconciler: NewReconciler(cfg.Store, logger),
		ledger:     NewLedger(cfg.Store).WithClock(now),
		cache:      cfg.Cache,
		metrics:    cfg.Metrics,
		logger:     logger,
		windowDays: windowDays,
		now:        now,
	}, nil
}

// SyncOptions control one run.
type SyncOptions struct {
	// Force widens the fetch window to the full configured span even when
	// a watermark exists.
	Force bool
	// SyncType is recorded on the audit row: manual (default) or
	// automatic.
	SyncType string
}

// SyncSource runs one source. A returned error means the run aborted
// before commit: no audit row was written and the watermark is unchanged.
func (s *SyncService) SyncSource(ctx context.Context, st SourceType, opts SyncOptions) (*SyncResult, error) {
	source, err := s.store.ActiveSource(ctx, st)
	if err != nil {
		return nil, err
	}

	adapter, ok := s.registry.Lookup(st)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapter, st)
	}

	rc := s.ledger.BeginRun(source, opts.SyncType)
	since := s.syncFrom(source, opts.Force, rc.StartedAt)

	s.logger.Info("sync started",
		"source", st,
		"sync_from", since,
		"force", opts.Force,
	)

	records, err := adapter.Fetch(ctx, source.Config, since)
	if err != nil {
		s.metrics.ObserveRun(string(st), SyncStatusFailed, s.now().UTC().Sub(rc.StartedAt).Seconds())
		return nil, &AdapterError{SourceType: st, Err: err}
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("funnel: begin sync transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Fetch order is processing order: duplicate emails within one batch
	// resolve last-write-wins.
	for _, rec := range records {
		s.reconcileRecord(ctx, tx, rc, st, rec)
	}

	run, err := s.ledger.CommitRun(ctx, tx, rc)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("funnel: commit sync transaction: %w", err)
	}

	s.metrics.ObserveRun(string(st), run.SyncStatus, float64(run.DurationSeconds))
	s.metrics.ObserveOutcomes(string(st), run.LeadsCreated, run.LeadsUpdated, run.LeadsSkipped, run.ErrorsCount)
	s.cache.Invalidate(ctx, st)

	s.logger.Info("sync completed",
		"source", st,
		"status", run.SyncStatus,
		"processed", run.LeadsProcessed,
		"created", run.LeadsCreated,
		"updated", run.LeadsUpdated,
		"skipped", run.LeadsSkipped,
		"errors", run.ErrorsCount,
	)

	return buildResult(source, run), nil
}

// reconcileRecord applies one record under a savepoint so a failed write
// does not poison the surrounding run transaction.
func (s *SyncService) reconcileRecord(ctx context.Context, tx pgx.Tx, rc *RunContext, st SourceType, rec ExternalRecord) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		rc.RecordError(&RecordError{ExternalID: rec.ExternalID, Email: rec.Email, Err: err})
		return
	}
	outcome, err := s.reconciler.Reconcile(ctx, sp, st, rec)
	if err != nil {
		_ = sp.Rollback(ctx)
		s.logger.Error("record reconcile failed",
			"source", st,
			"external_id", rec.ExternalID,
			"error", err,
		)
		rc.RecordError(err)
		return
	}
	if err := sp.Commit(ctx); err != nil {
		rc.RecordError(&RecordError{ExternalID: rec.ExternalID, Email: rec.Email, Err: err})
		return
	}
	rc.Record(outcome)
}

// SyncAll runs each requested source independently, in the declared order.
// One source's failure becomes a failed entry in the result slice and does
// not stop the remaining sources.
func (s *SyncService) SyncAll(ctx context.Context, requested []SourceType, opts SyncOptions) []*SyncResult {
	var results []*SyncResult
	for _, st := range AllSourceTypes {
		if len(requested) > 0 && !containsSource(requested, st) {
			continue
		}
		result, err := s.SyncSource(ctx, st, opts)
		if err != nil {
			s.logger.Error("source sync failed", "source", st, "error", err)
			results = append(results, &SyncResult{
				Status:     SyncStatusFailed,
				SourceType: st,
				Error:      err.Error(),
			})
			continue
		}
		results = append(results, result)
	}
	return results
}

// Status assembles the sync status projection for one source, preferring
// the cached copy.
func (s *SyncService) Status(ctx context.Context, st SourceType) (*SyncStatus, error) {
	if cached, err := s.cache.Get(ctx, st); err == nil && cached != nil {
		return cached, nil
	}

	source, err := s.store.ActiveSource(ctx, st)
	if err != nil {
		return nil, err
	}
	latest, err := s.store.LatestRun(ctx, source.ID)
	if err != nil {
		return nil, err
	}

	status := &SyncStatus{
		SourceID:           source.ID.String(),
		SourceType:         source.SourceType,
		SourceName:         source.Name,
		IsActive:           source.IsActive,
		AutoSyncEnabled:    source.AutoSyncEnabled,
		LastSyncAt:         source.LastSyncAt,
		LastSyncStatus:     source.LastSyncStatus,
		SyncFrequencyHours: source.SyncFrequencyHours,
		TotalLeadsCaptured: source.TotalLeadsCaptured,
		TotalConversions:   source.TotalConversions,
		HealthStatus:       healthStatus(source),
	}
	if latest != nil {
		status.LastSyncMessage = runSummary(source.Name, latest)
	}
	if source.LastSyncAt != nil && source.SyncFrequencyHours > 0 {
		next := source.LastSyncAt.Add(time.Duration(source.SyncFrequencyHours) * time.Hour)
		status.NextSyncAt = &next
	}

	_ = s.cache.Set(ctx, status)
	return status, nil
}

func (s *SyncService) syncFrom(source *Source, force bool, now time.Time) time.Time {
	if force || source.LastSyncAt == nil {
		return now.Add(-time.Duration(s.windowDays) * 24 * time.Hour)
	}
	return *source.LastSyncAt
}

func buildResult(source *Source, run *SyncRun) *SyncResult {
	result := &SyncResult{
		Status:          run.SyncStatus,
		SourceType:      source.SourceType,
		SourceName:      source.Name,
		LeadsProcessed:  run.LeadsProcessed,
		LeadsCreated:    run.LeadsCreated,
		LeadsUpdated:    run.LeadsUpdated,
		LeadsSkipped:    run.LeadsSkipped,
		ErrorsCount:     run.ErrorsCount,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
		DurationSeconds: run.DurationSeconds,
		SyncLogID:       run.ID.String(),
		Summary:         runSummary(source.Name, run),
	}
	if run.ErrorsCount > 0 {
		result.ErrorMessages = run.ErrorMessages
	}
	return result
}

func runSummary(sourceName string, run *SyncRun) string {
	if run.ErrorsCount > 0 {
		return fmt.Sprintf("Synced %d new leads from %s (%d errors)", run.LeadsCreated, sourceName, run.ErrorsCount)
	}
	return fmt.Sprintf("Synced %d new leads from %s", run.LeadsCreated, sourceName)
}

func containsSource(list []SourceType, st SourceType) bool {
	for _, candidate := range list {
		if candidate == st {
			return true
		}
	}
	return false
}

func healthStatus(source *Source) string {
	if source.LastSyncStatus == nil {
		return "warning"
	}
	switch *source.LastSyncStatus {
	case SyncStatusSuccess:
		return "healthy"
	case SyncStatusPartial:
		return "warning"
	default:
		return "error"
	}
}

package funnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

func syncRunRows(id, sourceID uuid.UUID, created int) *pgxmock.Rows {
	started := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)
	return pgxmock.NewRows([]string{
		"id", "funnel_source_id", "sync_type", "sync_status",
		"leads_processed", "leads_created", "leads_updated", "leads_skipped",
		"errors_count", "error_messages", "started_at", "completed_at",
		"duration_seconds",
	}).AddRow(id, sourceID, SyncTypeManual, SyncStatusSuccess,
		created, created, 0, 0, 0, []string(nil), started, started.Add(30*time.Second), 30)
}

func TestActiveSourceNotFound(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("FROM funnel_sources").
		WithArgs(anyArgs(1)...).
		WithArgs(SourcePoshVIP).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.ActiveSource(context.Background(), SourcePoshVIP)
	if !errors.Is(err, ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
}

func TestActiveSourceScansRow(t *testing.T) {
	mock, store := newMockStore(t)
	sourceID := uuid.New()
	lastSync := time.Date(2026, 8, 25, 22, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM funnel_sources").
		WithArgs(anyArgs(1)...).
		WithArgs(SourceZoom).
		WillReturnRows(sourceRows(sourceID, SourceZoom, "Zoom Webinars", &lastSync))

	src, err := store.ActiveSource(context.Background(), SourceZoom)
	if err != nil {
		t.Fatalf("ActiveSource: %v", err)
	}
	if src.ID != sourceID || src.SourceType != SourceZoom || src.Name != "Zoom Webinars" {
		t.Fatalf("unexpected source: %+v", src)
	}
	if src.LastSyncAt == nil || !src.LastSyncAt.Equal(lastSync) {
		t.Fatalf("unexpected watermark: %v", src.LastSyncAt)
	}
}

func TestDueSourcesListsElapsedAndNeverSynced(t *testing.T) {
	mock, store := newMockStore(t)
	now := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	stale := now.Add(-48 * time.Hour)

	rows := sourceRows(uuid.New(), SourceEasyAppointments, "EA", nil).
		AddRow(uuid.New(), SourceEventbrite, "Eventbrite", []byte(`{}`), true, true,
			&stale, strPtr(SyncStatusSuccess), 24, 10, 1)
	mock.ExpectQuery("FROM funnel_sources").
		WithArgs(anyArgs(1)...).
		WithArgs(now).
		WillReturnRows(rows)

	due, err := store.DueSources(context.Background(), now)
	if err != nil {
		t.Fatalf("DueSources: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due sources, got %d", len(due))
	}
	if due[0].SourceType != SourceEasyAppointments || due[1].SourceType != SourceEventbrite {
		t.Fatalf("unexpected order: %v %v", due[0].SourceType, due[1].SourceType)
	}
}

func TestFindPendingForUpdateMissReturnsNil(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("FROM pending_signup_queue").
		WithArgs("nobody@x.com").
		WillReturnError(pgx.ErrNoRows)

	p, err := store.FindPendingForUpdate(context.Background(), nil, "nobody@x.com")
	if err != nil {
		t.Fatalf("FindPendingForUpdate: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil on miss, got %+v", p)
	}
}

func TestInsertPendingAppliesDefaults(t *testing.T) {
	mock, store := newMockStore(t)

	first := "Ann"
	p := &PendingSignup{
		Email:     "ann@x.com",
		FirstName: &first,
		Metadata:  []byte(`{"source_type":"zoom"}`),
	}
	mock.ExpectExec("INSERT INTO pending_signup_queue").
		WithArgs(anyArgs(8)...).
		WithArgs(pgxmock.AnyArg(), "ann@x.com", &first, (*string)(nil), (*string)(nil),
			"brand", SignupStatusPending, p.Metadata).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.InsertPending(context.Background(), nil, p); err != nil {
		t.Fatalf("InsertPending: %v", err)
	}
	if p.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
	if p.UserType != "brand" {
		t.Fatalf("expected brand default, got %q", p.UserType)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdatePendingCoalescesIdentityFields(t *testing.T) {
	mock, store := newMockStore(t)

	company := "En Garde"
	metadata := []byte(`{"source_type":"eventbrite"}`)
	mock.ExpectExec("UPDATE pending_signup_queue").
		WithArgs(anyArgs(5)...).
		WithArgs("ann@x.com", (*string)(nil), (*string)(nil), &company, metadata).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := store.UpdatePending(context.Background(), nil, "ann@x.com", nil, nil, &company, metadata); err != nil {
		t.Fatalf("UpdatePending: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertSyncRunOmitsMessagesOnCleanRun(t *testing.T) {
	mock, store := newMockStore(t)
	started := time.Date(2026, 8, 26, 8, 0, 0, 0, time.UTC)

	run := &SyncRun{
		SourceID:        uuid.New(),
		SyncType:        SyncTypeAutomatic,
		SyncStatus:      SyncStatusSuccess,
		LeadsProcessed:  2,
		LeadsCreated:    2,
		ErrorMessages:   []string{"stale entry that must not persist"},
		StartedAt:       started,
		CompletedAt:     started.Add(time.Second),
		DurationSeconds: 1,
	}
	mock.ExpectExec("INSERT INTO funnel_sync_logs").
		WithArgs(anyArgs(13)...).
		WithArgs(pgxmock.AnyArg(), run.SourceID, SyncTypeAutomatic, SyncStatusSuccess,
			2, 2, 0, 0, 0, []string(nil), started, run.CompletedAt, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.InsertSyncRun(context.Background(), nil, run); err != nil {
		t.Fatalf("InsertSyncRun: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestLatestRunNoneReturnsNil(t *testing.T) {
	mock, store := newMockStore(t)

	mock.ExpectQuery("FROM funnel_sync_logs").
		WithArgs(anyArgs(1)...).
		WillReturnError(pgx.ErrNoRows)

	run, err := store.LatestRun(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run != nil {
		t.Fatalf("expected nil, got %+v", run)
	}
}

func TestLatestRunScansAuditRow(t *testing.T) {
	mock, store := newMockStore(t)
	sourceID := uuid.New()
	runID := uuid.New()

	mock.ExpectQuery("FROM funnel_sync_logs").
		WithArgs(anyArgs(1)...).
		WithArgs(sourceID).
		WillReturnRows(syncRunRows(runID, sourceID, 3))

	run, err := store.LatestRun(context.Background(), sourceID)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if run.ID != runID || run.LeadsCreated != 3 || run.SyncStatus != SyncStatusSuccess {
		t.Fatalf("unexpected run: %+v", run)
	}
}

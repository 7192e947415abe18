// Package funnel implements the multi-source lead sync engine: source
// adapters feed raw external records into a reconciler that maintains the
// pending signup queue, with a per-source watermark and per-run audit log.
package funnel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SourceType identifies an external system records are pulled from.
type SourceType string

const (
	SourceEasyAppointments SourceType = "easyappointments"
	SourceZoom             SourceType = "zoom"
	SourceEventbrite       SourceType = "eventbrite"
	SourcePoshVIP          SourceType = "poshvip"
)

// AllSourceTypes is the declared sync order for multi-source runs.
var AllSourceTypes = []SourceType{
	SourceEasyAppointments,
	SourceZoom,
	SourceEventbrite,
	SourcePoshVIP,
}

// InboundSourceTypes additionally includes sources that only report events
// through the tracking endpoints and are never pulled.
var InboundSourceTypes = []string{
	"easyappointments", "zoom", "eventbrite", "poshvip",
	"manual", "referral", "direct_signup",
}

// ParseSourceType validates a source type from an HTTP path or query value.
func ParseSourceType(raw string) (SourceType, error) {
	st := SourceType(raw)
	for _, known := range AllSourceTypes {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("funnel: unknown source type %q", raw)
}

// Sync type values recorded on each run.
const (
	SyncTypeManual    = "manual"
	SyncTypeAutomatic = "automatic"
)

// Sync status values for runs and sources.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusFailed  = "failed"
)

// Pending signup statuses. Approved and rejected are terminal; the
// reconciler never mutates a row after either decision.
const (
	SignupStatusPending  = "pending"
	SignupStatusApproved = "approved"
	SignupStatusRejected = "rejected"
)

// Source is a configured funnel source row. Config is opaque to the engine
// and decoded by the matching adapter.
type Source struct {
	ID                 uuid.UUID
	SourceType         SourceType
	Name               string
	Config             json.RawMessage
	IsActive           bool
	AutoSyncEnabled    bool
	LastSyncAt         *time.Time
	LastSyncStatus     *string
	SyncFrequencyHours int
	TotalLeadsCaptured int
	TotalConversions   int
}

// ExternalRecord is one raw lead fetched from a source. It is ephemeral:
// produced by an adapter, consumed once by the reconciler.
type ExternalRecord struct {
	ExternalID   string
	Email        string
	FirstName    string
	LastName     string
	Company      string
	Phone        string
	Address      string
	City         string
	State        string
	ServiceName  string
	ServicePrice *float64
	ScheduledAt  *time.Time
}

// PendingSignup is a lead awaiting admin approval, keyed by lower-cased
// email.
type PendingSignup struct {
	ID        uuid.UUID
	Email     string
	FirstName *string
	LastName  *string
	Company   *string
	UserType  string
	Status    string
	Metadata  json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SignupMetadata is the attribution snapshot stored on each pending signup.
// It is replaced wholesale on every update so it always reflects the latest
// source view.
type SignupMetadata struct {
	Source       string     `json:"source"`
	ExternalID   string     `json:"external_id,omitempty"`
	ServiceName  string     `json:"service_name,omitempty"`
	ServicePrice *float64   `json:"service_price,omitempty"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	City         string     `json:"city,omitempty"`
	State        string     `json:"state,omitempty"`
}

// SyncRun is one append-only audit row per orchestration invocation.
type SyncRun struct {
	ID              uuid.UUID
	SourceID        uuid.UUID
	SyncType        string
	SyncStatus      string
	LeadsProcessed  int
	LeadsCreated    int
	LeadsUpdated    int
	LeadsSkipped    int
	ErrorsCount     int
	ErrorMessages   []string
	StartedAt       time.Time
	CompletedAt     time.Time
	DurationSeconds int
}

// SyncResult is the transport-independent outcome of one source run.
type SyncResult struct {
	Status     string     `json:"status"`
	SourceType SourceType `json:"source_type"`
	SourceName string     `json:"source_name,omitempty"`

	LeadsProcessed int `json:"leads_processed"`
	LeadsCreated   int `json:"leads_created"`
	LeadsUpdated   int `json:"leads_updated"`
	LeadsSkipped   int `json:"leads_skipped"`
	ErrorsCount    int `json:"errors_count"`

	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	DurationSeconds int       `json:"duration_seconds"`

	SyncLogID     string   `json:"sync_log_id,omitempty"`
	ErrorMessages []string `json:"error_messages,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// SyncStatus is the projection returned by the status endpoint.
type SyncStatus struct {
	SourceID        string     `json:"source_id"`
	SourceType      SourceType `json:"source_type"`
	SourceName      string     `json:"source_name"`
	IsActive        bool       `json:"is_active"`
	AutoSyncEnabled bool       `json:"auto_sync_enabled"`

	LastSyncAt         *time.Time `json:"last_sync_at"`
	LastSyncStatus     *string    `json:"last_sync_status"`
	LastSyncMessage    string     `json:"last_sync_message,omitempty"`
	NextSyncAt         *time.Time `json:"next_sync_at"`
	SyncFrequencyHours int        `json:"sync_frequency_hours"`

	TotalLeadsCaptured int `json:"total_leads_captured"`
	TotalConversions   int `json:"total_conversions"`

	HealthStatus string `json:"health_status"`
}

// Outcome is the reconciler's decision for one external record.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

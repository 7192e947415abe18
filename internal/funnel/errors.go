package funnel

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotFound is returned when no active source row exists for
	// the requested type. The run aborts before any fetch or ledger write.
	ErrSourceNotFound = errors.New("funnel: no active source for type")

	// ErrNoAdapter is returned when a source type has no registered
	// adapter.
	ErrNoAdapter = errors.New("funnel: no adapter registered for type")
)

// AdapterError wraps a failed external fetch. It is fatal to the source's
// run: no ledger row is written and the watermark stays put, so the next
// invocation retries the same window.
type AdapterError struct {
	SourceType SourceType
	Err        error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("funnel: %s fetch failed: %v", e.SourceType, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// RecordError wraps a single record's reconcile failure. It is recorded in
// the run's error list and does not abort the batch.
type RecordError struct {
	ExternalID string
	Email      string
	Err        error
}

func (e *RecordError) Error() string {
	if e.ExternalID != "" {
		return fmt.Sprintf("record %s: %v", e.ExternalID, e.Err)
	}
	return fmt.Sprintf("record %s: %v", e.Email, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

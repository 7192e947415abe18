package funnel

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/engarde-app/signup-sync/pkg/logging"
)

// Reconciler decides create/update/skip for each fetched record against the
// pending signup queue. It is idempotent under at-least-once delivery:
// replaying a record after the signup was approved or rejected never
// resurrects or mutates the row.
type Reconciler struct {
	store  *Store
	logger *logging.Logger
}

func NewReconciler(store *Store, logger *logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// Reconcile applies one external record inside the caller's transaction.
// Records with no usable email are skipped, not errored: email is the sole
// join key.
func (r *Reconciler) Reconcile(ctx context.Context, q Querier, st SourceType, rec ExternalRecord) (Outcome, error) {
	email := NormalizeEmail(rec.Email)
	if email == "" {
		r.logger.Info("skipping record with no email",
			"source", st,
			"external_id", rec.ExternalID,
		)
		return OutcomeSkipped, nil
	}

	metadata, err := json.Marshal(buildMetadata(st, rec))
	if err != nil {
		return OutcomeSkipped, &RecordError{ExternalID: rec.ExternalID, Email: email, Err: fmt.Errorf("encode metadata: %w", err)}
	}

	existing, err := r.store.FindPendingForUpdate(ctx, q, email)
	if err != nil {
		return OutcomeSkipped, &RecordError{ExternalID: rec.ExternalID, Email: email, Err: err}
	}

	if existing == nil {
		signup := &PendingSignup{
			Email:     email,
			FirstName: nullable(rec.FirstName),
			LastName:  nullable(rec.LastName),
			Company:   nullable(rec.Company),
			Metadata:  metadata,
		}
		if err := r.store.InsertPending(ctx, q, signup); err != nil {
			return OutcomeSkipped, &RecordError{ExternalID: rec.ExternalID, Email: email, Err: err}
		}
		r.logger.Info("pending signup created",
			"source", st,
			"email", email,
			"external_id", rec.ExternalID,
		)
		return OutcomeCreated, nil
	}

	// Approved/rejected rows are frozen.
	if existing.Status != SignupStatusPending {
		return OutcomeSkipped, nil
	}

	if err := r.store.UpdatePending(ctx, q, email,
		nullable(rec.FirstName), nullable(rec.LastName), nullable(rec.Company),
		metadata,
	); err != nil {
		return OutcomeSkipped, &RecordError{ExternalID: rec.ExternalID, Email: email, Err: err}
	}
	return OutcomeUpdated, nil
}

// NormalizeEmail case-folds and trims an email address. The result is the
// sole reconciliation key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func buildMetadata(st SourceType, rec ExternalRecord) SignupMetadata {
	return SignupMetadata{
		Source:       string(st),
		ExternalID:   rec.ExternalID,
		ServiceName:  rec.ServiceName,
		ServicePrice: rec.ServicePrice,
		ScheduledAt:  rec.ScheduledAt,
		Phone:        rec.Phone,
		Address:      rec.Address,
		City:         rec.City,
		State:        rec.State,
	}
}

func nullable(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

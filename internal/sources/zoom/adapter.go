package zoom

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/engarde-app/signup-sync/internal/funnel"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

// Adapter pulls webinar registrants across every configured webinar and
// maps each registrant to a lead record.
type Adapter struct {
	logger *logging.Logger
}

func NewAdapter(logger *logging.Logger) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{logger: logger}
}

// Fetch satisfies funnel.SourceAdapter.
func (a *Adapter) Fetch(ctx context.Context, rawConfig json.RawMessage, since time.Time) ([]funnel.ExternalRecord, error) {
	var cfg Config
	if err := json.Unmarshal(rawConfig, &cfg); err != nil {
		return nil, fmt.Errorf("zoom: decode source config: %w", err)
	}
	if strings.TrimSpace(cfg.AccountID) == "" || strings.TrimSpace(cfg.ClientID) == "" || strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, fmt.Errorf("zoom: source config missing oauth credentials")
	}
	if len(cfg.WebinarIDs) == 0 {
		return nil, fmt.Errorf("zoom: source config lists no webinar_ids")
	}

	client := NewClient(cfg, a.logger)

	var records []funnel.ExternalRecord
	for _, webinarID := range cfg.WebinarIDs {
		registrants, err := client.ListRegistrants(ctx, webinarID)
		if err != nil {
			return nil, err
		}
		for _, reg := range registrants {
			rec, ok := a.toRecord(webinarID, reg, since)
			if !ok {
				continue
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func (a *Adapter) toRecord(webinarID string, reg Registrant, since time.Time) (funnel.ExternalRecord, bool) {
	registered, err := time.Parse(time.RFC3339, reg.CreateTime)
	if err != nil {
		a.logger.Warn("skipping registrant with unparseable create_time",
			"webinar_id", webinarID, "registrant_id", reg.ID, "create_time", reg.CreateTime)
		return funnel.ExternalRecord{}, false
	}
	if registered.Before(since) {
		return funnel.ExternalRecord{}, false
	}
	return funnel.ExternalRecord{
		ExternalID: webinarID + ":" + reg.ID,
		Email:      reg.Email,
		FirstName:  reg.FirstName,
		LastName:   reg.LastName,
		Company:    reg.Org,
		Phone:      reg.Phone,
		Address:    reg.Address,
		City:       reg.City,
		State:      reg.State,
	}, true
}

package poshvip

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/engarde-app/signup-sync/internal/funnel"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

// Adapter pulls the contacts export and maps each contact to a lead record.
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
		return nil, fmt.Errorf("poshvip: decode source config: %w", err)
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("poshvip: source config missing api_key")
	}

	contacts, err := NewClient(cfg.BaseURL, cfg.APIKey, a.logger).ListContacts(ctx, since)
	if err != nil {
		return nil, err
	}

	records := make([]funnel.ExternalRecord, 0, len(contacts))
	for _, contact := range contacts {
		records = append(records, funnel.ExternalRecord{
			ExternalID: contact.ID,
			Email:      contact.Email,
			FirstName:  contact.FirstName,
			LastName:   contact.LastName,
			Phone:      contact.Phone,
			City:       contact.City,
			State:      contact.State,
		})
	}
	return records, nil
}

package eventbrite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/engarde-app/signup-sync/internal/funnel"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

// Adapter pulls attendees of every configured event and maps each attending
// profile to a lead record. Cancelled and refunded attendees are skipped.
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
		return nil, fmt.Errorf("eventbrite: decode source config: %w", err)
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, fmt.Errorf("eventbrite: source config missing api_token")
	}
	if len(cfg.EventIDs) == 0 {
		return nil, fmt.Errorf("eventbrite: source config lists no event_ids")
	}

	client := NewClient(cfg.BaseURL, cfg.APIToken, a.logger)

	var records []funnel.ExternalRecord
	for _, eventID := range cfg.EventIDs {
		attendees, err := client.ListAttendees(ctx, eventID, since)
		if err != nil {
			return nil, err
		}
		for _, att := range attendees {
			if att.Status != "" && !strings.EqualFold(att.Status, "attending") {
				continue
			}
			records = append(records, toRecord(eventID, att))
		}
	}
	return records, nil
}

func toRecord(eventID string, att Attendee) funnel.ExternalRecord {
	rec := funnel.ExternalRecord{
		ExternalID: eventID + ":" + att.ID,
		Email:      att.Profile.Email,
		FirstName:  att.Profile.FirstName,
		LastName:   att.Profile.LastName,
		Company:    att.Profile.CompanyName,
		Phone:      att.Profile.CellPhone,
	}
	if addr := primaryAddress(att.Profile.Addresses); addr != nil {
		rec.Address = addr.Address1
		rec.City = addr.City
		rec.State = addr.Region
	}
	return rec
}

func primaryAddress(addrs *Addresses) *Address {
	if addrs == nil {
		return nil
	}
	if addrs.Home != nil {
		return addrs.Home
	}
	return addrs.Work
}

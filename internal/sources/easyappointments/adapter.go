package easyappointments

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/engarde-app/signup-sync/internal/funnel"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

// Adapter pulls booked appointments and maps each booker to a lead record.
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
		return nil, fmt.Errorf("easyappointments: decode source config: %w", err)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("easyappointments: source config missing base_url")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("easyappointments: source config missing api_key")
	}

	client := NewClient(cfg.BaseURL, cfg.APIKey, a.logger)
	appointments, err := client.ListAppointments(ctx, since)
	if err != nil {
		return nil, err
	}

	records := make([]funnel.ExternalRecord, 0, len(appointments))
	for _, apt := range appointments {
		if apt.Customer == nil {
			a.logger.Warn("skipping appointment without customer aggregate", "appointment_id", apt.ID)
			continue
		}
		records = append(records, toRecord(apt))
	}
	return records, nil
}

func toRecord(apt Appointment) funnel.ExternalRecord {
	rec := funnel.ExternalRecord{
		ExternalID: strconv.Itoa(apt.ID),
		Email:      apt.Customer.Email,
		FirstName:  apt.Customer.FirstName,
		LastName:   apt.Customer.LastName,
		Phone:      apt.Customer.Phone,
		Address:    apt.Customer.Address,
		City:       apt.Customer.City,
		State:      apt.Customer.State,
	}
	if apt.Service != nil {
		rec.ServiceName = apt.Service.Name
		rec.ServicePrice = apt.Service.Price
	}
	if start, err := time.Parse(datetimeLayout, apt.Start); err == nil {
		rec.ScheduledAt = &start
	}
	return rec
}

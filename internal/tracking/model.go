package tracking

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event is one stored funnel touchpoint: a page view, form submission,
// booking, or any other step of the journey reported by the frontend or a
// peer service.
type Event struct {
	ID             uuid.UUID
	SourceType     string
	ExternalID     *string
	EventType      string
	EventTimestamp time.Time

	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Company   *string

	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	UTMContent  *string
	UTMTerm     *string

	Referrer  *string
	IPAddress *string
	UserAgent *string

	EventData        json.RawMessage
	ExternalMetadata json.RawMessage

	CreatedAt time.Time
}

// EventRequest is the POST /funnel/event payload.
type EventRequest struct {
	SourceType     string     `json:"source_type"`
	ExternalID     *string    `json:"external_id"`
	EventType      string     `json:"event_type"`
	EventTimestamp *time.Time `json:"event_timestamp"`

	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Phone     *string `json:"phone"`
	Company   *string `json:"company"`

	UTMSource   *string `json:"utm_source"`
	UTMMedium   *string `json:"utm_medium"`
	UTMCampaign *string `json:"utm_campaign"`
	UTMContent  *string `json:"utm_content"`
	UTMTerm     *string `json:"utm_term"`

	Referrer  *string `json:"referrer"`
	IPAddress *string `json:"ip_address"`
	UserAgent *string `json:"user_agent"`

	EventData        json.RawMessage `json:"event_data"`
	ExternalMetadata json.RawMessage `json:"external_metadata"`
}

// EventResponse acknowledges a tracked event.
type EventResponse struct {
	Success   bool      `json:"success"`
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Email     *string   `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

// Conversion links a lead's funnel events to the account that was finally
// created for them, with first/last-touch attribution resolved at record
// time.
type Conversion struct {
	ID                uuid.UUID
	Email             string
	UserID            string
	ConvertedAt       time.Time
	EstimatedValueUSD *int

	FirstTouchSourceType string
	FirstTouchAt         time.Time
	LastTouchSourceType  string
	LastTouchAt          time.Time

	DaysToConversion int
	TotalTouchpoints int
}

// ConversionRequest is the POST /funnel/conversion payload.
type ConversionRequest struct {
	Email             string     `json:"email"`
	UserID            string     `json:"user_id"`
	ConvertedAt       *time.Time `json:"converted_at"`
	EstimatedValueUSD *int       `json:"estimated_value_usd"`
}

// ConversionResponse reports the recorded conversion with its attribution.
type ConversionResponse struct {
	Success      bool   `json:"success"`
	ConversionID string `json:"conversion_id"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`

	FirstTouchSourceType string    `json:"first_touch_source_type"`
	FirstTouchAt         time.Time `json:"first_touch_at"`
	LastTouchSourceType  string    `json:"last_touch_source_type"`
	LastTouchAt          time.Time `json:"last_touch_at"`

	DaysToConversion int    `json:"days_to_conversion"`
	TotalTouchpoints int    `json:"total_touchpoints"`
	Message          string `json:"message"`
}

// Touchpoint is one attribution-relevant event of a lead.
type Touchpoint struct {
	SourceType string
	At         time.Time
}

// MetricsFilter narrows the funnel metrics aggregation.
type MetricsFilter struct {
	SourceType string
	StartDate  *time.Time
	EndDate    *time.Time
}

// SourceMetrics is the per-source slice of the funnel metrics report.
type SourceMetrics struct {
	SourceType     string  `json:"source_type"`
	TotalLeads     int     `json:"total_leads"`
	Conversions    int     `json:"total_conversions"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Metrics is the GET /analytics/funnel-metrics report.
type Metrics struct {
	TotalLeads       int             `json:"total_leads"`
	TotalConversions int             `json:"total_conversions"`
	ConversionRate   float64         `json:"conversion_rate"`
	Sources          []SourceMetrics `json:"sources"`
}

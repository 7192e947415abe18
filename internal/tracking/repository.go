package tracking

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) InsertEvent(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO funnel_events (id, source_type, external_id, event_type, event_timestamp,
		    email, first_name, last_name, phone, company,
		    utm_source, utm_medium, utm_campaign, utm_content, utm_term,
		    referrer, ip_address, user_agent, event_data, external_metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
		e.ID, e.SourceType, e.ExternalID, e.EventType, e.EventTimestamp,
		e.Email, e.FirstName, e.LastName, e.Phone, e.Company,
		e.UTMSource, e.UTMMedium, e.UTMCampaign, e.UTMContent, e.UTMTerm,
		e.Referrer, e.IPAddress, e.UserAgent, nullableJSON(e.EventData), nullableJSON(e.ExternalMetadata),
		e.CreatedAt)
	return err
}

// Touchpoints lists a lead's events oldest first, for attribution.
func (r *Repository) Touchpoints(ctx context.Context, email string) ([]Touchpoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_type, event_timestamp
		FROM funnel_events WHERE email = $1 ORDER BY event_timestamp ASC`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Touchpoint
	for rows.Next() {
		var tp Touchpoint
		if err := rows.Scan(&tp.SourceType, &tp.At); err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}

func (r *Repository) InsertConversion(ctx context.Context, c *Conversion) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO funnel_conversions (id, email, user_id, converted_at, estimated_value_usd,
		    first_touch_source_type, first_touch_at, last_touch_source_type, last_touch_at,
		    days_to_conversion, total_touchpoints, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())`,
		c.ID, c.Email, c.UserID, c.ConvertedAt, c.EstimatedValueUSD,
		c.FirstTouchSourceType, c.FirstTouchAt, c.LastTouchSourceType, c.LastTouchAt,
		c.DaysToConversion, c.TotalTouchpoints)
	return err
}

// BumpSourceConversions credits a conversion to the first-touch source's
// cumulative counter. Sources the sync engine doesn't pull (manual,
// referral, direct_signup) have no row and the update is a no-op.
func (r *Repository) BumpSourceConversions(ctx context.Context, sourceType string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE funnel_sources SET total_conversions = total_conversions + 1
		WHERE source_type = $1`, sourceType)
	return err
}

// Metrics aggregates lead and conversion counts per source.
func (r *Repository) Metrics(ctx context.Context, filter MetricsFilter) (*Metrics, error) {
	leads, err := r.leadCounts(ctx, filter)
	if err != nil {
		return nil, err
	}
	conversions, err := r.conversionCounts(ctx, filter)
	if err != nil {
		return nil, err
	}

	metrics := &Metrics{Sources: []SourceMetrics{}}
	for sourceType, leadCount := range leads {
		converted := conversions[sourceType]
		sm := SourceMetrics{
			SourceType:  sourceType,
			TotalLeads:  leadCount,
			Conversions: converted,
		}
		if leadCount > 0 {
			sm.ConversionRate = float64(converted) / float64(leadCount)
		}
		metrics.Sources = append(metrics.Sources, sm)
		metrics.TotalLeads += leadCount
		metrics.TotalConversions += converted
	}
	sortSources(metrics.Sources)
	if metrics.TotalLeads > 0 {
		metrics.ConversionRate = float64(metrics.TotalConversions) / float64(metrics.TotalLeads)
	}
	return metrics, nil
}

func (r *Repository) leadCounts(ctx context.Context, filter MetricsFilter) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT source_type, COUNT(DISTINCT email)
		FROM funnel_events
		WHERE email IS NOT NULL
		    AND ($1 = '' OR source_type = $1)
		    AND ($2::timestamptz IS NULL OR event_timestamp >= $2)
		    AND ($3::timestamptz IS NULL OR event_timestamp < $3)
		GROUP BY source_type`,
		filter.SourceType, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCounts(rows)
}

func (r *Repository) conversionCounts(ctx context.Context, filter MetricsFilter) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT first_touch_source_type, COUNT(*)
		FROM funnel_conversions
		WHERE ($1 = '' OR first_touch_source_type = $1)
		    AND ($2::timestamptz IS NULL OR converted_at >= $2)
		    AND ($3::timestamptz IS NULL OR converted_at < $3)
		GROUP BY first_touch_source_type`,
		filter.SourceType, filter.StartDate, filter.EndDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCounts(rows)
}

func scanCounts(rows *sql.Rows) (map[string]int, error) {
	out := map[string]int{}
	for rows.Next() {
		var sourceType string
		var count int
		if err := rows.Scan(&sourceType, &count); err != nil {
			return nil, err
		}
		out[sourceType] = count
	}
	return out, rows.Err()
}

func sortSources(sources []SourceMetrics) {
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].SourceType < sources[j].SourceType
	})
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

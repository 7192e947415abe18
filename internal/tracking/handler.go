package tracking

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/engarde-app/signup-sync/internal/funnel"
	"github.com/engarde-app/signup-sync/pkg/logging"
)

// directSignup is the attribution fallback when a converting lead has no
// recorded touchpoints.
const directSignup = "direct_signup"

// Handler exposes funnel event tracking and analytics over HTTP.
type Handler struct {
	repo   *Repository
	logger *logging.Logger
}

func NewHandler(repo *Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// TrackEvent handles POST /funnel/event
func (h *Handler) TrackEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.EventType == "" {
		http.Error(w, "event_type is required", http.StatusBadRequest)
		return
	}
	if !knownSourceType(req.SourceType) {
		http.Error(w, "unknown source_type "+req.SourceType, http.StatusBadRequest)
		return
	}

	event := eventFromRequest(&req)
	if err := h.repo.InsertEvent(r.Context(), event); err != nil {
		h.logger.Error("failed to store funnel event", "event_type", req.EventType, "error", err)
		http.Error(w, "event tracking failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("funnel event tracked", "event_type", event.EventType, "source", event.SourceType)
	writeJSON(w, http.StatusOK, EventResponse{
		Success:   true,
		EventID:   event.ID.String(),
		EventType: event.EventType,
		Email:     event.Email,
		CreatedAt: event.CreatedAt,
		Message:   "Event tracked successfully",
	})
}

// MarkConversion handles POST /funnel/conversion
func (h *Handler) MarkConversion(w http.ResponseWriter, r *http.Request) {
	var req ConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	email := funnel.NormalizeEmail(req.Email)
	if email == "" || req.UserID == "" {
		http.Error(w, "email and user_id are required", http.StatusBadRequest)
		return
	}

	convertedAt := time.Now().UTC()
	if req.ConvertedAt != nil {
		convertedAt = req.ConvertedAt.UTC()
	}

	touchpoints, err := h.repo.Touchpoints(r.Context(), email)
	if err != nil {
		h.logger.Error("failed to load touchpoints", "email", email, "error", err)
		http.Error(w, "conversion tracking failed", http.StatusInternalServerError)
		return
	}

	conversion := buildConversion(email, req.UserID, convertedAt, req.EstimatedValueUSD, touchpoints)
	if err := h.repo.InsertConversion(r.Context(), conversion); err != nil {
		h.logger.Error("failed to store conversion", "email", email, "error", err)
		http.Error(w, "conversion tracking failed", http.StatusInternalServerError)
		return
	}
	if err := h.repo.BumpSourceConversions(r.Context(), conversion.FirstTouchSourceType); err != nil {
		// The conversion row is already durable; the cumulative counter
		// drifting is tolerable.
		h.logger.Error("failed to bump source conversion counter",
			"source", conversion.FirstTouchSourceType, "error", err)
	}

	h.logger.Info("conversion recorded",
		"email", email,
		"first_touch", conversion.FirstTouchSourceType,
		"touchpoints", conversion.TotalTouchpoints,
	)
	writeJSON(w, http.StatusOK, ConversionResponse{
		Success:              true,
		ConversionID:         conversion.ID.String(),
		UserID:               conversion.UserID,
		Email:                conversion.Email,
		FirstTouchSourceType: conversion.FirstTouchSourceType,
		FirstTouchAt:         conversion.FirstTouchAt,
		LastTouchSourceType:  conversion.LastTouchSourceType,
		LastTouchAt:          conversion.LastTouchAt,
		DaysToConversion:     conversion.DaysToConversion,
		TotalTouchpoints:     conversion.TotalTouchpoints,
		Message:              "Conversion recorded successfully",
	})
}

// Metrics handles GET /analytics/funnel-metrics
func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	filter := MetricsFilter{SourceType: r.URL.Query().Get("source_type")}
	if filter.SourceType != "" && !knownSourceType(filter.SourceType) {
		http.Error(w, "unknown source_type "+filter.SourceType, http.StatusBadRequest)
		return
	}

	var err error
	if filter.StartDate, err = parseDateParam(r, "start_date"); err != nil {
		http.Error(w, "start_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	if filter.EndDate, err = parseDateParam(r, "end_date"); err != nil {
		http.Error(w, "end_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	metrics, err := h.repo.Metrics(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to aggregate funnel metrics", "error", err)
		http.Error(w, "metrics retrieval failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

func eventFromRequest(req *EventRequest) *Event {
	timestamp := time.Now().UTC()
	if req.EventTimestamp != nil {
		timestamp = req.EventTimestamp.UTC()
	}
	email := req.Email
	if email != nil {
		folded := funnel.NormalizeEmail(*email)
		email = &folded
	}
	return &Event{
		SourceType:       req.SourceType,
		ExternalID:       req.ExternalID,
		EventType:        req.EventType,
		EventTimestamp:   timestamp,
		Email:            email,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Phone:            req.Phone,
		Company:          req.Company,
		UTMSource:        req.UTMSource,
		UTMMedium:        req.UTMMedium,
		UTMCampaign:      req.UTMCampaign,
		UTMContent:       req.UTMContent,
		UTMTerm:          req.UTMTerm,
		Referrer:         req.Referrer,
		IPAddress:        req.IPAddress,
		UserAgent:        req.UserAgent,
		EventData:        req.EventData,
		ExternalMetadata: req.ExternalMetadata,
	}
}

func buildConversion(email, userID string, convertedAt time.Time, value *int, touchpoints []Touchpoint) *Conversion {
	c := &Conversion{
		Email:             email,
		UserID:            userID,
		ConvertedAt:       convertedAt,
		EstimatedValueUSD: value,

		FirstTouchSourceType: directSignup,
		FirstTouchAt:         convertedAt,
		LastTouchSourceType:  directSignup,
		LastTouchAt:          convertedAt,
		TotalTouchpoints:     len(touchpoints),
	}
	if len(touchpoints) > 0 {
		first, last := touchpoints[0], touchpoints[len(touchpoints)-1]
		c.FirstTouchSourceType = first.SourceType
		c.FirstTouchAt = first.At
		c.LastTouchSourceType = last.SourceType
		c.LastTouchAt = last.At
		c.DaysToConversion = int(convertedAt.Sub(first.At).Hours() / 24)
	}
	return c
}

func knownSourceType(sourceType string) bool {
	for _, known := range funnel.InboundSourceTypes {
		if sourceType == known {
			return true
		}
	}
	return false
}

func parseDateParam(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

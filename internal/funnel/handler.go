package funnel

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/engarde-app/signup-sync/pkg/logging"
)

// Handler exposes the sync engine over HTTP.
type Handler struct {
	service *SyncService
	logger  *logging.Logger
}

func NewHandler(service *SyncService, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// SyncSource handles POST /sync/{sourceType}?force_sync=true
func (h *Handler) SyncSource(w http.ResponseWriter, r *http.Request) {
	st, err := ParseSourceType(chi.URLParam(r, "sourceType"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.SyncSource(r.Context(), st, SyncOptions{
		Force:    parseBoolParam(r, "force_sync"),
		SyncType: SyncTypeManual,
	})
	if err != nil {
		h.writeSyncError(w, st, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// SyncAllResponse wraps a multi-source run.
type SyncAllResponse struct {
	Status        string        `json:"status"`
	SourcesSynced int           `json:"sources_synced"`
	Results       []*SyncResult `json:"results"`
}

// SyncAll handles POST /sync/all?sources=easyappointments,zoom&force_sync=true
func (h *Handler) SyncAll(w http.ResponseWriter, r *http.Request) {
	requested, err := parseSourcesParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	results := h.service.SyncAll(r.Context(), requested, SyncOptions{
		Force:    parseBoolParam(r, "force_sync"),
		SyncType: SyncTypeManual,
	})

	writeJSON(w, http.StatusOK, SyncAllResponse{
		Status:        "completed",
		SourcesSynced: len(results),
		Results:       results,
	})
}

// Status handles GET /sync/status/{sourceType}
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := ParseSourceType(chi.URLParam(r, "sourceType"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := h.service.Status(r.Context(), st)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			http.Error(w, "funnel source not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load sync status", "source", st, "error", err)
		http.Error(w, "failed to load sync status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) writeSyncError(w http.ResponseWriter, st SourceType, err error) {
	var adapterErr *AdapterError
	switch {
	case errors.Is(err, ErrSourceNotFound):
		http.Error(w, "no active funnel source for "+string(st), http.StatusNotFound)
	case errors.As(err, &adapterErr):
		h.logger.Error("adapter fetch failed", "source", st, "error", err)
		http.Error(w, "source fetch failed: "+adapterErr.Err.Error(), http.StatusBadGateway)
	default:
		h.logger.Error("sync failed", "source", st, "error", err)
		http.Error(w, "sync failed", http.StatusInternalServerError)
	}
}

func parseBoolParam(r *http.Request, name string) bool {
	value, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && value
}

func parseSourcesParam(r *http.Request) ([]SourceType, error) {
	var out []SourceType
	for _, raw := range r.URL.Query()["sources"] {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			st, err := ParseSourceType(part)
			if err != nil {
				return nil, err
			}
			out = append(out, st)
		}
	}
	return out, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rcallahan/dispatch-relay-service/internal/hazmat"
	"github.com/rcallahan/dispatch-relay-service/internal/incidents"
	"github.com/rcallahan/dispatch-relay-service/internal/interactions"
	"github.com/rcallahan/dispatch-relay-service/internal/routing"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	router       *routing.Router
	hazmat       *hazmat.Service
	interactions *interactions.Client
	incidents    *incidents.Client
	logger       *zap.Logger
	// CachePing, when set, is called by the health check. Set when the
	// cache backend is memcached.
	cachePing func() error
}

// NewHandler returns a new Handler.
func NewHandler(
	router *routing.Router,
	hazmatSvc *hazmat.Service,
	interactionsClient *interactions.Client,
	incidentsClient *incidents.Client,
	logger *zap.Logger,
	cachePing func() error,
) *Handler {
	return &Handler{
		router:       router,
		hazmat:       hazmatSvc,
		interactions: interactionsClient,
		incidents:    incidentsClient,
		logger:       logger,
		cachePing:    cachePing,
	}
}

// GetRoute handles GET /route/{category}: dispatch the category through the
// failover-aware router and return whatever the winning backend produced.
func (h *Handler) GetRoute(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(mux.Vars(r)["category"])
	if err := validateIdentifier(category); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CATEGORY", err.Error())
		return
	}

	result, err := h.router.Route(r.Context(), category)
	if err != nil {
		var exhausted *routing.ExhaustedError
		if errors.As(err, &exhausted) {
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error": map[string]interface{}{
					"code":       "ROUTING_EXHAUSTED",
					"message":    "all backends failed",
					"category":   exhausted.Category,
					"candidates": exhausted.Candidates,
					"requestId":  correlationID(r),
				},
			})
			return
		}
		writeError(w, r, http.StatusInternalServerError, "ROUTING_ERROR", "routing failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"category": category,
		"result":   result,
	})
}

// GetHazmat handles GET /hazmat/{unna}.
func (h *Handler) GetHazmat(w http.ResponseWriter, r *http.Request) {
	unna := strings.TrimSpace(mux.Vars(r)["unna"])
	if err := validateUNNA(unna); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNNA", err.Error())
		return
	}

	rec, err := h.hazmat.Lookup(r.Context(), unna)
	if err != nil {
		if errors.Is(err, hazmat.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "UNNA_NOT_FOUND", "no entry for "+hazmat.NormalizeUNNA(unna))
			return
		}
		h.loggerFor(r).Error("hazmat lookup failed", zap.String("unna", unna), zap.Error(err))
		writeError(w, r, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "hazmat dataset unavailable")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// GetInteractions handles GET /interactions?drug1=...&drug2=...
func (h *Handler) GetInteractions(w http.ResponseWriter, r *http.Request) {
	drug1 := strings.TrimSpace(r.URL.Query().Get("drug1"))
	drug2 := strings.TrimSpace(r.URL.Query().Get("drug2"))
	if drug1 == "" || drug2 == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_DRUGS", "drug1 and drug2 are required")
		return
	}

	result, err := h.interactions.Check(r.Context(), drug1, drug2)
	if err != nil {
		// Only context cancellation reaches here; upstream failures are
		// folded into the result.
		writeError(w, r, http.StatusServiceUnavailable, "CHECK_ABORTED", "interaction check aborted")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetIncidents handles GET /incidents?location=...
func (h *Handler) GetIncidents(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_LOCATION", "location is required")
		return
	}

	list, err := h.incidents.Fetch(r.Context(), location)
	if err != nil {
		h.loggerFor(r).Error("incident fetch failed", zap.String("location", location), zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "FEED_ERROR", "incident feed error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"location":  location,
		"incidents": list,
	})
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	statusCode := http.StatusOK
	checks := make(map[string]string)

	if h.cachePing != nil {
		if h.cachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "dispatch-relay-service",
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// loggerFor returns the correlation-scoped logger from the request context,
// falling back to the handler's own.
func (h *Handler) loggerFor(r *http.Request) *zap.Logger {
	if v := r.Context().Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	if h.logger != nil {
		return h.logger
	}
	return zap.NewNop()
}

// validateIdentifier accepts category names: letters, digits, underscore,
// hyphen, 1-64 runes.
func validateIdentifier(s string) error {
	if s == "" {
		return errors.New("category is required")
	}
	if len(s) > 64 {
		return errors.New("category too long")
	}
	for _, c := range s {
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '-' {
			return errors.New("category contains invalid characters")
		}
	}
	return nil
}

// validateUNNA accepts UN/NA numbers: 1-4 digits before normalization.
func validateUNNA(s string) error {
	if s == "" {
		return errors.New("un/na number is required")
	}
	if len(s) > 4 {
		return errors.New("un/na number too long")
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return errors.New("un/na number must be digits")
		}
	}
	return nil
}

func correlationID(r *http.Request) string {
	if v := r.Context().Value("correlation_id"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with
// code, message and requestId (correlation ID) if available.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": correlationID(r),
		},
	})
}

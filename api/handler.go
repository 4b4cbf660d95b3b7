// Package api provides the HTTP surface for Hookline: event ingestion,
// subscription management, catalog administration, and delivery log reads.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"

	hookline "github.com/hookline/hookline"
)

// Handler is the root HTTP handler for the Hookline API.
type Handler struct {
	hl     *hookline.Hookline
	logger *slog.Logger
	router *mux.Router
}

// NewHandler creates the API handler on top of a wired Hookline instance.
func NewHandler(hl *hookline.Hookline, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		hl:     hl,
		logger: logger,
		router: mux.NewRouter(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) registerRoutes() {
	r := h.router

	// Events
	r.HandleFunc("/events", h.ingestEvent).Methods(http.MethodPost)
	r.HandleFunc("/events", h.listEvents).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}", h.getEvent).Methods(http.MethodGet)
	r.HandleFunc("/events/{id}/delivery-logs", h.listEventDeliveryLogs).Methods(http.MethodGet)

	// Delivery logs
	r.HandleFunc("/delivery-logs/{id}", h.getDeliveryLog).Methods(http.MethodGet)
	r.HandleFunc("/delivery-logs/{id}/retry", h.retryDelivery).Methods(http.MethodPost)

	// Subscriptions
	r.HandleFunc("/subscriptions", h.createSubscription).Methods(http.MethodPost)
	r.HandleFunc("/subscriptions", h.listSubscriptions).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}", h.getSubscription).Methods(http.MethodGet)
	r.HandleFunc("/subscriptions/{id}", h.updateSubscription).Methods(http.MethodPut)
	r.HandleFunc("/subscriptions/{id}", h.deleteSubscription).Methods(http.MethodDelete)
	r.HandleFunc("/subscriptions/{id}/activate", h.activateSubscription).Methods(http.MethodPatch)
	r.HandleFunc("/subscriptions/{id}/deactivate", h.deactivateSubscription).Methods(http.MethodPatch)

	// Catalog
	r.HandleFunc("/event-types", h.registerEventType).Methods(http.MethodPost)
	r.HandleFunc("/event-types", h.listEventTypes).Methods(http.MethodGet)
	r.HandleFunc("/event-types/{name}", h.getEventType).Methods(http.MethodGet)
	r.HandleFunc("/event-types/{name}", h.deprecateEventType).Methods(http.MethodDelete)
	r.HandleFunc("/source-modules", h.registerSourceModule).Methods(http.MethodPost)
	r.HandleFunc("/source-modules", h.listSourceModules).Methods(http.MethodGet)

	// Stats
	r.HandleFunc("/stats", h.getStats).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.panicRecovery(h.logging(h.router)).ServeHTTP(w, r)
}

func (h *Handler) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		h.logger.InfoContext(r.Context(), "api request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (h *Handler) panicRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.logger.ErrorContext(r.Context(), "panic recovered",
					"error", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// JSON helpers.

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best effort
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryParam returns a query parameter value, or empty string if not present.
func queryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryInt returns a query parameter as int or a default value.
func queryInt(r *http.Request, key string, defaultVal int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultVal
	}
	var n int
	for _, c := range v {
		if c < '0' || c > '9' {
			return defaultVal
		}
		n = n*10 + int(c-'0')
	}
	return n
}

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"quantcal/internal/calendar"
	"quantcal/pkg/quantcal"
)

// CalendarHandler serves the calendar HTTP API.
type CalendarHandler struct {
	q   *Querier
	log *slog.Logger
}

// NewCalendarHandler creates a handler over the loaded calendars.
func NewCalendarHandler(set *calendar.Set, log *slog.Logger) *CalendarHandler {
	if log == nil {
		log = slog.Default()
	}
	return &CalendarHandler{q: NewQuerier(set), log: log}
}

// RegisterRoutes registers all API routes on the given mux.
func (h *CalendarHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/calendars", h.handleCalendars)
	mux.HandleFunc("GET /api/calendars/{market}/trading", serve(h, h.q.Trading))
	mux.HandleFunc("GET /api/calendars/{market}/trading-day", serve(h, h.q.TradingDay))
	mux.HandleFunc("GET /api/calendars/{market}/session", serve(h, h.q.Session))
	mux.HandleFunc("GET /api/calendars/{market}/open-close", serve(h, h.q.OpenClose))
	mux.HandleFunc("GET /api/calendars/{market}/bartime", serve(h, h.q.BarTime))
	mux.HandleFunc("GET /api/calendars/{market}/bartimes", serve(h, h.q.BarTimes))
	mux.HandleFunc("GET /api/calendars/{market}/grid", serve(h, h.q.Grid))
}

// Handler returns an http.Handler with CORS middleware.
func (h *CalendarHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func (h *CalendarHandler) handleCalendars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.q.Calendars())
}

// serve adapts a market query to an http.HandlerFunc.
func serve[T any](h *CalendarHandler, fn func(market string, p Params) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		market := r.PathValue("market")
		resp, err := fn(market, r.URL.Query())
		if err != nil {
			status := statusOf(err)
			if status == http.StatusInternalServerError {
				h.log.Error("calendar query", "path", r.URL.Path, "error", err)
			} else {
				h.log.Debug("calendar query rejected", "path", r.URL.Path, "status", status, "error", err)
			}
			writeError(w, status, err.Error())
			return
		}
		writeJSON(w, resp)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(quantcal.ErrorResponse{Error: msg})
}

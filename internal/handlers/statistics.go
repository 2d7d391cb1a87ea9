package handlers

import (
	"net/http"
	"strconv"
	"time"

	"finance-tracker/internal/log"
	"finance-tracker/internal/services"
)

// Summary returns income, expense and balance totals with per-category and
// per-month breakdowns. Optional year and month query parameters narrow the
// period; invalid values are ignored.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	var period services.Period

	if y, err := strconv.Atoi(r.URL.Query().Get("year")); err == nil && y > 0 {
		period.Year = y
		if m, err := strconv.Atoi(r.URL.Query().Get("month")); err == nil && m >= 1 && m <= 12 {
			period.Month = time.Month(m)
		}
	}

	sum, err := h.svc.Summary.Summary(r.Context(), GetUserFromContext(r).ID, period)
	if err != nil {
		h.writeError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// Healthz reports that the process is up.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports whether storage answers.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"storage": "ok"}
	status, code := "ready", http.StatusOK

	if h.svc.Storage != nil {
		if err := h.svc.Storage.Ping(r.Context()); err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentStorage).
				WarnContext(r.Context(), "Readiness check failed", log.FieldError, err.Error())
			checks["storage"] = "unavailable"
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, map[string]any{"status": status, "checks": checks})
}

package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chantierpro/internal/analytics"
)

// handleAnalytics serves the full dashboard report.
// Query parameters: period (month, quarter, year, trailing12, all,
// start_end) plus start/end in YYYY-MM-DD when period=start_end.
// The default is the current month.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	sel, err := parseSelector(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.analytics.Report(r.Context(), sel)
	if err != nil {
		if strings.Contains(err.Error(), "resolve period") || strings.Contains(err.Error(), "unknown period") {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Analytics report failed", "error", err, "period", sel.Period)
		writeError(w, http.StatusInternalServerError, "could not build report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func parseSelector(r *http.Request) (analytics.Selector, error) {
	q := r.URL.Query()

	sel := analytics.Selector{Period: analytics.PeriodMonth}
	if p := strings.TrimSpace(q.Get("period")); p != "" {
		sel.Period = analytics.Period(p)
	}

	if sel.Period == analytics.PeriodRange {
		start, err := time.Parse("2006-01-02", q.Get("start"))
		if err != nil {
			return analytics.Selector{}, errInvalidDateParam("start", q.Get("start"))
		}
		end, err := time.Parse("2006-01-02", q.Get("end"))
		if err != nil {
			return analytics.Selector{}, errInvalidDateParam("end", q.Get("end"))
		}
		// The end day counts in full.
		sel.Start = start
		sel.End = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	return sel, nil
}

func errInvalidDateParam(param, value string) error {
	return fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", param, value)
}

// Package analytics turns raw business collections into the dashboard
// report: KPIs, prior-period comparisons, rankings, distributions and the
// monthly time series.
//
// BuildReport is a pure function over an immutable Snapshot; callers that
// recompute on every render should memoize through ReportCache.
package analytics

import (
	"fmt"
	"time"
)

// Period selects the reporting window relative to "now".
type Period string

const (
	PeriodMonth      Period = "month"
	PeriodQuarter    Period = "quarter"
	PeriodYear       Period = "year"
	PeriodTrailing12 Period = "trailing12"
	PeriodAll        Period = "all"
	// PeriodRange uses the explicit Start/End of the Selector.
	PeriodRange Period = "start_end"
)

// Selector is the full period choice: a named window, or PeriodRange with
// explicit bounds.
type Selector struct {
	Period Period
	Start  time.Time
	End    time.Time
}

// Range is a resolved inclusive [Start, End] window. All disables filtering
// entirely; no prior window exists for it.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	All   bool      `json:"all"`
}

// Contains reports whether t falls inside the window, bounds included.
func (r Range) Contains(t time.Time) bool {
	if r.All {
		return true
	}
	return !t.Before(r.Start) && !t.After(r.End)
}

// ResolveRange computes the concrete window for a selector. Calendar periods
// snap to month/quarter/year boundaries; trailing12 is a rolling window
// ending now.
func (s Selector) ResolveRange(now time.Time) (Range, error) {
	switch s.Period {
	case PeriodMonth:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Range{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Nanosecond)}, nil
	case PeriodQuarter:
		qm := time.Month((int(now.Month())-1)/3*3 + 1)
		start := time.Date(now.Year(), qm, 1, 0, 0, 0, 0, now.Location())
		return Range{Start: start, End: start.AddDate(0, 3, 0).Add(-time.Nanosecond)}, nil
	case PeriodYear:
		start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
		return Range{Start: start, End: start.AddDate(1, 0, 0).Add(-time.Nanosecond)}, nil
	case PeriodTrailing12:
		return Range{Start: now.AddDate(0, -12, 0), End: now}, nil
	case PeriodAll:
		return Range{All: true}, nil
	case PeriodRange:
		if s.End.Before(s.Start) {
			return Range{}, fmt.Errorf("range end %s before start %s", s.End.Format("2006-01-02"), s.Start.Format("2006-01-02"))
		}
		return Range{Start: s.Start, End: s.End}, nil
	default:
		return Range{}, fmt.Errorf("unknown period %q", s.Period)
	}
}

// PriorRange returns the window immediately preceding r with the exact same
// duration. This is deliberately duration-preserving, not calendar-aligned:
// a 31-day month is compared against the preceding 31 days, which keeps
// percentage comparisons mathematically consistent even when the previous
// calendar month is shorter. Do not "fix" this to calendar alignment.
func PriorRange(r Range) (Range, bool) {
	if r.All {
		return Range{}, false
	}
	duration := r.End.Sub(r.Start)
	prevEnd := r.Start.Add(-time.Nanosecond)
	return Range{Start: prevEnd.Add(-duration), End: prevEnd}, true
}

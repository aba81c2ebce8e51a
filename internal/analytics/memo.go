package analytics

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"chantierpro/internal/core"
)

// ReportCache memoizes BuildReport results keyed by a content fingerprint of
// the snapshot plus the period selector. The aggregator itself stays
// stateless; a miss just recomputes.
type ReportCache struct {
	cache *gocache.Cache
}

// NewReportCache creates a cache whose entries expire after ttl. Reports are
// cheap to rebuild, so a short ttl bounds staleness when callers fingerprint
// imprecisely.
func NewReportCache(ttl time.Duration) *ReportCache {
	return &ReportCache{cache: gocache.New(ttl, 2*ttl)}
}

// Get returns the memoized report for (snap, sel), computing and storing it
// on a miss. now is truncated to the hour in the key so clock ticks inside
// the same hour do not defeat memoization for calendar periods.
func (rc *ReportCache) Get(snap Snapshot, sel Selector, now time.Time) (Report, error) {
	key := cacheKey(snap, sel, now)
	if v, ok := rc.cache.Get(key); ok {
		return v.(Report), nil
	}

	report, err := BuildReport(snap, sel, now)
	if err != nil {
		return Report{}, err
	}
	rc.cache.Set(key, report, gocache.DefaultExpiration)
	return report, nil
}

// Flush drops every memoized report.
func (rc *ReportCache) Flush() {
	rc.cache.Flush()
}

func cacheKey(snap Snapshot, sel Selector, now time.Time) string {
	h := fnv.New64a()

	put := func(parts ...string) {
		for _, p := range parts {
			h.Write([]byte(p))
			h.Write([]byte{0})
		}
	}
	money := func(m core.Money) string { return strconv.FormatInt(m.Cents, 10) }
	date := func(t time.Time) string { return strconv.FormatInt(t.UnixNano(), 10) }

	for _, d := range snap.Documents {
		put(d.ID, string(d.Status), date(d.Date), money(d.Totals.TTCGross), d.ClientID, d.ProjectID)
	}
	for _, e := range snap.Expenses {
		put(e.ID, date(e.Date), money(e.Amount), e.Category, e.ProjectID)
	}
	for _, p := range snap.Payments {
		put(p.ID, date(p.Date), money(p.Amount))
	}
	for _, p := range snap.Projects {
		put(p.ID, p.Name, string(p.Status), p.ClientID,
			money(p.BudgetEstimate), strconv.FormatFloat(p.Completion, 'g', -1, 64))
	}
	for _, c := range snap.Clients {
		put(c.ID, c.FirstName, c.LastName)
	}

	put(string(sel.Period), date(sel.Start), date(sel.End))
	put(now.Truncate(time.Hour).Format(time.RFC3339))

	return fmt.Sprintf("%x", h.Sum64())
}

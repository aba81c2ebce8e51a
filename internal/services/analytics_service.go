package services

import (
	"context"
	"fmt"
	"time"

	"chantierpro/internal/analytics"
	"chantierpro/internal/storage"
)

// AnalyticsService loads a snapshot from the store and serves memoized
// reports over it.
type AnalyticsService struct {
	store storage.Store
	cache *analytics.ReportCache
	now   func() time.Time
}

func NewAnalyticsService(store storage.Store, cacheTTL time.Duration) *AnalyticsService {
	return &AnalyticsService{
		store: store,
		cache: analytics.NewReportCache(cacheTTL),
		now:   time.Now,
	}
}

// Report computes the analytics report for the selector. Identical
// snapshot and selector pairs within the cache TTL are served from memory.
func (s *AnalyticsService) Report(ctx context.Context, sel analytics.Selector) (analytics.Report, error) {
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return analytics.Report{}, fmt.Errorf("load snapshot: %w", err)
	}
	return s.cache.Get(snap, sel, s.now())
}

// Invalidate drops every memoized report. Keys fingerprint the snapshot
// content, so this is about reclaiming memory after bulk writes, not
// about staleness.
func (s *AnalyticsService) Invalidate() {
	s.cache.Flush()
}

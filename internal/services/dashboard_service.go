package services

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"seppe/internal/cache"
	"seppe/internal/core"
	"seppe/internal/dashboard"
	"seppe/internal/metrics"
	"seppe/internal/store"
)

// DashboardService serves filtered views of the active dataset. Views are
// memoized per dataset version and filter set.
type DashboardService struct {
	store   *store.Store
	views   cache.Cache[dashboard.View]
	group   singleflight.Group
	metrics *metrics.Metrics
}

// NewDashboardService builds the read path. A nil cache disables memoization.
func NewDashboardService(st *store.Store, views cache.Cache[dashboard.View], m *metrics.Metrics) *DashboardService {
	return &DashboardService{store: st, views: views, metrics: m}
}

// View returns the dashboard for the records whose secretariat is in
// selected, or for all records when selected is empty. Returned views may
// be shared between callers and must not be modified.
func (s *DashboardService) View(ctx context.Context, selected []string) (dashboard.View, error) {
	if err := ctx.Err(); err != nil {
		return dashboard.View{}, err
	}
	filters := NormalizeFilters(selected)

	if s.views == nil {
		snap := s.store.Snapshot()
		return dashboard.BuildView(snap.Records, filters), nil
	}

	key := viewKey(s.store.Version(), filters)
	if v, ok := s.views.Get(key); ok {
		s.metrics.ViewCacheHit()
		return v, nil
	}
	s.metrics.ViewCacheMiss()

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		snap := s.store.Snapshot()
		view := dashboard.BuildView(snap.Records, filters)
		// Keyed by the version actually read, which may be newer than key.
		s.views.Set(viewKey(snap.Version, filters), view)
		return view, nil
	})
	if err != nil {
		return dashboard.View{}, err
	}
	return v.(dashboard.View), nil
}

// Records returns the filtered active records in import order.
func (s *DashboardService) Records(ctx context.Context, selected []string) ([]core.ProjectRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.FilteredView(NormalizeFilters(selected)), nil
}

// Meta exposes the active dataset metadata and its record count.
func (s *DashboardService) Meta() (store.Snapshot, int) {
	return s.store.Meta()
}

// Invalidate drops every memoized view.
func (s *DashboardService) Invalidate(store.Snapshot) {
	if s.views != nil {
		s.views.Purge()
	}
}

// NormalizeFilters sorts and deduplicates secretariat labels and drops
// blank ones, so equal filter sets share a cache entry. A selection made
// only of blanks (an empty ?secretariat=) normalizes to no filter and
// shows every record.
func NormalizeFilters(selected []string) []string {
	out := make([]string, 0, len(selected))
	for _, s := range selected {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func viewKey(version uint64, filters []string) string {
	return strconv.FormatUint(version, 10) + "|" + strings.Join(filters, "\x1f")
}

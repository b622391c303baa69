// Package dashboard holds the pure filtering and aggregation functions
// behind the dashboard views. Nothing here mutates its input.
package dashboard

import (
	"sort"
	"strings"

	"seppe/internal/core"
)

// FilterByGroups keeps the records whose secretariat is selected, in input
// order. An empty selection returns records unchanged.
func FilterByGroups(records []core.ProjectRecord, selected []string) []core.ProjectRecord {
	if len(selected) == 0 {
		return records
	}
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		set[s] = struct{}{}
	}
	out := make([]core.ProjectRecord, 0, len(records))
	for _, r := range records {
		if _, ok := set[r.Secretariat]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ComputeKpis returns the headline numbers. The average of an empty set is 0.
func ComputeKpis(records []core.ProjectRecord) core.Kpis {
	k := core.Kpis{Total: len(records)}
	if len(records) == 0 {
		return k
	}
	var sum float64
	for _, r := range records {
		sum += r.ExecutionPercentage
		switch r.Status {
		case core.StatusCompleted:
			k.CompletedCount++
		case core.StatusInProgress:
			k.InProgressCount++
		}
	}
	k.AverageExecution = sum / float64(len(records))
	return k
}

// GroupOf returns the organizational unit text before the first separator,
// or the whole unit when that prefix is empty.
func GroupOf(unit string) string {
	prefix, _, _ := strings.Cut(unit, core.LabelSeparator)
	if prefix == "" {
		return unit
	}
	return prefix
}

// ComputeGroupAverages averages execution per unit group, highest first.
// Ties keep first-encounter order.
func ComputeGroupAverages(records []core.ProjectRecord) []core.GroupAverage {
	type acc struct {
		sum   float64
		count int
	}
	var order []string
	groups := make(map[string]*acc)
	for _, r := range records {
		g := GroupOf(r.OrganizationalUnit)
		a, ok := groups[g]
		if !ok {
			a = &acc{}
			groups[g] = a
			order = append(order, g)
		}
		a.sum += r.ExecutionPercentage
		a.count++
	}

	out := make([]core.GroupAverage, 0, len(order))
	for _, g := range order {
		a := groups[g]
		out = append(out, core.GroupAverage{Group: g, Average: a.sum / float64(a.count), Count: a.count})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Average > out[j].Average })
	return out
}

// ComputeStatusDistribution counts records per status. It always returns
// one entry per status in core.AllStatuses order.
func ComputeStatusDistribution(records []core.ProjectRecord) []core.StatusCount {
	counts := make(map[core.Status]int, 5)
	for _, r := range records {
		counts[r.Status]++
	}
	statuses := core.AllStatuses()
	out := make([]core.StatusCount, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, core.StatusCount{Status: s, Label: s.Label(), Count: counts[s]})
	}
	return out
}

// DefaultRecentLimit is the number of deliveries listed in the table view.
const DefaultRecentLimit = 10

// RecentDeliveries returns the first limit records. A non-positive limit
// means DefaultRecentLimit.
func RecentDeliveries(records []core.ProjectRecord, limit int) []core.ProjectRecord {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if len(records) < limit {
		limit = len(records)
	}
	return records[:limit:limit]
}

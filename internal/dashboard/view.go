package dashboard

import (
	"math"

	"seppe/internal/core"
)

// View is everything the dashboard page renders for one filter selection.
type View struct {
	Filters            []string             `json:"filters"`
	Kpis               core.Kpis            `json:"kpis"`
	GroupAverages      []core.GroupAverage  `json:"group_averages"`
	StatusDistribution []core.StatusCount   `json:"status_distribution"`
	Recent             []core.ProjectRecord `json:"recent"`
}

// BuildView filters records and computes every aggregate over the result.
// Group averages are rounded to two decimals for display.
func BuildView(records []core.ProjectRecord, selected []string) View {
	filtered := FilterByGroups(records, selected)

	averages := ComputeGroupAverages(filtered)
	for i := range averages {
		averages[i].Average = Round2(averages[i].Average)
	}

	filters := selected
	if filters == nil {
		filters = []string{}
	}
	recent := RecentDeliveries(filtered, DefaultRecentLimit)
	if recent == nil {
		recent = []core.ProjectRecord{}
	}

	return View{
		Filters:            filters,
		Kpis:               ComputeKpis(filtered),
		GroupAverages:      averages,
		StatusDistribution: ComputeStatusDistribution(filtered),
		Recent:             recent,
	}
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package core

// Kpis are the headline numbers of the dashboard.
type Kpis struct {
	Total            int     `json:"total"`
	AverageExecution float64 `json:"average_execution"`
	CompletedCount   int     `json:"completed_count"`
	InProgressCount  int     `json:"in_progress_count"`
}

// GroupAverage is the mean execution of one organizational-unit group.
type GroupAverage struct {
	Group   string  `json:"group"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// StatusCount is one slice of the status distribution.
type StatusCount struct {
	Status Status `json:"status"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

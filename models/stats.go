package models

// HourlyCount is one histogram slot: how many entries were serviced
// during local hour Hour (0-23) today.
type HourlyCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// StatsSnapshot is derived from the service log on demand and never
// persisted. HourlyHistogram carries all 24 slots when ServicedToday > 0
// and is empty otherwise; PeakHour is -1 when there is no data.
type StatsSnapshot struct {
	ServicedToday            int           `json:"servicedToday"`
	AverageServiceDurationMs float64       `json:"averageServiceDurationMs"`
	HourlyHistogram          []HourlyCount `json:"hourlyHistogram"`
	PeakHour                 int           `json:"peakHour"`
}

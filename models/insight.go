package models

// SeriesSummary describes one metric across its time axis.
type SeriesSummary struct {
	Metric     string  `json:"metric"`
	IsPercent  bool    `json:"is_percent"`
	Points     int     `json:"points"`
	FirstTime  float64 `json:"first_time"`
	LastTime   float64 `json:"last_time"`
	FirstValue float64 `json:"first_value"`
	LastValue  float64 `json:"last_value"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
	Change     float64 `json:"change"`
}

// InsightReport holds the computed overview of a long table.
type InsightReport struct {
	Source      string          `json:"source"`
	Page        int             `json:"page"`
	Orientation Orientation     `json:"orientation,omitempty"`
	TimeColumn  string          `json:"time_column,omitempty"`
	TimeFrom    float64         `json:"time_from"`
	TimeTo      float64         `json:"time_to"`
	Records     int             `json:"records"`
	Series      []SeriesSummary `json:"series"`
	Biggest     *SeriesSummary  `json:"biggest,omitempty"`
}

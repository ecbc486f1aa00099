package server

import "report-tables/models"

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Candidate describes one extracted table the caller can force with `table`.
type Candidate struct {
	Number int    `json:"number"`
	Page   int    `json:"page"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Label  string `json:"label"`
}

// CleanPreview is the head of the chosen clean table.
type CleanPreview struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	TotalRows int        `json:"total_rows"`
}

// SelectResponse is the body of POST /api/v1/tables/select.
type SelectResponse struct {
	RunID      string                  `json:"run_id"`
	Source     string                  `json:"source"`
	Candidates []Candidate             `json:"candidates"`
	Chosen     int                     `json:"chosen"`
	Found      bool                    `json:"found"`
	Message    string                  `json:"message,omitempty"`
	Clean      CleanPreview            `json:"clean"`
	Long       *models.LongTableResult `json:"long"`
	Insights   *models.InsightReport   `json:"insights"`
}

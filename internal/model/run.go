package model

import "time"

// RunStatus represents the current state of a persisted scoring run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single scoring pipeline execution persisted to the store.
type Run struct {
	ID            string     `json:"id"`
	Status        RunStatus  `json:"status"`
	ReferenceDate time.Time  `json:"reference_date"`
	InputPath     string     `json:"input_path,omitempty"`
	Result        *RunResult `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// RunResult summarizes a completed run.
type RunResult struct {
	Districts     int         `json:"districts"`
	TopDistrictID string      `json:"top_district_id"`
	TopCPS        float64     `json:"top_cps"`
	MeanCPS       float64     `json:"mean_cps"`
	TierCounts    map[int]int `json:"tier_counts"`
	AuditEvents   int         `json:"audit_events"`
	MalformedRows int         `json:"malformed_rows"`
}

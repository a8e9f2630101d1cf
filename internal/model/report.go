package model

import "time"

// OutcomeStatus classifies how a single document fared in a run
type OutcomeStatus string

const (
	OutcomeOK      OutcomeStatus = "ok"
	OutcomeSkipped OutcomeStatus = "skipped" // Expected gap, e.g. image-only PDF
	OutcomeFailed  OutcomeStatus = "failed"  // Defect needing operator attention
)

// DocumentOutcome is the per-document line of a run report
type DocumentOutcome struct {
	Index       int           `json:"index"` // Position in catalog order
	Href        string        `json:"href"`
	ID          string        `json:"id,omitempty"`
	URL         string        `json:"url,omitempty"`
	SourceType  SourceType    `json:"source_type,omitempty"`
	Status      OutcomeStatus `json:"status"`
	Provisions  int           `json:"provisions"`
	Definitions int           `json:"definitions"`
	Method      string        `json:"method,omitempty"` // PDF extraction method
	Warnings    []string      `json:"warnings,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}

// RunReport aggregates the outcomes of one ingestion run
type RunReport struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Success int `json:"success"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`

	SuccessBySource map[SourceType]int `json:"success_by_source"`

	TotalProvisions  int `json:"total_provisions"`
	TotalDefinitions int `json:"total_definitions"`

	Documents []DocumentOutcome `json:"documents"`
}

// NewRunReport creates an empty report for the given run
func NewRunReport(runID string, startedAt time.Time) *RunReport {
	return &RunReport{
		RunID:           runID,
		StartedAt:       startedAt,
		SuccessBySource: make(map[SourceType]int),
		Documents:       []DocumentOutcome{},
	}
}

// Record adds a document outcome and updates the aggregate counters
func (r *RunReport) Record(outcome DocumentOutcome) {
	switch outcome.Status {
	case OutcomeOK:
		r.Success++
		if outcome.SourceType != "" {
			r.SuccessBySource[outcome.SourceType]++
		}
		r.TotalProvisions += outcome.Provisions
		r.TotalDefinitions += outcome.Definitions
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
	r.Documents = append(r.Documents, outcome)
}

// HardFailures is the count an operator has to look at
func (r *RunReport) HardFailures() int {
	return r.Failed
}

// Total returns the number of documents attempted
func (r *RunReport) Total() int {
	return len(r.Documents)
}

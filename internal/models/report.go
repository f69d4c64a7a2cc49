// ABOUTME: IngestReport summarizes one ingestion run across all configured sources
// ABOUTME: SourceOutcome records success, skip, or failure for a single page
package models

import "time"

// SourceStatus is the outcome of ingesting one source
type SourceStatus string

const (
	SourceSucceeded SourceStatus = "success"
	SourceSkipped   SourceStatus = "skipped"
	SourceFailed    SourceStatus = "failed"
)

// SourceOutcome is the per-source entry of an IngestReport
type SourceOutcome struct {
	Locator string       `json:"locator"`
	URL     string       `json:"url,omitempty"`
	Status  SourceStatus `json:"status"`
	Chunks  int          `json:"chunks"`
	Reason  string       `json:"reason,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// IngestReport is returned at the end of an ingestion run
type IngestReport struct {
	RunID       string          `json:"run_id"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
	TotalChunks int             `json:"total_chunks"`
	Sources     []SourceOutcome `json:"sources"`
}

// Record appends an outcome and updates the running chunk total
func (r *IngestReport) Record(outcome SourceOutcome) {
	if outcome.Status == SourceSucceeded {
		r.TotalChunks += outcome.Chunks
	}
	r.Sources = append(r.Sources, outcome)
}

// Count returns how many sources ended with the given status
func (r *IngestReport) Count(status SourceStatus) int {
	n := 0
	for _, s := range r.Sources {
		if s.Status == status {
			n++
		}
	}
	return n
}

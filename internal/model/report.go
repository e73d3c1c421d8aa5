package model

// RunStatus is the terminal state of a pipeline run.
type RunStatus string

const (
	StatusSuccess        RunStatus = "success"
	StatusPartialFailure RunStatus = "partial_failure"
	StatusFailure        RunStatus = "failure"
)

// RecordFailure identifies one record that a stage could not process.
type RecordFailure struct {
	Stage     string
	VacancyID string
	Err       error
}

// Report summarizes a pipeline run. Every run produces one, including runs
// that abort: counts reflect whatever work completed before the failure.
type Report struct {
	Status            RunStatus
	PagesFetched      int
	Fetched           int
	Inserted          int
	DuplicatesSkipped int
	Normalized        int
	Enriched          int
	Failures          []RecordFailure
}

// AddFailure records a per-record failure without aborting the stage.
func (r *Report) AddFailure(stage, id string, err error) {
	r.Failures = append(r.Failures, RecordFailure{Stage: stage, VacancyID: id, Err: err})
}

package scheduler

// Status is the execution state of a single node within a run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped, StatusCancelled:
		return true
	}
	return false
}

// statusCode is the atomic storage form of Status.
type statusCode int32

const (
	codeIdle statusCode = iota
	codeQueued
	codeRunning
	codeSucceeded
	codeFailed
	codeSkipped
	codeCancelled
)

var statusNames = [...]Status{
	codeIdle:      StatusIdle,
	codeQueued:    StatusQueued,
	codeRunning:   StatusRunning,
	codeSucceeded: StatusSucceeded,
	codeFailed:    StatusFailed,
	codeSkipped:   StatusSkipped,
	codeCancelled: StatusCancelled,
}

// Event is one entry of the run's status stream. For a given node, events
// arrive strictly in queued -> running -> terminal order; events across
// independent nodes interleave arbitrarily.
type Event struct {
	NodeID string `json:"nodeId"`
	Status Status `json:"status"`
	Output any    `json:"output,omitempty"`
	Err    string `json:"error,omitempty"`
}

// Outcome summarizes a whole run.
type Outcome string

const (
	// OutcomeSucceeded means every node succeeded.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeCompletedWithFailures means at least one node failed or was
	// skipped while independent branches completed.
	OutcomeCompletedWithFailures Outcome = "completed-with-failures"
	// OutcomeFailed means a structural error aborted the run before any
	// executor was invoked.
	OutcomeFailed Outcome = "failed"
	// OutcomeCancelled means the run's cancellation signal was observed.
	OutcomeCancelled Outcome = "cancelled"
)

// RunResult is the deterministic terminal record of a run.
type RunResult struct {
	Outcome Outcome           `json:"outcome"`
	States  map[string]Status `json:"states"`
	Outputs map[string]any    `json:"outputs,omitempty"`
	Errs    map[string]error  `json:"-"`
}

// Errors returns the per-node error messages in a serializable form.
func (r *RunResult) Errors() map[string]string {
	if len(r.Errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(r.Errs))
	for id, err := range r.Errs {
		out[id] = err.Error()
	}
	return out
}

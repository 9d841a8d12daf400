package store

// RunRecord is one submitted request and its lifecycle.
type RunRecord struct {
	ID         string `json:"id"`
	Prompt     string `json:"prompt"`
	Status     string `json:"status"` // running, completed, failed
	CreatedAt  string `json:"created_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

// StepRecord is the persisted outcome of one executed step.
type StepRecord struct {
	ID       int    `json:"id"`
	RunID    string `json:"run_id"`
	Position int    `json:"position"`
	Agent    string `json:"agent"`
	Action   string `json:"action"`
	Status   string `json:"status"`
	Result   string `json:"result"`
}

// Schedule re-submits a stored prompt on a fixed interval. An interval of
// zero means run once and remove.
type Schedule struct {
	ID              int    `json:"id"`
	Prompt          string `json:"prompt"`
	IntervalSeconds int    `json:"interval_seconds"`
	Status          string `json:"status,omitempty"`
}

package plan

// StepStatus tracks a step through its lifecycle.
type StepStatus string

const (
	StatusPending    StepStatus = "pending"
	StatusInProgress StepStatus = "in-progress"
	StatusCompleted  StepStatus = "completed"
	StatusFailed     StepStatus = "failed"
)

// Step is one unit of work bound to an agent name and a free-text action.
// Agent keeps the raw planner-supplied name; the capability kind is derived
// from it at dispatch time.
type Step struct {
	Agent  string     `json:"agent"`
	Action string     `json:"action"`
	Status StepStatus `json:"status"`
}

// Plan is an ordered sequence of steps. Once validated it is immutable
// except for each step's status.
type Plan struct {
	Steps []*Step `json:"steps"`
}

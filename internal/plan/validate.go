package plan

import (
	"errors"
	"fmt"
	"log"
)

var (
	ErrNotAList  = errors.New("planner output is not a list")
	ErrEmptyPlan = errors.New("plan has no usable steps")
)

// Validate turns raw planner output into a Plan. Elements that are not
// objects carrying a non-empty "agent" and "action" are skipped with a
// warning; only a wholly unusable payload is fatal. A noisy planner is
// tolerated as long as at least one step survives.
func Validate(raw any) (*Plan, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrNotAList, raw)
	}

	p := &Plan{}
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			log.Printf("Warning: skipping plan entry %d: not an object", i)
			continue
		}
		agent, _ := obj["agent"].(string)
		action, _ := obj["action"].(string)
		if agent == "" || action == "" {
			log.Printf("Warning: skipping plan entry %d: missing agent or action", i)
			continue
		}
		p.Steps = append(p.Steps, &Step{Agent: agent, Action: action, Status: StatusPending})
	}

	if len(p.Steps) == 0 {
		return nil, ErrEmptyPlan
	}
	return p, nil
}

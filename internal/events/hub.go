// Package events carries plan and step lifecycle notifications from the
// engine to its observers.
package events

import (
	"sync"

	"github.com/rahul/sutra/internal/plan"
)

// Event kinds on the wire.
const (
	TypeLog          = "log"
	TypePlan         = "plan"
	TypeStatusUpdate = "status_update"
)

// Log severities.
const (
	LogInfo    = "info"
	LogSuccess = "success"
	LogError   = "error"
)

// StepView is a point-in-time snapshot of a step, safe to hand to
// subscribers while the engine keeps mutating the live plan.
type StepView struct {
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Status string `json:"status"`
}

// Event is one discriminated message on the observer stream.
type Event struct {
	Type       string     `json:"type"`
	RunID      string     `json:"run_id,omitempty"`
	Agent      string     `json:"agent,omitempty"`
	Message    string     `json:"message,omitempty"`
	LogType    string     `json:"log_type,omitempty"`
	Steps      []StepView `json:"steps,omitempty"`
	StepAction string     `json:"step_action,omitempty"`
	Status     string     `json:"status,omitempty"`
}

func NewLog(runID, agent, message, logType string) Event {
	return Event{Type: TypeLog, RunID: runID, Agent: agent, Message: message, LogType: logType}
}

func NewPlan(runID string, p *plan.Plan) Event {
	steps := make([]StepView, 0, len(p.Steps))
	for _, s := range p.Steps {
		steps = append(steps, StepView{Agent: s.Agent, Action: s.Action, Status: string(s.Status)})
	}
	return Event{Type: TypePlan, RunID: runID, Steps: steps}
}

func NewStatusUpdate(runID, stepAction string, status plan.StepStatus) Event {
	return Event{Type: TypeStatusUpdate, RunID: runID, StepAction: stepAction, Status: string(status)}
}

// subscriberBuffer bounds how far an observer may fall behind before it
// starts missing events.
const subscriberBuffer = 64

// Subscriber receives events on C until Unsubscribe closes it.
type Subscriber struct {
	C chan Event
}

// Hub fans events out to all current subscribers. Delivery is best-effort:
// a subscriber with a full buffer misses the event, publishers never block.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{C: make(chan Event, subscriberBuffer)}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.C)
}

// Publish delivers evt to every subscriber that has room for it.
func (h *Hub) Publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		select {
		case sub.C <- evt:
		default:
			// Slow observers lose events rather than stall the run.
		}
	}
}

// Close detaches and closes every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		delete(h.subs, sub)
		close(sub.C)
	}
}

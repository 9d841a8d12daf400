package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rahul/sutra/internal/events"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/oracle"
	"github.com/rahul/sutra/internal/plan"
	"github.com/rahul/sutra/internal/prompts"
	"github.com/rahul/sutra/internal/store"
)

type runState string

const (
	stateAwaitingPlan runState = "awaiting_plan"
	statePlanning     runState = "planning"
	stateExecuting    runState = "executing"
	stateDone         runState = "done"
)

var stateTransitions = map[runState][]runState{
	stateAwaitingPlan: {statePlanning},
	statePlanning:     {stateExecuting, stateDone},
	stateExecuting:    {stateDone},
	stateDone:         {},
}

type run struct {
	id      string
	state   runState
	context plan.Context
}

// Orchestrator turns a free-text request into a plan and walks it step by
// step, broadcasting progress as it goes. Step failures are recorded and the
// walk continues; only a planning failure ends a run early.
type Orchestrator struct {
	Oracle   oracle.Client
	Executor *StepExecutor
	Events   *events.Hub
	Store    *store.RunStore
	Logger   *observability.Logger
	Pacing   time.Duration
}

// Launch registers a new run and executes it in the background, returning
// the run id immediately.
func (o *Orchestrator) Launch(prompt string) string {
	runID := uuid.NewString()
	if o.Store != nil {
		if err := o.Store.CreateRun(runID, prompt); err != nil {
			log.Printf("Error recording run %s: %v", runID, err)
		}
	}
	go o.ExecuteTask(context.Background(), runID, prompt)
	return runID
}

// GeneratePlan asks the planner for a step list. The model gets one attempt;
// callers treat any failure as a failed run.
func (o *Orchestrator) GeneratePlan(ctx context.Context, prompt string) (*plan.Plan, error) {
	out, err := o.Oracle.Complete(ctx, map[string]string{"user_prompt": prompt}, prompts.Planner, true)
	if err != nil {
		return nil, err
	}
	return plan.Validate(out.JSON)
}

func (o *Orchestrator) ExecuteTask(ctx context.Context, runID, prompt string) {
	observability.RunStarted()
	defer observability.RunFinished()

	r := &run{id: runID, state: stateAwaitingPlan, context: plan.Context{}}

	o.advance(r, statePlanning)
	observability.SetPhase(observability.PhasePlanning, prompt)
	o.publishLog(runID, "System", "Generating a plan for your request...", events.LogInfo)

	p, err := o.GeneratePlan(ctx, prompt)
	if err != nil {
		o.publishLog(runID, "System", fmt.Sprintf("Planning failed: %v", err), events.LogError)
		o.finish(r, "failed")
		return
	}

	if o.Logger != nil {
		o.Logger.LogPlan(runID, len(p.Steps))
	}
	o.publish(events.NewPlan(runID, p))

	o.advance(r, stateExecuting)
	observability.SetPhase(observability.PhaseExecuting, prompt)

	for i, step := range p.Steps {
		if o.Pacing > 0 {
			time.Sleep(o.Pacing)
		}

		step.Status = plan.StatusInProgress
		o.publish(events.NewStatusUpdate(runID, step.Action, step.Status))
		o.publishLog(runID, step.Agent, fmt.Sprintf("Executing: %s", r.context.Expand(step.Action)), events.LogInfo)

		outcome := o.Executor.Execute(ctx, runID, step, r.context)

		if outcome.Succeeded {
			step.Status = plan.StatusCompleted
		} else {
			step.Status = plan.StatusFailed
		}
		o.publish(events.NewStatusUpdate(runID, step.Action, step.Status))
		if outcome.Succeeded {
			o.publishLog(runID, step.Agent, outcome.Message, events.LogSuccess)
		} else {
			o.publishLog(runID, step.Agent, outcome.Message, events.LogError)
		}

		if o.Logger != nil {
			o.Logger.LogStep(runID, step.Agent, step.Action, string(step.Status))
		}
		if o.Store != nil {
			if err := o.Store.RecordStep(runID, i, step.Agent, step.Action, string(step.Status), outcome.Message); err != nil {
				log.Printf("Error recording step for run %s: %v", runID, err)
			}
		}
	}

	o.publishLog(runID, "System", "All tasks completed.", events.LogSuccess)
	o.finish(r, "completed")
}

func (o *Orchestrator) finish(r *run, status string) {
	o.advance(r, stateDone)
	observability.SetPhase(observability.PhaseIdle, "")
	if o.Store != nil {
		if err := o.Store.FinishRun(r.id, status); err != nil {
			log.Printf("Error finishing run %s: %v", r.id, err)
		}
	}
}

func (o *Orchestrator) advance(r *run, next runState) {
	for _, allowed := range stateTransitions[r.state] {
		if allowed == next {
			r.state = next
			return
		}
	}
	log.Printf("Warning: run %s forced state transition %s -> %s", r.id, r.state, next)
	r.state = next
}

func (o *Orchestrator) publish(evt events.Event) {
	if o.Events != nil {
		o.Events.Publish(evt)
	}
}

func (o *Orchestrator) publishLog(runID, agent, message, logType string) {
	o.publish(events.NewLog(runID, agent, message, logType))
}

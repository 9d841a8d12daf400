package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rahul/sutra/internal/governance"
	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/oracle"
	"github.com/rahul/sutra/internal/plan"
	"github.com/rahul/sutra/internal/prompts"
	"github.com/rahul/sutra/internal/tools"
)

// ErrExtractionIncomplete reports that a parser reply was missing fields the
// capability needs.
var ErrExtractionIncomplete = errors.New("the model reply was missing required fields")

// Outcome is the result of executing one plan step.
type Outcome struct {
	Succeeded bool
	Message   string
}

// StepExecutor dispatches a single step to the provider behind its
// capability. A nil Policy allows everything; a nil provider fails the step
// with a configuration message.
type StepExecutor struct {
	Oracle    oracle.Client
	Providers *tools.Registry
	Policy    governance.PolicyEngine
	Logger    *observability.Logger
	SimDelay  time.Duration
	Now       func() time.Time
}

// Execute runs one step. The action has its {key} markers expanded from
// runCtx before dispatch, so providers only see concrete text. Failures come
// back as a failed Outcome rather than an error; one bad step never stops
// the surrounding run.
func (e *StepExecutor) Execute(ctx context.Context, runID string, step *plan.Step, runCtx plan.Context) Outcome {
	action := runCtx.Expand(step.Action)
	capability := plan.ParseCapability(step.Agent)

	if e.Policy != nil {
		res, err := e.Policy.Evaluate(ctx, governance.Request{
			Capability: string(capability),
			Action:     action,
			RunID:      runID,
		})
		if err != nil {
			return Outcome{Message: fmt.Sprintf("policy evaluation failed: %v", err)}
		}
		if e.Logger != nil {
			e.Logger.LogPolicyCheck(runID, string(capability), res.Reason, res.Effect == governance.EffectAllow)
		}
		if res.Effect == governance.EffectDeny {
			return Outcome{Message: res.Reason}
		}
	}

	var (
		message string
		err     error
	)
	switch capability {
	case plan.CapabilityMessaging:
		message, err = e.message(ctx, action, runCtx)
	case plan.CapabilityKnowledge:
		message, err = e.consult(ctx, action, runCtx)
	case plan.CapabilitySearch:
		message, err = e.search(ctx, action, runCtx)
	case plan.CapabilityCalendar:
		message, err = e.schedule(ctx, action)
	case plan.CapabilityCommunication:
		message, err = e.communicate(ctx, action, runCtx)
	default:
		return e.simulate(step.Agent, action)
	}
	if err != nil {
		return Outcome{Message: err.Error()}
	}
	return Outcome{Succeeded: true, Message: message}
}

func (e *StepExecutor) message(ctx context.Context, action string, runCtx plan.Context) (string, error) {
	if e.Providers == nil || e.Providers.Messenger == nil {
		return "", fmt.Errorf("%w: messaging", tools.ErrNotConfigured)
	}

	out, err := e.Oracle.Complete(ctx, map[string]string{"instruction": action}, prompts.MessagingParser, true)
	if err != nil {
		return "", fmt.Errorf("could not parse messaging action: %w", err)
	}
	channel := runCtx.Expand(stringField(out.JSON, "channel"))
	message := stringField(out.JSON, "message")
	if channel == "" || message == "" {
		return "", fmt.Errorf("%w: channel and message", ErrExtractionIncomplete)
	}

	// Outbound bodies interpolate strictly. Sending "{search_result}"
	// verbatim to a human is worse than failing the step.
	message, err = runCtx.ExpandStrict(message)
	if err != nil {
		return "", err
	}

	if err := e.Providers.Messenger.Post(ctx, channel, message); err != nil {
		return "", err
	}
	return fmt.Sprintf("Message sent to %s.", channel), nil
}

func (e *StepExecutor) consult(ctx context.Context, action string, runCtx plan.Context) (string, error) {
	if e.Providers == nil || e.Providers.Knowledge == nil {
		return "", fmt.Errorf("%w: knowledge", tools.ErrNotConfigured)
	}

	answer := e.Providers.Knowledge.Answer(ctx, action)
	runCtx["knowledge_answer"] = answer
	return answer, nil
}

func (e *StepExecutor) search(ctx context.Context, action string, runCtx plan.Context) (string, error) {
	if e.Providers == nil || e.Providers.Search == nil {
		return "", fmt.Errorf("%w: search", tools.ErrNotConfigured)
	}

	out, err := e.Oracle.Complete(ctx, map[string]string{"instruction": action}, prompts.SearchQuery, false)
	if err != nil {
		return "", fmt.Errorf("could not derive search query: %w", err)
	}
	query := strings.TrimSpace(out.Text)
	if query == "" {
		query = action
	}

	result := e.Providers.Search.Search(ctx, query)
	runCtx["search_result"] = result
	return fmt.Sprintf("Search for %q found: %s", query, truncate(result, searchPreviewChars)), nil
}

func (e *StepExecutor) schedule(ctx context.Context, action string) (string, error) {
	if e.Providers == nil || e.Providers.Calendar == nil {
		return "", fmt.Errorf("%w: calendar", tools.ErrNotConfigured)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	out, err := e.Oracle.Complete(ctx, map[string]string{
		"instruction":  action,
		"current_date": now().Format("2006-01-02 (Monday)"),
	}, prompts.CalendarParser, true)
	if err != nil {
		return "", fmt.Errorf("could not parse calendar action: %w", err)
	}
	title := stringField(out.JSON, "title")
	start := stringField(out.JSON, "start_time")
	end := stringField(out.JSON, "end_time")

	// Incomplete extractions go through to the provider, which rejects them
	// with a message naming what is missing.
	link, err := e.Providers.Calendar.CreateEvent(ctx, title, start, end)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Event '%s' created: %s", title, link), nil
}

func (e *StepExecutor) communicate(ctx context.Context, action string, runCtx plan.Context) (string, error) {
	if e.Providers == nil || e.Providers.Communicator == nil {
		return "", fmt.Errorf("%w: communication", tools.ErrNotConfigured)
	}

	out, err := e.Oracle.Complete(ctx, map[string]string{"instruction": action}, prompts.CommunicationParser, true)
	if err != nil {
		return "", fmt.Errorf("could not parse communication action: %w", err)
	}
	kind := stringField(out.JSON, "type")
	recipient := runCtx.Expand(stringField(out.JSON, "recipient"))
	message := stringField(out.JSON, "message")
	if recipient == "" || message == "" {
		return "", fmt.Errorf("%w: recipient and message", ErrExtractionIncomplete)
	}
	message, err = runCtx.ExpandStrict(message)
	if err != nil {
		return "", err
	}

	if kind == "call" {
		sid, err := e.Providers.Communicator.Call(ctx, recipient, message)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Call placed to %s (sid %s).", recipient, sid), nil
	}
	sid, err := e.Providers.Communicator.SendSMS(ctx, recipient, message)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SMS sent to %s (sid %s).", recipient, sid), nil
}

// simulate covers agents the planner invented. They succeed as no-ops so an
// imaginative plan still runs end to end.
func (e *StepExecutor) simulate(agent, action string) Outcome {
	if e.SimDelay > 0 {
		time.Sleep(e.SimDelay)
	}
	return Outcome{
		Succeeded: true,
		Message:   fmt.Sprintf("Simulated execution of '%s' by %s.", action, agent),
	}
}

// searchPreviewChars caps how much of the raw results the step message
// carries. The full text lives in the run context.
const searchPreviewChars = 400

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func stringField(v any, key string) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}

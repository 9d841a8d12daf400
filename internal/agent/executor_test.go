package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rahul/sutra/internal/governance"
	"github.com/rahul/sutra/internal/oracle"
	"github.com/rahul/sutra/internal/plan"
	"github.com/rahul/sutra/internal/prompts"
	"github.com/rahul/sutra/internal/tools"
)

type oracleCall struct {
	template string
	data     map[string]string
}

// scriptedOracle returns a canned output (or error) per template id.
type scriptedOracle struct {
	mu        sync.Mutex
	responses map[string]*oracle.Output
	errs      map[string]error
	calls     []oracleCall
}

func (s *scriptedOracle) Complete(ctx context.Context, data map[string]string, template string, expectJSON bool) (*oracle.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, oracleCall{template: template, data: data})
	if err := s.errs[template]; err != nil {
		return nil, err
	}
	out, ok := s.responses[template]
	if !ok {
		return nil, fmt.Errorf("no scripted response for template %q", template)
	}
	return out, nil
}

func (s *scriptedOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptedOracle) lastData(t *testing.T, template string) map[string]string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].template == template {
			return s.calls[i].data
		}
	}
	t.Fatalf("no call recorded for template %q", template)
	return nil
}

type recordingMessenger struct {
	mu      sync.Mutex
	err     error
	calls   int
	channel string
	text    string
}

func (m *recordingMessenger) Post(ctx context.Context, channel, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.channel = channel
	m.text = text
	return m.err
}

type staticKnowledge struct {
	answer   string
	question string
}

func (k *staticKnowledge) Answer(ctx context.Context, question string) string {
	k.question = question
	return k.answer
}

type staticSearch struct {
	result string
	query  string
}

func (s *staticSearch) Search(ctx context.Context, query string) string {
	s.query = query
	return s.result
}

type recordingCalendar struct {
	err               error
	link              string
	title, start, end string
}

func (c *recordingCalendar) CreateEvent(ctx context.Context, title, start, end string) (string, error) {
	c.title, c.start, c.end = title, start, end
	if c.err != nil {
		return "", c.err
	}
	return c.link, nil
}

type recordingCommunicator struct {
	smsCalls, callCalls int
	recipient, body     string
}

func (c *recordingCommunicator) SendSMS(ctx context.Context, recipient, message string) (string, error) {
	c.smsCalls++
	c.recipient, c.body = recipient, message
	return "SM123", nil
}

func (c *recordingCommunicator) Call(ctx context.Context, recipient, message string) (string, error) {
	c.callCalls++
	c.recipient, c.body = recipient, message
	return "CA123", nil
}

func TestExecuteMessaging(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.MessagingParser: {JSON: map[string]any{
			"channel": "#general",
			"message": "Top pick: {search_result}",
		}},
	}}
	messenger := &recordingMessenger{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Messenger: messenger}}

	step := &plan.Step{Agent: "SlackAgent", Action: "share the {search_result} winner in #general"}
	runCtx := plan.Context{"search_result": "Cafe Paris"}

	outcome := e.Execute(context.Background(), "run-1", step, runCtx)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Message != "Message sent to #general." {
		t.Errorf("Message = %q", outcome.Message)
	}
	if messenger.channel != "#general" {
		t.Errorf("channel = %q", messenger.channel)
	}
	if messenger.text != "Top pick: Cafe Paris" {
		t.Errorf("text = %q", messenger.text)
	}

	// The action handed to the parser has known markers already expanded.
	data := scripted.lastData(t, prompts.MessagingParser)
	if data["instruction"] != "share the Cafe Paris winner in #general" {
		t.Errorf("instruction = %q", data["instruction"])
	}
}

func TestExecuteMessagingKeepsUnknownMarkers(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.MessagingParser: {JSON: map[string]any{
			"channel": "#ops",
			"message": "done",
		}},
	}}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Messenger: &recordingMessenger{}}}

	step := &plan.Step{Agent: "SlackAgent", Action: "post the {forecast} update"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	data := scripted.lastData(t, prompts.MessagingParser)
	if data["instruction"] != "post the {forecast} update" {
		t.Errorf("instruction = %q", data["instruction"])
	}
}

func TestExecuteMessagingMissingField(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.MessagingParser: {JSON: map[string]any{"channel": "", "message": "hi"}},
	}}
	messenger := &recordingMessenger{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Messenger: messenger}}

	step := &plan.Step{Agent: "SlackAgent", Action: "say hi"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if outcome.Succeeded {
		t.Fatal("expected failure for missing channel")
	}
	if !strings.Contains(outcome.Message, "missing required fields") {
		t.Errorf("Message = %q", outcome.Message)
	}
	if messenger.calls != 0 {
		t.Errorf("messenger called %d times", messenger.calls)
	}
}

func TestExecuteMessagingUnresolvedBodyMarker(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.MessagingParser: {JSON: map[string]any{
			"channel": "#general",
			"message": "Answer: {knowledge_answer}",
		}},
	}}
	messenger := &recordingMessenger{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Messenger: messenger}}

	step := &plan.Step{Agent: "SlackAgent", Action: "share the answer"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if outcome.Succeeded {
		t.Fatal("expected failure for unresolved body marker")
	}
	if !strings.Contains(outcome.Message, "missing context key") {
		t.Errorf("Message = %q", outcome.Message)
	}
	if messenger.calls != 0 {
		t.Errorf("messenger called %d times", messenger.calls)
	}
}

func TestExecuteMessagingBodyValueWithBraces(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.MessagingParser: {JSON: map[string]any{
			"channel": "#general",
			"message": "Posting now: {search_result}",
		}},
	}}
	messenger := &recordingMessenger{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Messenger: messenger}}

	// The stored result itself contains {word}-shaped text. That must post
	// verbatim, not read as another round of markers.
	step := &plan.Step{Agent: "SlackAgent", Action: "share the winner"}
	runCtx := plan.Context{"search_result": "top pick is Cafe {Bloom} on MG Road"}

	outcome := e.Execute(context.Background(), "run-1", step, runCtx)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if messenger.text != "Posting now: top pick is Cafe {Bloom} on MG Road" {
		t.Errorf("text = %q", messenger.text)
	}
}

func TestExecuteMessagingParserError(t *testing.T) {
	scripted := &scriptedOracle{errs: map[string]error{
		prompts.MessagingParser: errors.New("upstream status 500"),
	}}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Messenger: &recordingMessenger{}}}

	step := &plan.Step{Agent: "SlackAgent", Action: "say hi"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if outcome.Succeeded {
		t.Fatal("expected failure when the parser call fails")
	}
	if !strings.Contains(outcome.Message, "could not parse messaging action") {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestExecuteKnowledgeWritesContext(t *testing.T) {
	kb := &staticKnowledge{answer: "Employees get 24 days."}
	e := &StepExecutor{Oracle: &scriptedOracle{}, Providers: &tools.Registry{Knowledge: kb}}

	step := &plan.Step{Agent: "KnowledgeAgent", Action: "how much leave do we get?"}
	runCtx := plan.Context{}
	outcome := e.Execute(context.Background(), "run-1", step, runCtx)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if outcome.Message != "Employees get 24 days." {
		t.Errorf("Message = %q", outcome.Message)
	}
	if runCtx["knowledge_answer"] != "Employees get 24 days." {
		t.Errorf("knowledge_answer = %q", runCtx["knowledge_answer"])
	}
	if kb.question != "how much leave do we get?" {
		t.Errorf("question = %q", kb.question)
	}
}

func TestExecuteKnowledgeTolerantInterpolation(t *testing.T) {
	kb := &staticKnowledge{answer: "nothing found"}
	e := &StepExecutor{Oracle: &scriptedOracle{}, Providers: &tools.Registry{Knowledge: kb}}

	// The same missing key that fails a message body is harmless in an
	// action; the marker goes through as literal text.
	step := &plan.Step{Agent: "KnowledgeAgent", Action: "summarize {search_result}"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if kb.question != "summarize {search_result}" {
		t.Errorf("question = %q", kb.question)
	}
}

func TestExecuteSearchWritesContext(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.SearchQuery: {Text: "best cafes indore"},
	}}
	searcher := &staticSearch{result: "1. Cafe Paris\n2. Brew Room"}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Search: searcher}}

	step := &plan.Step{Agent: "SearchAgent", Action: "find the best cafes in Indore"}
	runCtx := plan.Context{}
	outcome := e.Execute(context.Background(), "run-1", step, runCtx)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if searcher.query != "best cafes indore" {
		t.Errorf("query = %q", searcher.query)
	}
	if runCtx["search_result"] != "1. Cafe Paris\n2. Brew Room" {
		t.Errorf("search_result = %q", runCtx["search_result"])
	}
	// The result text itself reaches the log stream through the message.
	want := "Search for \"best cafes indore\" found: 1. Cafe Paris\n2. Brew Room"
	if outcome.Message != want {
		t.Errorf("Message = %q, want %q", outcome.Message, want)
	}
}

func TestExecuteSearchLongResultPreviewCapped(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.SearchQuery: {Text: "cafes"},
	}}
	long := strings.Repeat("x", searchPreviewChars+50)
	searcher := &staticSearch{result: long}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Search: searcher}}

	step := &plan.Step{Agent: "SearchAgent", Action: "find every cafe"}
	runCtx := plan.Context{}
	outcome := e.Execute(context.Background(), "run-1", step, runCtx)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if runCtx["search_result"] != long {
		t.Error("context should keep the full result text")
	}
	if !strings.HasSuffix(outcome.Message, "...") {
		t.Errorf("Message = %q, want a capped preview", outcome.Message)
	}
	if len(outcome.Message) > len("Search for \"cafes\" found: ")+searchPreviewChars+len("...") {
		t.Errorf("Message length %d exceeds the preview cap", len(outcome.Message))
	}
}

func TestExecuteSearchBlankQueryFallsBack(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.SearchQuery: {Text: "   "},
	}}
	searcher := &staticSearch{result: "results"}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Search: searcher}}

	step := &plan.Step{Agent: "SearchAgent", Action: "weather in Indore"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if searcher.query != "weather in Indore" {
		t.Errorf("query = %q", searcher.query)
	}
}

func TestExecuteCalendar(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.CalendarParser: {JSON: map[string]any{
			"title":      "Team standup",
			"start_time": "2026-03-03T09:00:00",
			"end_time":   "2026-03-03T09:30:00",
		}},
	}}
	cal := &recordingCalendar{link: "https://calendar.google.com/event?eid=abc"}
	e := &StepExecutor{
		Oracle:    scripted,
		Providers: &tools.Registry{Calendar: cal},
		Now:       func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
	}

	step := &plan.Step{Agent: "CalendarAgent", Action: "schedule standup tomorrow at 9am"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "https://calendar.google.com/event?eid=abc") {
		t.Errorf("Message = %q", outcome.Message)
	}
	if cal.title != "Team standup" || cal.start != "2026-03-03T09:00:00" || cal.end != "2026-03-03T09:30:00" {
		t.Errorf("calendar got %q %q %q", cal.title, cal.start, cal.end)
	}

	data := scripted.lastData(t, prompts.CalendarParser)
	if data["current_date"] != "2026-03-02 (Monday)" {
		t.Errorf("current_date = %q", data["current_date"])
	}
}

func TestExecuteCalendarMissingTimesReachProvider(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.CalendarParser: {JSON: map[string]any{"title": "Meeting"}},
	}}
	cal := &recordingCalendar{err: errors.New("event needs a title, a start time and an end time")}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Calendar: cal}}

	step := &plan.Step{Agent: "CalendarAgent", Action: "schedule a meeting"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if outcome.Succeeded {
		t.Fatal("expected failure for missing times")
	}
	// The incomplete extraction is handed to the provider, whose rejection
	// becomes the outcome message.
	if cal.title != "Meeting" || cal.start != "" || cal.end != "" {
		t.Errorf("provider got %q %q %q", cal.title, cal.start, cal.end)
	}
	if !strings.Contains(outcome.Message, "start time") {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestExecuteCalendarProviderError(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.CalendarParser: {JSON: map[string]any{
			"title":      "Sync",
			"start_time": "2026-03-03T09:00:00",
			"end_time":   "2026-03-03T09:30:00",
		}},
	}}
	cal := &recordingCalendar{err: errors.New("insufficient permissions")}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Calendar: cal}}

	step := &plan.Step{Agent: "CalendarAgent", Action: "schedule a sync"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if outcome.Succeeded {
		t.Fatal("expected failure when the provider errors")
	}
	if !strings.Contains(outcome.Message, "insufficient permissions") {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestExecuteCommunicationSMS(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.CommunicationParser: {JSON: map[string]any{
			"type":      "sms",
			"recipient": "+919900112233",
			"message":   "Reminder: {knowledge_answer}",
		}},
	}}
	comm := &recordingCommunicator{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Communicator: comm}}

	step := &plan.Step{Agent: "TwilioAgent", Action: "text me the answer"}
	runCtx := plan.Context{"knowledge_answer": "24 days of leave"}
	outcome := e.Execute(context.Background(), "run-1", step, runCtx)
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if comm.smsCalls != 1 || comm.callCalls != 0 {
		t.Errorf("smsCalls = %d, callCalls = %d", comm.smsCalls, comm.callCalls)
	}
	if comm.body != "Reminder: 24 days of leave" {
		t.Errorf("body = %q", comm.body)
	}
	if !strings.Contains(outcome.Message, "SM123") {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestExecuteCommunicationCall(t *testing.T) {
	scripted := &scriptedOracle{responses: map[string]*oracle.Output{
		prompts.CommunicationParser: {JSON: map[string]any{
			"type":      "call",
			"recipient": "+919900112233",
			"message":   "Your build failed.",
		}},
	}}
	comm := &recordingCommunicator{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Communicator: comm}}

	step := &plan.Step{Agent: "CommunicationAgent", Action: "call me about the build"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if comm.callCalls != 1 || comm.smsCalls != 0 {
		t.Errorf("callCalls = %d, smsCalls = %d", comm.callCalls, comm.smsCalls)
	}
	if !strings.Contains(outcome.Message, "Call placed") {
		t.Errorf("Message = %q", outcome.Message)
	}
}

func TestExecuteUnknownAgentSimulates(t *testing.T) {
	scripted := &scriptedOracle{}
	messenger := &recordingMessenger{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{Messenger: messenger}}

	step := &plan.Step{Agent: "WeatherAgent", Action: "predict tomorrow's weather"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if !outcome.Succeeded {
		t.Fatalf("outcome = %+v", outcome)
	}
	if !strings.Contains(outcome.Message, "Simulated execution") {
		t.Errorf("Message = %q", outcome.Message)
	}
	if scripted.callCount() != 0 {
		t.Errorf("oracle called %d times", scripted.callCount())
	}
	if messenger.calls != 0 {
		t.Errorf("messenger called %d times", messenger.calls)
	}
}

func TestExecuteUnconfiguredProvider(t *testing.T) {
	scripted := &scriptedOracle{}
	e := &StepExecutor{Oracle: scripted, Providers: &tools.Registry{}}

	step := &plan.Step{Agent: "SlackAgent", Action: "say hi"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if outcome.Succeeded {
		t.Fatal("expected failure for unconfigured messaging")
	}
	if !strings.Contains(outcome.Message, "not configured") {
		t.Errorf("Message = %q", outcome.Message)
	}
	if scripted.callCount() != 0 {
		t.Errorf("oracle called %d times before config check", scripted.callCount())
	}
}

func TestExecutePolicyDeny(t *testing.T) {
	engine := governance.NewDefaultPolicyEngine()
	engine.DenyCapability("communication")

	scripted := &scriptedOracle{}
	comm := &recordingCommunicator{}
	e := &StepExecutor{
		Oracle:    scripted,
		Providers: &tools.Registry{Communicator: comm},
		Policy:    engine,
	}

	step := &plan.Step{Agent: "TwilioAgent", Action: "call the vendor"}
	outcome := e.Execute(context.Background(), "run-1", step, plan.Context{})
	if outcome.Succeeded {
		t.Fatal("expected policy denial")
	}
	if !strings.Contains(outcome.Message, "restricted by system policy") {
		t.Errorf("Message = %q", outcome.Message)
	}
	if scripted.callCount() != 0 {
		t.Errorf("oracle called %d times for a denied step", scripted.callCount())
	}
	if comm.smsCalls+comm.callCalls != 0 {
		t.Error("provider called for a denied step")
	}
}

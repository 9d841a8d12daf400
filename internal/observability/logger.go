package observability

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// EventType defines the category of the log event.
type EventType string

const (
	EventTypePlan        EventType = "plan"
	EventTypeStep        EventType = "step"
	EventTypeOracle      EventType = "oracle"
	EventTypePolicyCheck EventType = "policy_check"
	EventTypeHeartbeat   EventType = "heartbeat"
)

// Event represents a structured log entry.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id,omitempty"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger handles structured logging. Oracle events are mirrored to a
// rotating file so prompt/response pairs survive terminal scrollback.
type Logger struct {
	oracleLog *lumberjack.Logger
}

func NewLogger() *Logger {
	return &Logger{
		oracleLog: &lumberjack.Logger{
			Filename:   filepath.Join("logs", "oracle.jsonl"),
			MaxSize:    10, // megabytes
			MaxBackups: 1,
		},
	}
}

// Log emits a structured JSON event to stdout.
func (l *Logger) Log(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		fmt.Printf("{\"error\": \"failed to marshal event: %v\"}\n", err)
		return
	}
	fmt.Println(string(data))

	if evt.Type == EventTypeOracle && l.oracleLog != nil {
		l.oracleLog.Write(append(data, '\n'))
	}
}

// Helper methods for common events

func (l *Logger) LogPlan(runID string, stepCount int) {
	l.Log(Event{
		Type:  EventTypePlan,
		RunID: runID,
		Data:  map[string]any{"steps": stepCount},
	})
}

func (l *Logger) LogStep(runID, agent, action, status string) {
	l.Log(Event{
		Type:  EventTypeStep,
		RunID: runID,
		Data: map[string]string{
			"agent":  agent,
			"action": action,
			"status": status,
		},
	})
}

func (l *Logger) LogOracle(template, prompt, response string) {
	l.Log(Event{
		Type: EventTypeOracle,
		Data: map[string]string{
			"template": template,
			"prompt":   prompt,
			"response": response,
		},
	})
}

func (l *Logger) LogPolicyCheck(runID, capability, reason string, allowed bool) {
	l.Log(Event{
		Type:  EventTypePolicyCheck,
		RunID: runID,
		Data: map[string]any{
			"capability": capability,
			"allowed":    allowed,
			"reason":     reason,
		},
	})
}

func (l *Logger) LogHeartbeat() {
	l.Log(Event{
		Type: EventTypeHeartbeat,
		Data: map[string]string{"status": "alive"},
	})
}

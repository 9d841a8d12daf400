package observability

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rahul/sutra/internal/events"
	"gopkg.in/natefinch/lumberjack.v2"
)

// AuditLog mirrors every observer event to a rotating JSONL file, giving
// operators a replayable record of what clients were told.
type AuditLog struct {
	sink *lumberjack.Logger
}

func NewAuditLog(dir string) *AuditLog {
	return &AuditLog{
		sink: &lumberjack.Logger{
			Filename:   filepath.Join(dir, "events.jsonl"),
			MaxSize:    10, // megabytes
			MaxBackups: 1,
		},
	}
}

// Run subscribes to the hub and appends events until ctx is cancelled or
// the hub closes.
func (a *AuditLog) Run(ctx context.Context, hub *events.Hub) {
	sub := hub.Subscribe()
	defer hub.Unsubscribe(sub)

	enc := json.NewEncoder(a.sink)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-sub.C:
			if !ok {
				return
			}
			_ = enc.Encode(evt)
		}
	}
}

// Package prompts holds the oracle prompt templates. Defaults are compiled
// in; any template can be overridden by a file of the same name in the
// configured directory.
package prompts

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed templates/*.md
var defaults embed.FS

// Template ids used across the engine.
const (
	Planner             = "planner"
	MessagingParser     = "messaging_parser"
	CalendarParser      = "calendar_parser"
	CommunicationParser = "communication_parser"
	SearchQuery         = "search_query"
	KnowledgeAnswer     = "knowledge_answer"
)

type Library struct {
	Directory string
}

// NewLibrary returns a template library. dir may be empty, in which case
// only the embedded defaults are served.
func NewLibrary(dir string) *Library {
	return &Library{Directory: dir}
}

// Get returns the template body for id, preferring an override file in the
// library directory over the embedded default.
func (l *Library) Get(id string) (string, error) {
	if l.Directory != "" {
		path := filepath.Join(l.Directory, id+".md")
		if data, err := os.ReadFile(path); err == nil {
			return string(data), nil
		}
	}
	data, err := defaults.ReadFile("templates/" + id + ".md")
	if err != nil {
		return "", fmt.Errorf("unknown prompt template %q", id)
	}
	return string(data), nil
}

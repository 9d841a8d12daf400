package tools

import (
	"context"
	"errors"
)

// ErrNotConfigured reports that a capability has no backing provider in this
// deployment.
var ErrNotConfigured = errors.New("provider not configured")

// Messenger posts a message into a named channel or chat.
type Messenger interface {
	Post(ctx context.Context, channel, text string) error
}

// KnowledgeBase answers a question from the local document corpus. Lookup
// problems are folded into the returned text so a bad question never takes
// the run down.
type KnowledgeBase interface {
	Answer(ctx context.Context, question string) string
}

// Searcher runs a web search and returns the results as text. Like
// KnowledgeBase, failures come back as explanatory text.
type Searcher interface {
	Search(ctx context.Context, query string) string
}

// Calendar creates an event and returns a link to it.
type Calendar interface {
	CreateEvent(ctx context.Context, title, start, end string) (string, error)
}

// Communicator reaches a person by phone. Both methods return the provider's
// delivery id.
type Communicator interface {
	SendSMS(ctx context.Context, recipient, message string) (string, error)
	Call(ctx context.Context, recipient, message string) (string, error)
}

// Registry holds the wired provider for each capability. A nil field means
// the capability is not configured.
type Registry struct {
	Messenger    Messenger
	Knowledge    KnowledgeBase
	Search       Searcher
	Calendar     Calendar
	Communicator Communicator
}

package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/prompts"
	"github.com/tmc/langchaingo/llms"
)

// LangModel is an openai-compatible backend driven through langchaingo,
// serving the openai and openrouter provider entries.
type LangModel struct {
	model     llms.Model
	timeout   time.Duration
	templates *prompts.Library
	logger    *observability.Logger
}

func NewLangModel(model llms.Model, timeout time.Duration, templates *prompts.Library, logger *observability.Logger) *LangModel {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &LangModel{model: model, timeout: timeout, templates: templates, logger: logger}
}

func (l *LangModel) Complete(ctx context.Context, data map[string]string, template string, expectJSON bool) (*Output, error) {
	tmpl, err := l.templates.Get(template)
	if err != nil {
		return nil, err
	}
	prompt, err := renderTemplate(tmpl, data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}
	resp, err := l.model.GenerateContent(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrMalformedResponse)
	}

	text := resp.Choices[0].Content
	if l.logger != nil {
		l.logger.LogOracle(template, prompt, text)
	}
	return decode(text, expectJSON)
}

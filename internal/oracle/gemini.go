package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rahul/sutra/internal/observability"
	"github.com/rahul/sutra/internal/prompts"
)

const defaultGeminiBase = "https://generativelanguage.googleapis.com/v1beta"

// Gemini talks to the Google generative language REST API directly, so the
// upstream status and response envelope stay visible to callers.
type Gemini struct {
	apiKey    string
	model     string
	baseURL   string
	client    *http.Client
	templates *prompts.Library
	logger    *observability.Logger
}

func NewGemini(apiKey, model, baseURL string, timeout time.Duration, templates *prompts.Library, logger *observability.Logger) *Gemini {
	if baseURL == "" {
		baseURL = defaultGeminiBase
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Gemini{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		client:    &http.Client{Timeout: timeout},
		templates: templates,
		logger:    logger,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) Complete(ctx context.Context, data map[string]string, template string, expectJSON bool) (*Output, error) {
	tmpl, err := g.templates.Get(template)
	if err != nil {
		return nil, err
	}
	prompt, err := renderTemplate(tmpl, data)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: truncate(string(raw), 2000)}
	}

	var envelope geminiResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates returned", ErrMalformedResponse)
	}

	text := envelope.Candidates[0].Content.Parts[0].Text
	if g.logger != nil {
		g.logger.LogOracle(template, prompt, text)
	}
	return decode(text, expectJSON)
}

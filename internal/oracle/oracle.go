// Package oracle wraps the text-completion service used both to produce
// plans and to extract structured fields from step actions.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Client renders a named prompt template and performs exactly one round
// trip to a completion service. No retries, no caching.
type Client interface {
	Complete(ctx context.Context, data map[string]string, template string, expectJSON bool) (*Output, error)
}

// Output holds the oracle's reply. JSON is populated only when the call
// asked for JSON.
type Output struct {
	Text string
	JSON any
}

var (
	ErrTemplateRender    = errors.New("template render failed")
	ErrTransport         = errors.New("oracle transport failure")
	ErrMalformedResponse = errors.New("malformed oracle response")
	ErrJSONParse         = errors.New("oracle returned invalid JSON")
)

// UpstreamError reports a non-2xx reply from the completion service,
// keeping status and body for diagnostics.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("oracle upstream returned status %d: %s", e.Status, e.Body)
}

var placeholderRe = regexp.MustCompile(`\{\{([a-zA-Z_][a-zA-Z0-9_]*)\}\}`)

// renderTemplate substitutes {{name}} placeholders from data. Every
// placeholder in the template must resolve.
func renderTemplate(tmpl string, data map[string]string) (string, error) {
	var missing string
	out := placeholderRe.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		v, ok := data[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("%w: no value for placeholder %q", ErrTemplateRender, missing)
	}
	return out, nil
}

// stripFences removes the markdown code-fence wrapper models like to put
// around JSON. Tolerated, never required.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
	}
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "```") {
		s = s[:len(s)-len("```")]
	}
	return strings.TrimSpace(s)
}

// decode turns raw completion text into an Output, parsing JSON when the
// caller asked for it.
func decode(text string, expectJSON bool) (*Output, error) {
	text = strings.TrimSpace(text)
	if !expectJSON {
		return &Output{Text: text}, nil
	}
	stripped := stripFences(text)
	var v any
	if err := json.Unmarshal([]byte(stripped), &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJSONParse, err)
	}
	return &Output{Text: stripped, JSON: v}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

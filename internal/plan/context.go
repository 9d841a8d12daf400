package plan

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrMissingContextKey is returned by ExpandStrict when a {marker}
// references a key the context does not hold.
var ErrMissingContextKey = errors.New("missing context key")

var markerRe = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Context carries results between the steps of one run. Each run owns
// exactly one Context; it is never shared across runs.
type Context map[string]string

// Expand substitutes {key} markers for keys present in the context.
// Unknown markers stay in place as literal text. Substitution is a single
// pass over s: inserted values are never rescanned, so braces inside a
// value pass through verbatim.
func (c Context) Expand(s string) string {
	return markerRe.ReplaceAllStringFunc(s, func(m string) string {
		if v, ok := c[m[1 : len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// ExpandStrict substitutes like Expand but fails when s references a key the
// context does not hold. Used for outbound message bodies, where a broken
// template must not be sent externally. Only s's own markers are checked;
// braces arriving inside a value are plain text here too.
func (c Context) ExpandStrict(s string) (string, error) {
	missing := ""
	out := markerRe.ReplaceAllStringFunc(s, func(m string) string {
		key := m[1 : len(m)-1]
		v, ok := c[key]
		if !ok {
			if missing == "" {
				missing = key
			}
			return m
		}
		return v
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s", ErrMissingContextKey, missing)
	}
	return out, nil
}

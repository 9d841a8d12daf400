package tools

import (
	"context"
	"fmt"
	"log"

	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// WebSearch answers queries with DuckDuckGo results.
type WebSearch struct {
	client *duckduckgo.Tool
}

func NewWebSearch(maxResults int) (*WebSearch, error) {
	if maxResults <= 0 {
		maxResults = 10
	}
	ddg, err := duckduckgo.New(maxResults, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &WebSearch{client: ddg}, nil
}

func (w *WebSearch) Search(ctx context.Context, query string) string {
	res, err := w.client.Call(ctx, query)
	if err != nil {
		log.Printf("Warning: web search for %q failed: %v", query, err)
		return fmt.Sprintf("The web search for %q did not return any results (%v).", query, err)
	}
	return res
}

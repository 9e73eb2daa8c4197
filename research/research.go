// Package research gathers web search snippets that ground generated posts.
package research

import (
	"context"
	"fmt"
	"strings"
)

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Searcher is the web search capability.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

// Context is the read-only research for one run.
type Context struct {
	Topic   string
	Results []Result
}

// String renders the title+description pairs fed to the prompts.
func (c Context) String() string {
	var sb strings.Builder
	for i, r := range c.Results {
		sb.WriteString(fmt.Sprintf("%d. %s: %s\n", i+1, r.Title, r.Description))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Gather searches once for topic and keeps non-empty, de-duplicated results.
func Gather(ctx context.Context, s Searcher, topic string) (Context, error) {
	results, err := s.Search(ctx, topic)
	if err != nil {
		return Context{}, fmt.Errorf("research %q: %w", topic, err)
	}
	seen := make(map[string]bool, len(results))
	kept := make([]Result, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Title) == "" && strings.TrimSpace(r.Description) == "" {
			continue
		}
		key := r.URL
		if key == "" {
			key = r.Title
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, r)
	}
	return Context{Topic: topic, Results: kept}, nil
}

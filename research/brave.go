package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// APIError reports a non-2xx answer from the search provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("brave search: status %d: %s", e.StatusCode, e.Body)
}

type braveResp struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// BraveClient implements Searcher against the Brave web search API.
type BraveClient struct {
	apiKey  string
	baseURL string
	count   int
	client  *http.Client
}

func NewBraveClient(apiKey, baseURL string, count int, client *http.Client) (*BraveClient, error) {
	if apiKey == "" {
		return nil, errors.New("brave api key is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if count <= 0 {
		count = 5
	}
	return &BraveClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		count:   count,
		client:  client,
	}, nil
}

func (b *BraveClient) Search(ctx context.Context, query string) ([]Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/web/search", nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("count", strconv.Itoa(b.count))
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var data braveResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("brave search: decode: %w", err)
	}
	out := make([]Result, 0, len(data.Web.Results))
	for _, r := range data.Web.Results {
		out = append(out, Result{
			Title:       stripHTML(r.Title),
			Description: stripHTML(r.Description),
			URL:         r.URL,
		})
	}
	return out, nil
}

// stripHTML drops the <strong> highlighting Brave puts in snippets and decodes entities.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

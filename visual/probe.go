package visual

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HTTPProber checks that an image URL answers 2xx with an image content type.
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber(client *http.Client) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProber{client: client}
}

// Reachable sends HEAD, falling back to a one-byte ranged GET for hosts that
// refuse HEAD.
func (p *HTTPProber) Reachable(ctx context.Context, link string) error {
	status, ctype, err := p.do(ctx, http.MethodHead, link)
	if err != nil {
		return err
	}
	if status == http.StatusMethodNotAllowed || status == http.StatusForbidden || status == http.StatusNotImplemented {
		status, ctype, err = p.do(ctx, http.MethodGet, link)
		if err != nil {
			return err
		}
	}
	if status/100 != 2 {
		return fmt.Errorf("probe %s: status %d", link, status)
	}
	if ctype != "" && !strings.HasPrefix(strings.ToLower(ctype), "image/") {
		return fmt.Errorf("probe %s: content type %q is not an image", link, ctype)
	}
	return nil
}

func (p *HTTPProber) do(ctx context.Context, method, link string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, method, link, nil)
	if err != nil {
		return 0, "", err
	}
	if method == http.MethodGet {
		req.Header.Set("Range", "bytes=0-0")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("probe %s: %w", link, err)
	}
	resp.Body.Close()
	return resp.StatusCode, resp.Header.Get("Content-Type"), nil
}

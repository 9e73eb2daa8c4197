package visual

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError reports a non-2xx answer from the image provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("unsplash: status %d: %s", e.StatusCode, e.Body)
}

type unsplashResp struct {
	Results []struct {
		URLs struct {
			Full    string `json:"full"`
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
	} `json:"results"`
}

// UnsplashClient implements ImageSearcher against the Unsplash search API.
type UnsplashClient struct {
	accessKey string
	baseURL   string
	perPage   int
	client    *http.Client
}

func NewUnsplashClient(accessKey, baseURL string, client *http.Client) (*UnsplashClient, error) {
	if accessKey == "" {
		return nil, errors.New("unsplash access key is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &UnsplashClient{
		accessKey: accessKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		perPage:   5,
		client:    client,
	}, nil
}

// SearchImages returns candidate URLs for query. size is "full", "regular" or
// "small"; anything else means regular. An empty result is not an error.
func (u *UnsplashClient) SearchImages(ctx context.Context, query, size string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"/search/photos", nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", fmt.Sprint(u.perPage))
	q.Set("orientation", "landscape")
	q.Set("content_filter", "high")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unsplash: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var data unsplashResp
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("unsplash: decode: %w", err)
	}
	out := make([]string, 0, len(data.Results))
	for _, r := range data.Results {
		var link string
		switch size {
		case "full":
			link = r.URLs.Full
		case "small":
			link = r.URLs.Small
		default:
			link = r.URLs.Regular
		}
		if link != "" {
			out = append(out, link)
		}
	}
	return out, nil
}

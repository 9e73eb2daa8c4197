// Package visual resolves a finished post to one reachable stock image.
package visual

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"auto_linkedin_post_publisher/logging"
)

// ErrCriticalAsset means not even the hardcoded safe image was reachable.
var ErrCriticalAsset = errors.New("no reachable image, including the safe default")

// ImageSearcher is the image search capability.
type ImageSearcher interface {
	SearchImages(ctx context.Context, query, size string) ([]string, error)
}

// Prober verifies an image URL before it is accepted.
type Prober interface {
	Reachable(ctx context.Context, link string) error
}

// Concepts derives search terms from post text (generator.Agent).
type Concepts interface {
	VisualConcept(ctx context.Context, text string) (string, error)
	ImageQuery(ctx context.Context, concept string) (string, error)
}

// Image is the resolved reference.
type Image struct {
	URL   string `json:"url"`
	Query string `json:"query,omitempty"`
	// SafeDefault is set when every search variant failed.
	SafeDefault bool `json:"safe_default,omitempty"`
}

type SelectorConfig struct {
	Size          string
	FallbackQuery string
	SafeImageURL  string
	RetryDelay    time.Duration
}

// Selector walks the query variants in strict priority order.
type Selector struct {
	concepts Concepts
	search   ImageSearcher
	probe    Prober
	cfg      SelectorConfig
	logger   *slog.Logger
}

func NewSelector(concepts Concepts, search ImageSearcher, probe Prober, cfg SelectorConfig, logger *slog.Logger) (*Selector, error) {
	if concepts == nil || search == nil || probe == nil {
		return nil, errors.New("visual selector needs concepts, search and probe")
	}
	if cfg.SafeImageURL == "" {
		return nil, errors.New("visual selector needs a safe image url")
	}
	return &Selector{
		concepts: concepts,
		search:   search,
		probe:    probe,
		cfg:      cfg,
		logger:   logging.OrDefault(logger, "visual"),
	}, nil
}

// Variants lists the search queries tried for query, best first.
func (s *Selector) Variants(query string) []string {
	var out []string
	if q := strings.TrimSpace(query); q != "" {
		out = append(out, q+" photorealistic 4k", q)
	}
	if s.cfg.FallbackQuery != "" {
		out = append(out, s.cfg.FallbackQuery)
	}
	return out
}

// Select returns a reachable image for text. It only fails with ErrCriticalAsset.
func (s *Selector) Select(ctx context.Context, text string) (Image, error) {
	query := s.deriveQuery(ctx, text)

	for _, variant := range s.Variants(query) {
		if err := ctx.Err(); err != nil {
			return Image{}, err
		}
		links, err := s.searchWithRetry(ctx, variant)
		if err != nil {
			s.logger.Warn("image search failed", "query", variant, "err", err)
			continue
		}
		for _, link := range links {
			if err := s.probe.Reachable(ctx, link); err != nil {
				s.logger.Debug("image unreachable", "url", link, "err", err)
				continue
			}
			s.logger.Info("image selected", "query", variant, "url", link)
			return Image{URL: link, Query: variant}, nil
		}
		s.logger.Info("no usable image for query", "query", variant, "candidates", len(links))
	}

	if err := s.probe.Reachable(ctx, s.cfg.SafeImageURL); err != nil {
		s.logger.Error("safe default image unreachable", "url", s.cfg.SafeImageURL, "err", err)
		return Image{}, fmt.Errorf("%w: %v", ErrCriticalAsset, err)
	}
	s.logger.Warn("falling back to safe default image", "url", s.cfg.SafeImageURL)
	return Image{URL: s.cfg.SafeImageURL, SafeDefault: true}, nil
}

// deriveQuery makes the concept and query calls. A failure only costs the
// specific variants; the generic fallback still runs.
func (s *Selector) deriveQuery(ctx context.Context, text string) string {
	concept, err := s.concepts.VisualConcept(ctx, text)
	if err != nil {
		s.logger.Warn("visual concept failed", "err", err)
		return ""
	}
	query, err := s.concepts.ImageQuery(ctx, concept)
	if err != nil {
		s.logger.Warn("image query failed", "concept", concept, "err", err)
		return ""
	}
	s.logger.Debug("image query derived", "concept", concept, "query", query)
	return query
}

// searchWithRetry retries a failed search once after a fixed delay.
func (s *Selector) searchWithRetry(ctx context.Context, query string) ([]string, error) {
	var links []string
	op := func() error {
		var err error
		links, err = s.search.SearchImages(ctx, query, s.cfg.Size)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.RetryDelay), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return links, nil
}

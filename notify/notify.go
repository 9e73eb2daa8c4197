// Package notify delivers operator messages: approval requests and failure reports.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"auto_linkedin_post_publisher/logging"
)

// Message is written in markdown; adapters render it for their channel.
type Message struct {
	To       string
	Subject  string
	Markdown string
}

// Notifier is the notify capability.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// APIError is a non-2xx answer from the email provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("email api: status %d: %s", e.StatusCode, e.Body)
}

var md = goldmark.New(goldmark.WithExtensions(extension.Linkify, extension.Strikethrough))

// RenderHTML converts a markdown body to the HTML email part.
func RenderHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type emailReq struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

type EmailConfig struct {
	APIKey  string
	BaseURL string
	From    string
	To      string
}

// EmailNotifier sends through a Resend-compatible HTTP API.
type EmailNotifier struct {
	cfg    EmailConfig
	client *http.Client
}

func NewEmailNotifier(cfg EmailConfig, client *http.Client) (*EmailNotifier, error) {
	if cfg.APIKey == "" || cfg.From == "" || cfg.To == "" {
		return nil, errors.New("email api key, from and to are required")
	}
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &EmailNotifier{cfg: cfg, client: client}, nil
}

func (n *EmailNotifier) Notify(ctx context.Context, msg Message) error {
	to := msg.To
	if to == "" {
		to = n.cfg.To
	}
	html, err := RenderHTML(msg.Markdown)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	body, err := json.Marshal(emailReq{
		From:    n.cfg.From,
		To:      []string{to},
		Subject: msg.Subject,
		HTML:    html,
		Text:    msg.Markdown,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return nil
}

// LogNotifier prints messages instead of sending them; used for dry runs.
type LogNotifier struct {
	W      io.Writer
	Logger *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, msg Message) error {
	logging.OrDefault(n.Logger, "notify").Info("notification (not sent)", "subject", msg.Subject)
	if n.W == nil {
		return nil
	}
	_, err := fmt.Fprintf(n.W, "Subject: %s\n\n%s\n", msg.Subject, msg.Markdown)
	return err
}

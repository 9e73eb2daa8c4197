// Package server exposes the cron trigger and the approval link over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"auto_linkedin_post_publisher/approval"
	"auto_linkedin_post_publisher/logging"
	"auto_linkedin_post_publisher/metrics"
	"auto_linkedin_post_publisher/workflow"
)

// Runner starts one workflow run (workflow.Orchestrator).
type Runner interface {
	Run(ctx context.Context, topic string) (workflow.Outcome, error)
}

// Approver executes approval links (approval.Executor).
type Approver interface {
	Execute(ctx context.Context, token, sig string) (approval.Outcome, error)
}

type Options struct {
	// CronSecret guards /api/cron. Empty disables the endpoint.
	CronSecret string
	// ApproveRatePerMinute limits /approve per client IP; 0 means no limit.
	ApproveRatePerMinute int
	// TrustProxy keys clients on X-Forwarded-For. Only set it behind a proxy
	// that overwrites the header.
	TrustProxy bool
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

type Server struct {
	runner   Runner
	approver Approver
	opts     Options
	limiter  *rateLimiter
	logger   *slog.Logger
}

func New(runner Runner, approver Approver, opts Options) (*Server, error) {
	if runner == nil {
		return nil, errors.New("workflow runner required")
	}
	if approver == nil {
		return nil, errors.New("approval executor required")
	}
	return &Server{
		runner:   runner,
		approver: approver,
		opts:     opts,
		limiter:  newRateLimiter(opts.ApproveRatePerMinute, 15*time.Minute),
		logger:   logging.OrDefault(opts.Logger, "server"),
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cron", s.handleCron)
	mux.HandleFunc(approval.ApprovePath, s.limit(s.handleApprove))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", s.opts.Metrics.Handler())
	return logMiddleware(s.logger, mux)
}

// --- Handlers ---

type cronResp struct {
	RunID       string        `json:"run_id"`
	Topic       string        `json:"topic,omitempty"`
	Score       int           `json:"score,omitempty"`
	Attempts    int           `json:"attempts,omitempty"`
	Exit        workflow.Exit `json:"exit,omitempty"`
	Image       string        `json:"image,omitempty"`
	ApprovalURL string        `json:"approval_url,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func (s *Server) handleCron(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.cronAuthorized(r) {
		s.logger.Warn("cron request rejected", "remote", clientIP(r, s.opts.TrustProxy))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	out, err := s.runner.Run(r.Context(), r.URL.Query().Get("topic"))
	resp := cronResp{
		RunID:       out.RunID,
		Topic:       out.Topic,
		Score:       out.Score,
		Attempts:    out.Attempts,
		Exit:        out.Exit,
		Image:       out.Image.URL,
		ApprovalURL: out.ApprovalURL,
	}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
		if errors.As(err, new(*workflow.QualityNotMetError)) {
			status = http.StatusUnprocessableEntity
		}
	}
	writeJSON(w, status, resp)
}

// cronAuthorized accepts "Authorization: Bearer <secret>" or ?secret=<secret>.
func (s *Server) cronAuthorized(r *http.Request) bool {
	if s.opts.CronSecret == "" {
		return false
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if got == "" {
		got = r.URL.Query().Get("secret")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.CronSecret)) == 1
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	// HEAD is refused so link scanners cannot publish.
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token, sig := approval.FromQuery(r.URL.Query())
	var v approval.Verdict
	if token == "" || sig == "" {
		v = approval.Verdict{
			Status:  http.StatusBadRequest,
			Outcome: "malformed",
			Title:   "Incomplete approval link",
			Message: "The link is missing its data or signature. Nothing was published.",
		}
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
		defer cancel()
		v = approval.Describe(s.approver.Execute(ctx, token, sig))
	}
	s.opts.Metrics.Approval(v.Outcome)
	renderVerdict(w, v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- Helpers ---

var verdictPage = template.Must(template.New("verdict").Parse(`<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>{{.Title}}</title>
<style>body{font-family:system-ui,sans-serif;max-width:36rem;margin:4rem auto;padding:0 1rem;color:#1d2226}h1{font-size:1.4rem}.ok{color:#057642}.bad{color:#b24020}</style>
</head>
<body>
<h1 class="{{if eq .Status 200}}ok{{else}}bad{{end}}">{{.Title}}</h1>
<p>{{.Message}}</p>
</body>
</html>
`))

func renderVerdict(w http.ResponseWriter, v approval.Verdict) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(v.Status)
	_ = verdictPage.Execute(w, v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		// Query strings carry the approval token and cron secret; never log them.
		logger.Info("http", "method", r.Method, "path", path, "status", rec.status, "elapsed", time.Since(start))
	})
}

func clientIP(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"auto_linkedin_post_publisher/approval"
	"auto_linkedin_post_publisher/logging"
	"auto_linkedin_post_publisher/metrics"
	"auto_linkedin_post_publisher/notify"
	"auto_linkedin_post_publisher/research"
	"auto_linkedin_post_publisher/visual"
)

// ImageSelector resolves post text to a reachable image (visual.Selector).
type ImageSelector interface {
	Select(ctx context.Context, text string) (visual.Image, error)
}

// Deps wires an Orchestrator. Metrics and Logger may be nil.
type Deps struct {
	Searcher research.Searcher
	Loop     *Loop
	Images   ImageSelector
	Signer   *approval.Signer
	Notifier notify.Notifier
	Topics   *TopicPicker
	// PublicBaseURL is where /approve is served.
	PublicBaseURL string
	Timeout       time.Duration
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
	// NewID defaults to uuid.NewString.
	NewID func() string
}

// Outcome is what one scheduled invocation produced.
type Outcome struct {
	RunID       string       `json:"run_id"`
	Topic       string       `json:"topic"`
	Text        string       `json:"text"`
	Score       int          `json:"score"`
	Attempts    int          `json:"attempts"`
	Exit        Exit         `json:"exit"`
	Image       visual.Image `json:"image"`
	ApprovalURL string       `json:"approval_url"`
	Critique    string       `json:"critique,omitempty"`
	History     []Turn       `json:"history,omitempty"`
}

// Orchestrator runs research → quality loop → image → approval email. Nothing
// is published here; that waits for the approval link.
type Orchestrator struct {
	d      Deps
	logger *slog.Logger
}

func NewOrchestrator(d Deps) (*Orchestrator, error) {
	var errs []error
	if d.Searcher == nil {
		errs = append(errs, errors.New("searcher is nil"))
	}
	if d.Loop == nil {
		errs = append(errs, errors.New("loop is nil"))
	}
	if d.Images == nil {
		errs = append(errs, errors.New("image selector is nil"))
	}
	if d.Signer == nil {
		errs = append(errs, errors.New("signer is nil"))
	}
	if d.Notifier == nil {
		errs = append(errs, errors.New("notifier is nil"))
	}
	if d.Topics == nil {
		errs = append(errs, errors.New("topic picker is nil"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return &Orchestrator{d: d, logger: logging.OrDefault(d.Logger, "orchestrator")}, nil
}

// Run executes one invocation. An empty topic picks one from the configured set.
// Terminal failures still try to email the operator; a failed failure email is
// logged and the original error is returned.
func (o *Orchestrator) Run(ctx context.Context, topic string) (Outcome, error) {
	out := Outcome{RunID: o.d.NewID()}
	logger := o.logger.With("run_id", out.RunID)
	if o.d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.d.Timeout)
		defer cancel()
	}

	start := time.Now()
	out, err := o.run(ctx, out, topic, logger)
	o.recordRun(out, err)
	if err != nil {
		logger.Error("run failed", "topic", out.Topic, "err", err, "elapsed", time.Since(start))
		o.notifyFailure(context.WithoutCancel(ctx), out, err, logger)
		return out, err
	}
	logger.Info("awaiting approval", "topic", out.Topic, "score", out.Score, "attempts", out.Attempts, "elapsed", time.Since(start))
	return out, nil
}

// recordRun counts each invocation exactly once. A candidate the loop accepted
// still counts as an error when a later step fails.
func (o *Orchestrator) recordRun(out Outcome, err error) {
	var qerr *QualityNotMetError
	switch {
	case err == nil:
		o.d.Metrics.RunFinished(string(out.Exit), out.Attempts)
	case errors.As(err, &qerr):
		o.d.Metrics.RunFinished(string(ExitQualityNotMet), qerr.Attempts)
	default:
		o.d.Metrics.RunFinished("error", out.Attempts)
	}
}

func (o *Orchestrator) run(ctx context.Context, out Outcome, topic string, logger *slog.Logger) (Outcome, error) {
	topic, err := o.d.Topics.Pick(topic)
	if err != nil {
		return out, err
	}
	out.Topic = topic
	logger.Info("run started", "topic", topic)

	rc, err := research.Gather(ctx, o.d.Searcher, topic)
	if err != nil {
		return out, err
	}
	logger.Debug("research gathered", "results", len(rc.Results))

	res, err := o.d.Loop.Run(ctx, out.RunID, topic, rc.String())
	if err != nil {
		return out, err
	}
	out.Text = res.Final.Text
	out.Score = res.Score
	out.Attempts = res.Attempts
	out.Exit = res.Exit
	out.Critique = res.Critique.Report
	out.History = res.History

	img, err := o.d.Images.Select(ctx, out.Text)
	if err != nil {
		return out, fmt.Errorf("select image: %w", err)
	}
	o.d.Metrics.ImageSelected(img.SafeDefault)
	out.Image = img

	token, sig, err := o.d.Signer.Seal(approval.Payload{Topic: topic, Text: out.Text, Image: img.URL})
	if err != nil {
		return out, fmt.Errorf("seal approval payload: %w", err)
	}
	out.ApprovalURL, err = approval.BuildURL(o.d.PublicBaseURL, token, sig)
	if err != nil {
		return out, err
	}

	if err := o.d.Notifier.Notify(ctx, approvalMessage(out)); err != nil {
		o.d.Metrics.NotifyFailed()
		return out, fmt.Errorf("send approval email: %w", err)
	}
	return out, nil
}

func (o *Orchestrator) notifyFailure(ctx context.Context, out Outcome, cause error, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := o.d.Notifier.Notify(ctx, failureMessage(out, cause)); err != nil {
		o.d.Metrics.NotifyFailed()
		logger.Error("failure notification not delivered", "err", err)
	}
}

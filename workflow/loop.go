package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"auto_linkedin_post_publisher/generator"
	"auto_linkedin_post_publisher/logging"
	"auto_linkedin_post_publisher/metrics"
)

// Author writes, scores and revises posts (generator.Agent).
type Author interface {
	Draft(ctx context.Context, topic, research string) (string, error)
	Critique(ctx context.Context, text, research string) (generator.CritiqueReport, error)
	Refine(ctx context.Context, topic string, prev generator.Candidate, critique generator.CritiqueReport, research string) (string, error)
}

// Result is an accepted post.
type Result struct {
	Final    generator.Candidate
	Score    int
	Critique generator.CritiqueReport
	Attempts int
	Exit     Exit
	History  []Turn
}

// Loop drives Transition with real LLM calls. Each step is sequential: a
// refinement depends on the previous critique.
type Loop struct {
	author  Author
	policy  Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewLoop(author Author, policy Policy, m *metrics.Metrics, logger *slog.Logger) (*Loop, error) {
	if author == nil {
		return nil, errors.New("author is nil")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Loop{author: author, policy: policy, metrics: m, logger: logging.OrDefault(logger, "workflow")}, nil
}

// Run iterates until a candidate is accepted or the attempts run out. At most
// Policy.MaxAttempts critiques are requested. A run that never reaches the floor
// returns *QualityNotMetError; LLM failures abort the run unchanged. Run outcomes
// are counted by the caller, which knows whether the run as a whole succeeded.
func (l *Loop) Run(ctx context.Context, id, topic, research string) (Result, error) {
	run := NewRun(id, topic, research)
	logger := l.logger.With("run_id", id)

	for !run.State.Terminal() {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%s: %w", run.State, err)
		}
		ev, err := l.step(ctx, run)
		if err != nil {
			return Result{}, err
		}
		if ev.Kind == EventCritiqued {
			l.metrics.CritiqueScored(ev.Critique.Score)
		}
		prev := run.BestScore
		run, err = Transition(l.policy, run, ev)
		if err != nil {
			return Result{}, err
		}
		if ev.Kind == EventCritiqued {
			logger.Info("critique", "attempt", run.Attempts, "score", ev.Critique.Score, "best", run.BestScore, "regression", ev.Critique.Score < prev)
		}
	}

	if run.State == StateFailed {
		logger.Warn("quality not met", "attempts", run.Attempts, "best", run.BestScore)
		return Result{}, &QualityNotMetError{
			Topic:     topic,
			Attempts:  run.Attempts,
			BestScore: run.BestScore,
			Last:      run.LastCritique,
		}
	}
	logger.Info("accepted", "exit", run.Exit, "attempts", run.Attempts, "score", run.BestScore)
	return Result{
		Final:    run.Best,
		Score:    run.BestScore,
		Critique: run.BestCritique,
		Attempts: run.Attempts,
		Exit:     run.Exit,
		History:  run.History,
	}, nil
}

func (l *Loop) step(ctx context.Context, run Run) (Event, error) {
	switch run.State {
	case StateDrafting:
		text, err := l.author.Draft(ctx, run.Topic, run.Research)
		if err != nil {
			return Event{}, fmt.Errorf("draft: %w", err)
		}
		return Event{Kind: EventDrafted, Text: text}, nil
	case StateCritiquing:
		report, err := l.author.Critique(ctx, run.Current.Text, run.Research)
		if err != nil {
			return Event{}, fmt.Errorf("critique attempt %d: %w", run.Attempts+1, err)
		}
		return Event{Kind: EventCritiqued, Critique: report}, nil
	case StateRefining:
		text, err := l.author.Refine(ctx, run.Topic, run.Best, run.BestCritique, run.Research)
		if err != nil {
			return Event{}, fmt.Errorf("refine after attempt %d: %w", run.Attempts, err)
		}
		return Event{Kind: EventRefined, Text: text}, nil
	}
	return Event{}, fmt.Errorf("%w: no step for state %s", ErrInvalidTransition, run.State)
}

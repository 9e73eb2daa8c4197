// Package workflow runs the draft → critique → refine quality-control loop and
// hands the accepted post to the approval gate.
package workflow

import (
	"errors"
	"fmt"
	"slices"

	"auto_linkedin_post_publisher/generator"
)

// State of one run. Accepted and Failed are terminal.
type State int

const (
	StateDrafting State = iota
	StateCritiquing
	StateRefining
	StateAccepted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDrafting:
		return "drafting"
	case StateCritiquing:
		return "critiquing"
	case StateRefining:
		return "refining"
	case StateAccepted:
		return "accepted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) Terminal() bool {
	return s == StateAccepted || s == StateFailed
}

// Exit names how a run ended.
type Exit string

const (
	ExitPerfect             Exit = "perfect"
	ExitFallbackAccept      Exit = "fallback_accept"
	ExitExhaustedAcceptable Exit = "exhausted_acceptable"
	ExitQualityNotMet       Exit = "quality_not_met"
)

// Policy holds the convergence thresholds.
type Policy struct {
	MaxAttempts            int
	PerfectScore           int
	HighQualityFloor       int
	MinAttemptsForFallback int
}

func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return errors.New("max attempts must be at least 1")
	case p.PerfectScore < 1 || p.PerfectScore > 100:
		return fmt.Errorf("perfect score %d out of range", p.PerfectScore)
	case p.HighQualityFloor < 0 || p.HighQualityFloor > p.PerfectScore:
		return fmt.Errorf("high quality floor %d out of range", p.HighQualityFloor)
	case p.MinAttemptsForFallback < 1:
		return errors.New("min attempts for fallback must be at least 1")
	}
	return nil
}

// Turn records one critique in the revision chain.
type Turn struct {
	Attempt    int                      `json:"attempt"`
	Candidate  generator.Candidate      `json:"candidate"`
	Critique   generator.CritiqueReport `json:"critique"`
	Regression bool                     `json:"regression"`
}

// Run is the state threaded through the loop. It lives in memory for one
// invocation only.
type Run struct {
	ID       string
	Topic    string
	Research string

	State   State
	Current generator.Candidate
	Best    generator.Candidate
	// BestScore is -1 until the first critique.
	BestScore    int
	BestCritique generator.CritiqueReport
	LastCritique generator.CritiqueReport
	FirstScore   int
	Attempts     int
	Exit         Exit
	History      []Turn
}

func NewRun(id, topic, research string) Run {
	return Run{ID: id, Topic: topic, Research: research, State: StateDrafting, BestScore: -1}
}

// EventKind is what just happened to a run.
type EventKind int

const (
	EventDrafted EventKind = iota
	EventCritiqued
	EventRefined
)

func (k EventKind) String() string {
	switch k {
	case EventDrafted:
		return "drafted"
	case EventCritiqued:
		return "critiqued"
	case EventRefined:
		return "refined"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

type Event struct {
	Kind     EventKind
	Text     string
	Critique generator.CritiqueReport
}

// ErrInvalidTransition means an event arrived in a state that cannot take it.
var ErrInvalidTransition = errors.New("invalid workflow transition")

// Transition is the pure state function of the loop. r is not modified.
//
// After a critique, the best candidate is updated when the score is at least the
// best so far; otherwise current is reset to best. Whatever is accepted is best,
// so the accepted score never falls below the first critique score. In the
// Refining state Current and Best are the same candidate.
func Transition(p Policy, r Run, ev Event) (Run, error) {
	switch {
	case r.State == StateDrafting && ev.Kind == EventDrafted:
		r.Current = generator.Candidate{Text: ev.Text, Iteration: 0}
		r.State = StateCritiquing
		return r, nil

	case r.State == StateRefining && ev.Kind == EventRefined:
		r.Current = generator.Candidate{Text: ev.Text, Iteration: r.Attempts}
		r.State = StateCritiquing
		return r, nil

	case r.State == StateCritiquing && ev.Kind == EventCritiqued:
		return afterCritique(p, r, ev.Critique), nil
	}
	return r, fmt.Errorf("%w: %s in state %s", ErrInvalidTransition, ev.Kind, r.State)
}

func afterCritique(p Policy, r Run, c generator.CritiqueReport) Run {
	r.Attempts++
	r.LastCritique = c
	if r.Attempts == 1 {
		r.FirstScore = c.Score
	}

	turn := Turn{Attempt: r.Attempts, Candidate: r.Current, Critique: c}
	if c.Score >= r.BestScore {
		r.Best = r.Current
		r.BestScore = c.Score
		r.BestCritique = c
	} else {
		turn.Regression = true
		r.Current = r.Best
	}
	r.History = append(slices.Clip(r.History), turn)

	switch {
	case c.Score >= p.PerfectScore:
		return accept(r, ExitPerfect)
	case r.Attempts >= p.MinAttemptsForFallback && c.Score >= p.HighQualityFloor:
		return accept(r, ExitFallbackAccept)
	case r.Attempts >= p.MaxAttempts:
		if r.BestScore >= p.HighQualityFloor {
			return accept(r, ExitExhaustedAcceptable)
		}
		r.State = StateFailed
		r.Exit = ExitQualityNotMet
		return r
	}
	r.State = StateRefining
	return r
}

func accept(r Run, exit Exit) Run {
	r.Current = r.Best
	r.State = StateAccepted
	r.Exit = exit
	return r
}

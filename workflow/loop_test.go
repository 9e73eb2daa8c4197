package workflow

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"auto_linkedin_post_publisher/generator"
)

// fakeAuthor returns scripted scores and numbered texts, and records what each
// refinement was asked to improve.
type fakeAuthor struct {
	scores     []int
	critiques  int
	refines    int
	refineFrom []generator.Candidate
	refineWith []generator.CritiqueReport
	critiqued  []string
	err        error
	errAt      string
	onDraft    func()
}

func (f *fakeAuthor) Draft(_ context.Context, topic, _ string) (string, error) {
	if f.onDraft != nil {
		f.onDraft()
	}
	if f.errAt == "draft" {
		return "", f.err
	}
	return "draft about " + topic, nil
}

func (f *fakeAuthor) Critique(_ context.Context, text, _ string) (generator.CritiqueReport, error) {
	if f.errAt == "critique" {
		return generator.CritiqueReport{}, f.err
	}
	f.critiqued = append(f.critiqued, text)
	score := f.scores[f.critiques]
	f.critiques++
	return generator.CritiqueReport{Score: score, Report: fmt.Sprintf("report for %q", text)}, nil
}

func (f *fakeAuthor) Refine(_ context.Context, _ string, prev generator.Candidate, c generator.CritiqueReport, _ string) (string, error) {
	f.refineFrom = append(f.refineFrom, prev)
	f.refineWith = append(f.refineWith, c)
	f.refines++
	return fmt.Sprintf("refinement %d", f.refines), nil
}

func defaultPolicy() Policy {
	return Policy{MaxAttempts: 15, PerfectScore: 100, HighQualityFloor: 90, MinAttemptsForFallback: 8}
}

func newTestLoop(t *testing.T, a Author, p Policy) *Loop {
	t.Helper()
	l, err := NewLoop(a, p, nil, nil)
	require.NoError(t, err)
	return l
}

func TestPerfectFirstDraftShortCircuits(t *testing.T) {
	a := &fakeAuthor{scores: []int{100}}
	res, err := newTestLoop(t, a, defaultPolicy()).Run(context.Background(), "r1", "Deep Work", "")
	require.NoError(t, err)
	require.Equal(t, 1, a.critiques)
	require.Zero(t, a.refines)
	require.Equal(t, ExitPerfect, res.Exit)
	require.Equal(t, "draft about Deep Work", res.Final.Text)
	require.Equal(t, 0, res.Final.Iteration)
}

func TestLionsManeRefinedOnce(t *testing.T) {
	a := &fakeAuthor{scores: []int{62, 100}}
	res, err := newTestLoop(t, a, defaultPolicy()).Run(context.Background(), "r1", "Lion's Mane Mushroom for Mental Clarity", "")
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)
	require.Equal(t, 100, res.Score)
	require.Equal(t, ExitPerfect, res.Exit)
	require.Equal(t, generator.Candidate{Text: "refinement 1", Iteration: 1}, res.Final)
	require.Equal(t, 62, a.refineWith[0].Score)
}

func TestRegressionIsDiscarded(t *testing.T) {
	a := &fakeAuthor{scores: []int{70, 50, 100}}
	res, err := newTestLoop(t, a, defaultPolicy()).Run(context.Background(), "r1", "Focus", "")
	require.NoError(t, err)

	require.Len(t, a.refineFrom, 2)
	// The second refinement starts over from the 70-point draft, with its critique.
	require.Equal(t, generator.Candidate{Text: "draft about Focus", Iteration: 0}, a.refineFrom[1])
	require.Equal(t, 70, a.refineWith[1].Score)
	require.Equal(t, "refinement 2", res.Final.Text)

	regressions := []bool{}
	for _, turn := range res.History {
		regressions = append(regressions, turn.Regression)
	}
	require.Equal(t, []bool{false, true, false}, regressions)
}

func TestQualityNotMetAfterMaxAttempts(t *testing.T) {
	p := defaultPolicy()
	p.MaxAttempts = 3
	a := &fakeAuthor{scores: []int{40, 55, 50}}
	_, err := newTestLoop(t, a, p).Run(context.Background(), "r1", "Sleep", "")

	var qerr *QualityNotMetError
	require.ErrorAs(t, err, &qerr)
	require.Equal(t, 3, qerr.Attempts)
	require.Equal(t, 55, qerr.BestScore)
	require.Equal(t, 50, qerr.Last.Score)
	require.Equal(t, 3, a.critiques)
}

func TestConstantLowScoreFailsWithLastReport(t *testing.T) {
	p := defaultPolicy()
	p.MaxAttempts = 3
	a := &fakeAuthor{scores: []int{40, 40, 40}}
	_, err := newTestLoop(t, a, p).Run(context.Background(), "r1", "Sleep", "")

	var qerr *QualityNotMetError
	require.ErrorAs(t, err, &qerr)
	require.Equal(t, 3, a.critiques)
	require.Equal(t, 40, qerr.Last.Score)
	require.Equal(t, `report for "refinement 2"`, qerr.Last.Report)
}

func TestUnparsableCritiqueScoresZeroAndKeepsRefining(t *testing.T) {
	llm := generator.NewScriptedLLM(
		"First take on focus.",
		"Looks great to me!",
		"Second take on focus.",
		"SCORE: 100\nREPORT: [x] every rule met",
	)
	agent, err := generator.NewAgent(llm, generator.Voice{Brand: "Brand"})
	require.NoError(t, err)

	res, err := newTestLoop(t, agent, defaultPolicy()).Run(context.Background(), "r1", "Focus", "")
	require.NoError(t, err)
	require.Equal(t, 2, res.Attempts)
	require.Equal(t, 100, res.Score)
	require.Equal(t, "Second take on focus.", res.Final.Text)
	require.Equal(t, 0, res.History[0].Critique.Score)
}

func TestFallbackAcceptAfterMinimumAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 6, PerfectScore: 100, HighQualityFloor: 90, MinAttemptsForFallback: 2}
	a := &fakeAuthor{scores: []int{60, 92}}
	res, err := newTestLoop(t, a, p).Run(context.Background(), "r1", "Habits", "")
	require.NoError(t, err)
	require.Equal(t, ExitFallbackAccept, res.Exit)
	require.Equal(t, 92, res.Score)
	require.Equal(t, 2, res.Attempts)
}

func TestHighScoreBeforeMinimumKeepsRefining(t *testing.T) {
	p := Policy{MaxAttempts: 6, PerfectScore: 100, HighQualityFloor: 90, MinAttemptsForFallback: 3}
	a := &fakeAuthor{scores: []int{95, 93, 91}}
	res, err := newTestLoop(t, a, p).Run(context.Background(), "r1", "Habits", "")
	require.NoError(t, err)
	require.Equal(t, 3, res.Attempts)
	require.Equal(t, ExitFallbackAccept, res.Exit)
	// The regressions are dropped; the 95-point draft wins.
	require.Equal(t, 95, res.Score)
	require.Equal(t, "draft about Habits", res.Final.Text)
}

func TestExhaustedButAcceptableReturnsBest(t *testing.T) {
	p := Policy{MaxAttempts: 3, PerfectScore: 100, HighQualityFloor: 90, MinAttemptsForFallback: 8}
	a := &fakeAuthor{scores: []int{91, 85, 88}}
	res, err := newTestLoop(t, a, p).Run(context.Background(), "r1", "Tea", "")
	require.NoError(t, err)
	require.Equal(t, ExitExhaustedAcceptable, res.Exit)
	require.Equal(t, 91, res.Score)
	require.Equal(t, "draft about Tea", res.Final.Text)
}

func TestCritiqueCallsAreBounded(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 5, 15} {
		p := defaultPolicy()
		p.MaxAttempts = maxAttempts
		scores := make([]int, 20)
		a := &fakeAuthor{scores: scores}
		_, err := newTestLoop(t, a, p).Run(context.Background(), "r1", "x", "")
		require.Error(t, err)
		require.Equal(t, maxAttempts, a.critiques, "max %d", maxAttempts)
		require.Equal(t, maxAttempts-1, a.refines, "max %d", maxAttempts)
	}
}

func TestAcceptedScoreNeverBelowFirstScore(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	p := Policy{MaxAttempts: 6, PerfectScore: 100, HighQualityFloor: 80, MinAttemptsForFallback: 3}
	for i := 0; i < 200; i++ {
		scores := make([]int, p.MaxAttempts)
		for j := range scores {
			scores[j] = 60 + rng.IntN(41)
		}
		a := &fakeAuthor{scores: scores}
		res, err := newTestLoop(t, a, p).Run(context.Background(), "r1", "x", "")
		if err != nil {
			continue
		}
		require.GreaterOrEqual(t, res.Score, scores[0], "scores %v", scores)
		require.Contains(t, a.critiqued, res.Final.Text)
	}
}

func TestRemoteFailureAbortsRun(t *testing.T) {
	boom := &generator.RemoteCallError{Op: "chat completion", StatusCode: 503, Err: errors.New("unavailable")}
	a := &fakeAuthor{scores: []int{10}, err: boom, errAt: "critique"}
	_, err := newTestLoop(t, a, defaultPolicy()).Run(context.Background(), "r1", "x", "")

	var remote *generator.RemoteCallError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, 503, remote.StatusCode)
}

func TestRunStopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &fakeAuthor{scores: []int{10, 10}, onDraft: cancel}
	_, err := newTestLoop(t, a, defaultPolicy()).Run(ctx, "r1", "x", "")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, a.critiques)
}

func TestTransitionIsPure(t *testing.T) {
	p := defaultPolicy()
	r := NewRun("r1", "t", "")
	r, err := Transition(p, r, Event{Kind: EventDrafted, Text: "a"})
	require.NoError(t, err)
	r, err = Transition(p, r, Event{Kind: EventCritiqued, Critique: generator.CritiqueReport{Score: 70}})
	require.NoError(t, err)
	require.Equal(t, StateRefining, r.State)

	before := r
	beforeHistory := append([]Turn(nil), r.History...)
	next, err := Transition(p, r, Event{Kind: EventRefined, Text: "b"})
	require.NoError(t, err)
	next, err = Transition(p, next, Event{Kind: EventCritiqued, Critique: generator.CritiqueReport{Score: 40}})
	require.NoError(t, err)

	if diff := cmp.Diff(beforeHistory, before.History); diff != "" {
		t.Fatalf("history mutated (-want +got):\n%s", diff)
	}
	require.Equal(t, StateRefining, next.State)
	require.Equal(t, "a", next.Current.Text)
	require.Equal(t, 70, next.BestScore)
	require.True(t, next.History[1].Regression)
}

func TestTransitionRejectsOutOfOrderEvents(t *testing.T) {
	p := defaultPolicy()
	r := NewRun("r1", "t", "")
	_, err := Transition(p, r, Event{Kind: EventCritiqued})
	require.ErrorIs(t, err, ErrInvalidTransition)

	r.State = StateAccepted
	_, err = Transition(p, r, Event{Kind: EventRefined, Text: "x"})
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPolicyValidate(t *testing.T) {
	require.NoError(t, defaultPolicy().Validate())
	require.Error(t, Policy{MaxAttempts: 0, PerfectScore: 100, MinAttemptsForFallback: 1}.Validate())
	require.Error(t, Policy{MaxAttempts: 3, PerfectScore: 100, HighQualityFloor: 101, MinAttemptsForFallback: 1}.Validate())
	_, err := NewLoop(&fakeAuthor{}, Policy{}, nil, nil)
	require.Error(t, err)
}

func TestTopicPicker(t *testing.T) {
	p := NewTopicPicker([]string{" ", "Sleep", "Focus"}, func(n int) int { return n - 1 })
	got, err := p.Pick("")
	require.NoError(t, err)
	require.Equal(t, "Focus", got)

	got, err = p.Pick("  Lion's Mane  ")
	require.NoError(t, err)
	require.Equal(t, "Lion's Mane", got)

	_, err = NewTopicPicker(nil, nil).Pick("")
	require.Error(t, err)
}

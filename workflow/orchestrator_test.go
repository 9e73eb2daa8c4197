package workflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"auto_linkedin_post_publisher/approval"
	"auto_linkedin_post_publisher/generator"
	"auto_linkedin_post_publisher/metrics"
	"auto_linkedin_post_publisher/notify"
	"auto_linkedin_post_publisher/research"
	"auto_linkedin_post_publisher/visual"
)

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

type stubSearcher struct {
	results []research.Result
	err     error
}

func (s stubSearcher) Search(context.Context, string) ([]research.Result, error) {
	return s.results, s.err
}

type stubImages struct {
	img visual.Image
	err error
}

func (s stubImages) Select(context.Context, string) (visual.Image, error) {
	return s.img, s.err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	fail error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.fail
}

const testSecret = "approval-secret"

func newTestOrchestrator(t *testing.T, author Author, p Policy, images ImageSelector, n notify.Notifier, m *metrics.Metrics) *Orchestrator {
	t.Helper()
	signer, err := approval.NewSigner(testSecret)
	require.NoError(t, err)
	o, err := NewOrchestrator(Deps{
		Searcher: stubSearcher{results: []research.Result{
			{Title: "Hericium erinaceus", Description: "Lion's mane and nerve growth factor", URL: "https://a.example"},
		}},
		Loop:          newTestLoop(t, author, p),
		Images:        images,
		Signer:        signer,
		Notifier:      n,
		Topics:        NewTopicPicker([]string{"Lion's Mane Mushroom for Mental Clarity"}, nil),
		PublicBaseURL: "https://brand.example",
		Metrics:       m,
		NewID:         func() string { return "run-1" },
	})
	require.NoError(t, err)
	return o
}

// Lion's Mane end to end with the real agent: draft 62, refine, score 100.
func TestOrchestratorLionsManeScenario(t *testing.T) {
	llm := generator.NewScriptedLLM(
		"Lion's mane is having a moment.\n\nHere is why your focus might thank you.\n\n#Focus #Mushrooms #Clarity",
		"SCORE: 62\nREPORT: [ ] hook is flat\n[x] three hashtags",
		"Your brain fog has a fungal rival.\n\nLion's mane supports nerve growth factor.\n\nWould you try it?\n\n#Focus #Mushrooms #Clarity",
		"SCORE: 100\nREPORT: [x] every rule met",
	)
	agent, err := generator.NewAgent(llm, generator.Voice{Brand: "Brand", Rules: []string{"Open with a hook"}})
	require.NoError(t, err)

	n := &recordingNotifier{}
	m := metrics.New()
	o := newTestOrchestrator(t, agent, defaultPolicy(), stubImages{img: visual.Image{URL: "https://images.example/mushroom.jpg", Query: "mushroom"}}, n, m)

	out, err := o.Run(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, 4, llm.Calls())
	require.Equal(t, 2, out.Attempts)
	require.Equal(t, 100, out.Score)
	require.Equal(t, ExitPerfect, out.Exit)
	require.Equal(t, "Lion's Mane Mushroom for Mental Clarity", out.Topic)
	require.True(t, strings.HasPrefix(out.Text, "Your brain fog"))
	require.Contains(t, llm.Prompts[0].User, "nerve growth factor")

	token, sig, err := approval.ParseURL(out.ApprovalURL)
	require.NoError(t, err)
	signer, _ := approval.NewSigner(testSecret)
	payload, err := signer.Open(token, sig)
	require.NoError(t, err)
	require.Equal(t, approval.Payload{Topic: out.Topic, Text: out.Text, Image: "https://images.example/mushroom.jpg"}, payload)

	require.Len(t, n.sent, 1)
	require.Equal(t, "Approve LinkedIn post: Lion's Mane Mushroom for Mental Clarity", n.sent[0].Subject)
	require.Contains(t, n.sent[0].Markdown, out.ApprovalURL)
	require.Contains(t, n.sent[0].Markdown, "every rule met")
	require.Contains(t, n.sent[0].Markdown, "- attempt 1: 62")
	require.Contains(t, scrape(t, m), `linkedin_publisher_workflow_runs_total{outcome="perfect"} 1`)
}

func TestOrchestratorQualityNotMetSendsFailureEmail(t *testing.T) {
	p := defaultPolicy()
	p.MaxAttempts = 3
	n := &recordingNotifier{}
	m := metrics.New()
	o := newTestOrchestrator(t, &fakeAuthor{scores: []int{30, 40, 35}}, p, stubImages{}, n, m)

	out, err := o.Run(context.Background(), "Sleep")
	var qerr *QualityNotMetError
	require.ErrorAs(t, err, &qerr)
	require.Empty(t, out.ApprovalURL)

	require.Len(t, n.sent, 1)
	require.Equal(t, "LinkedIn workflow failed: Sleep", n.sent[0].Subject)
	require.Contains(t, n.sent[0].Markdown, "### Last critique")
	require.Contains(t, n.sent[0].Markdown, `report for "refinement 2"`)
	require.Contains(t, scrape(t, m), `linkedin_publisher_workflow_runs_total{outcome="quality_not_met"} 1`)
}

func TestOrchestratorCriticalAssetFails(t *testing.T) {
	n := &recordingNotifier{}
	m := metrics.New()
	o := newTestOrchestrator(t, &fakeAuthor{scores: []int{100}}, defaultPolicy(), stubImages{err: visual.ErrCriticalAsset}, n, m)

	_, err := o.Run(context.Background(), "Focus")
	require.ErrorIs(t, err, visual.ErrCriticalAsset)
	require.Len(t, n.sent, 1)
	require.Contains(t, n.sent[0].Subject, "failed")

	// The loop accepted a candidate, but the run failed: counted once, as an error.
	body := scrape(t, m)
	require.Contains(t, body, `linkedin_publisher_workflow_runs_total{outcome="error"} 1`)
	require.NotContains(t, body, `outcome="perfect"`)
}

func TestOrchestratorKeepsOriginalErrorWhenFailureEmailFails(t *testing.T) {
	n := &recordingNotifier{fail: errors.New("smtp down")}
	o := newTestOrchestrator(t, &fakeAuthor{scores: []int{100}}, defaultPolicy(), stubImages{img: visual.Image{URL: "https://i.example/a.jpg"}}, n, metrics.New())

	out, err := o.Run(context.Background(), "Focus")
	require.ErrorContains(t, err, "send approval email")
	require.ErrorContains(t, err, "smtp down")
	// The link is still returned so the operator can approve by hand.
	require.NotEmpty(t, out.ApprovalURL)
	require.Len(t, n.sent, 2)
}

func TestOrchestratorResearchFailure(t *testing.T) {
	signer, err := approval.NewSigner(testSecret)
	require.NoError(t, err)
	n := &recordingNotifier{}
	o, err := NewOrchestrator(Deps{
		Searcher:      stubSearcher{err: &research.APIError{StatusCode: 429, Body: "slow down"}},
		Loop:          newTestLoop(t, &fakeAuthor{scores: []int{100}}, defaultPolicy()),
		Images:        stubImages{},
		Signer:        signer,
		Notifier:      n,
		Topics:        NewTopicPicker([]string{"Focus"}, nil),
		PublicBaseURL: "https://brand.example",
	})
	require.NoError(t, err)

	_, err = o.Run(context.Background(), "")
	var apiErr *research.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Len(t, n.sent, 1)
}

func TestNewOrchestratorReportsMissingDeps(t *testing.T) {
	_, err := NewOrchestrator(Deps{})
	require.ErrorContains(t, err, "searcher is nil")
	require.ErrorContains(t, err, "notifier is nil")
}

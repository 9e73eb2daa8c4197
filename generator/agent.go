package generator

import (
	"context"
	"errors"
	"strings"
)

// Agent is the Draft Generator, Critic and Refiner. Each method is one LLM call;
// failures propagate without retry.
type Agent struct {
	llm   LLMClient
	voice Voice
}

func NewAgent(llm LLMClient, voice Voice) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	return &Agent{llm: llm, voice: voice}, nil
}

// Draft produces the first candidate text for topic.
func (a *Agent) Draft(ctx context.Context, topic, research string) (string, error) {
	raw, err := a.llm.Complete(ctx, BuildDraftPrompt(a.voice, topic, research))
	if err != nil {
		return "", err
	}
	return PostProcess(raw)
}

// Critique scores text against the voice rules.
func (a *Agent) Critique(ctx context.Context, text, research string) (CritiqueReport, error) {
	raw, err := a.llm.Complete(ctx, BuildCritiquePrompt(a.voice, text, research))
	if err != nil {
		return CritiqueReport{}, err
	}
	return ParseCritique(raw), nil
}

// Refine rewrites prev according to critique.
func (a *Agent) Refine(ctx context.Context, topic string, prev Candidate, critique CritiqueReport, research string) (string, error) {
	raw, err := a.llm.Complete(ctx, BuildRefinePrompt(a.voice, topic, prev, critique, research))
	if err != nil {
		return "", err
	}
	return PostProcess(raw)
}

// VisualConcept describes a scene that illustrates text.
func (a *Agent) VisualConcept(ctx context.Context, text string) (string, error) {
	raw, err := a.llm.Complete(ctx, BuildConceptPrompt(text))
	if err != nil {
		return "", err
	}
	return oneLine(raw)
}

// ImageQuery converts a scene description into a short search query.
func (a *Agent) ImageQuery(ctx context.Context, concept string) (string, error) {
	raw, err := a.llm.Complete(ctx, BuildImageQueryPrompt(concept))
	if err != nil {
		return "", err
	}
	return oneLine(raw)
}

func oneLine(raw string) (string, error) {
	s, err := PostProcess(raw)
	if err != nil {
		return "", err
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), ".'\""), nil
}

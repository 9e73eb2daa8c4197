package generator

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockLLM is an offline stand-in for local runs. It drafts a fixed post and
// always scores it 100.
type MockLLM struct{}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	switch {
	case strings.HasPrefix(prompt.System, "You are a strict LinkedIn editor"):
		return "SCORE: 100\nREPORT: [x] all rules met", nil
	case strings.HasPrefix(prompt.System, "You are a photo editor"):
		return "a steaming mug on a wooden desk at sunrise", nil
	case strings.HasPrefix(prompt.System, "Convert the scene"):
		return "mug desk sunrise", nil
	}
	var sb strings.Builder
	sb.WriteString("Your focus is a habit, not a mood.\n\n")
	sb.WriteString("Small rituals compound. This is a local draft generated without a model.\n\n")
	sb.WriteString(prompt.User)
	sb.WriteString("\n\nWhat ritual keeps you sharp?\n\n#Focus #Wellness #Habits")
	return sb.String(), nil
}

// ScriptedLLM replays canned responses in order and records every prompt. Each
// response is either a string or an error.
type ScriptedLLM struct {
	mu        sync.Mutex
	responses []any
	Prompts   []Prompt
}

func NewScriptedLLM(responses ...any) *ScriptedLLM {
	return &ScriptedLLM{responses: responses}
}

func (s *ScriptedLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Prompts = append(s.Prompts, prompt)
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scripted llm: no response left for call %d", len(s.Prompts))
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	switch v := next.(type) {
	case error:
		return "", v
	case string:
		return v, nil
	default:
		return fmt.Sprint(v), nil
	}
}

// Calls reports how many completions were requested.
func (s *ScriptedLLM) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Prompts)
}

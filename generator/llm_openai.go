package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Base URLs of the OpenAI-compatible endpoints the providers expose.
const (
	perplexityBaseURL = "https://api.perplexity.ai"
	geminiBaseURL     = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// OpenAILLM implements LLMClient using the official openai-go SDK (chat completions).
// Perplexity and Gemini are reached through their OpenAI-compatible endpoints.
type OpenAILLM struct {
	Provider string
	Model    string
	client   openai.Client
}

func NewOpenAILLMFromConfig(cfg *LLMSettings) (*OpenAILLM, error) {
	if cfg == nil {
		return nil, errors.New("llm config is nil")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key missing; provide llm.api_key or LLM_API_KEY")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm model is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		switch strings.ToLower(cfg.Provider) {
		case "perplexity":
			baseURL = perplexityBaseURL
		case "gemini":
			baseURL = geminiBaseURL
		}
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAILLM{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		client:   openai.NewClient(opts...),
	}, nil
}

func (o *OpenAILLM) Complete(ctx context.Context, prompt Prompt) (string, error) {
	msgs := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(prompt.System),
	}
	for _, h := range prompt.History {
		switch h.Role {
		case RoleAssistant:
			msgs = append(msgs, openai.ChatCompletionMessageParamOfAssistant(h.Content))
		default:
			msgs = append(msgs, openai.UserMessage(h.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(prompt.User))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: msgs,
	})
	if err != nil {
		callErr := &RemoteCallError{Op: o.Provider + " chat completion", Err: err}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			callErr.StatusCode = apiErr.StatusCode
		}
		return "", callErr
	}
	if len(resp.Choices) == 0 {
		return "", &RemoteCallError{Op: o.Provider + " chat completion", Err: fmt.Errorf("empty choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

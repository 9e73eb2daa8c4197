package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"auto_linkedin_post_publisher/approval"
	"auto_linkedin_post_publisher/config"
	"auto_linkedin_post_publisher/generator"
	"auto_linkedin_post_publisher/logging"
	"auto_linkedin_post_publisher/metrics"
	"auto_linkedin_post_publisher/notify"
	"auto_linkedin_post_publisher/publisher"
	"auto_linkedin_post_publisher/research"
	"auto_linkedin_post_publisher/visual"
	"auto_linkedin_post_publisher/workflow"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func buildLLM(cfg config.Config) (generator.LLMClient, error) {
	if cfg.LLM == nil || cfg.LLM.Provider == "" {
		return nil, fmt.Errorf("llm config missing; please set llm.provider/model and LLM_API_KEY")
	}
	settings := &generator.LLMSettings{
		Provider: cfg.LLM.Provider,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		BaseURL:  cfg.LLM.BaseURL,
	}
	switch strings.ToLower(cfg.LLM.Provider) {
	case "mock":
		return generator.MockLLM{}, nil
	case "openai", "perplexity", "gemini":
		return generator.NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek only speaks the OpenAI protocol through a configured endpoint.
		if cfg.LLM.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		return generator.NewOpenAILLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %s not supported", cfg.LLM.Provider)
	}
}

func buildAgent(cfg config.Config) (*generator.Agent, error) {
	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	return generator.NewAgent(llm, generator.Voice{
		Brand:    cfg.Content.Brand,
		Audience: cfg.Content.Audience,
		Rules:    cfg.Content.Rules,
	})
}

// buildNotifier returns the email adapter, or a stdout writer for dry runs.
func buildNotifier(cfg config.Config, dryRun bool) (notify.Notifier, error) {
	if dryRun {
		return notify.LogNotifier{W: os.Stdout, Logger: logging.New("notify")}, nil
	}
	if err := cfg.ValidateNotify(); err != nil {
		return nil, err
	}
	return notify.NewEmailNotifier(notify.EmailConfig{
		APIKey:  cfg.Email.APIKey,
		BaseURL: cfg.Email.BaseURL,
		From:    cfg.Email.From,
		To:      cfg.Email.To,
	}, httpClient)
}

func buildOrchestrator(cfg config.Config, m *metrics.Metrics, dryRun bool) (*workflow.Orchestrator, error) {
	if err := cfg.ValidatePipeline(); err != nil {
		return nil, err
	}
	agent, err := buildAgent(cfg)
	if err != nil {
		return nil, err
	}
	brave, err := research.NewBraveClient(cfg.Search.APIKey, cfg.Search.BaseURL, cfg.Search.Count, httpClient)
	if err != nil {
		return nil, err
	}
	var searcher research.Searcher = brave
	if ttl := cfg.SearchCacheTTL(); ttl > 0 {
		searcher = research.NewCachedSearcher(brave, 64, ttl)
	}
	unsplash, err := visual.NewUnsplashClient(cfg.Visual.AccessKey, cfg.Visual.BaseURL, httpClient)
	if err != nil {
		return nil, err
	}
	selector, err := visual.NewSelector(agent, unsplash, visual.NewHTTPProber(httpClient), visual.SelectorConfig{
		Size:          cfg.Visual.Size,
		FallbackQuery: cfg.Visual.FallbackQuery,
		SafeImageURL:  cfg.Visual.SafeImageURL,
		RetryDelay:    cfg.RetryDelay(),
	}, logging.New("visual"))
	if err != nil {
		return nil, err
	}
	loop, err := workflow.NewLoop(agent, workflow.Policy{
		MaxAttempts:            cfg.Workflow.MaxAttempts,
		PerfectScore:           cfg.Workflow.PerfectScore,
		HighQualityFloor:       cfg.Workflow.HighQualityFloor,
		MinAttemptsForFallback: cfg.Workflow.MinAttemptsForFallback,
	}, m, logging.New("workflow"))
	if err != nil {
		return nil, err
	}
	signer, err := approval.NewSigner(cfg.Approval.Secret)
	if err != nil {
		return nil, err
	}
	notifier, err := buildNotifier(cfg, dryRun)
	if err != nil {
		return nil, err
	}
	return workflow.NewOrchestrator(workflow.Deps{
		Searcher:      searcher,
		Loop:          loop,
		Images:        selector,
		Signer:        signer,
		Notifier:      notifier,
		Topics:        workflow.NewTopicPicker(cfg.Workflow.Topics, nil),
		PublicBaseURL: cfg.PublicBaseURL,
		Timeout:       cfg.RunTimeout(),
		Metrics:       m,
		Logger:        logging.New("orchestrator"),
	})
}

func buildPublisher(cfg config.Config) (*publisher.LinkedIn, error) {
	return publisher.New(publisher.Config{
		AccessToken: cfg.LinkedIn.AccessToken,
		AuthorURN:   cfg.LinkedIn.AuthorURN,
		BaseURL:     cfg.LinkedIn.BaseURL,
	}, httpClient, logging.New("publisher"))
}

func buildExecutor(cfg config.Config) (*approval.Executor, error) {
	if err := cfg.ValidatePublish(); err != nil {
		return nil, err
	}
	signer, err := approval.NewSigner(cfg.Approval.Secret)
	if err != nil {
		return nil, err
	}
	pub, err := buildPublisher(cfg)
	if err != nil {
		return nil, err
	}
	return approval.NewExecutor(signer, pub, logging.New("approval"))
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is built once in main and handed to every component constructor.
type Config struct {
	ServerAddr string `json:"server_addr,omitempty" yaml:"server_addr,omitempty"`
	// PublicBaseURL is the externally reachable base used in approval links.
	PublicBaseURL string `json:"public_base_url,omitempty" yaml:"public_base_url,omitempty"`
	// TrustProxy keys the approval rate limit on X-Forwarded-For. Enable only
	// behind a reverse proxy that sets the header.
	TrustProxy bool `json:"trust_proxy,omitempty" yaml:"trust_proxy,omitempty"`

	LLM      *LLMConfig     `json:"llm,omitempty" yaml:"llm,omitempty"`
	Search   SearchConfig   `json:"search" yaml:"search"`
	Visual   VisualConfig   `json:"visual" yaml:"visual"`
	LinkedIn LinkedInConfig `json:"linkedin" yaml:"linkedin"`
	Email    EmailConfig    `json:"email" yaml:"email"`
	Approval ApprovalConfig `json:"approval" yaml:"approval"`
	Cron     CronConfig     `json:"cron" yaml:"cron"`
	Workflow WorkflowConfig `json:"workflow" yaml:"workflow"`
	Content  ContentConfig  `json:"content" yaml:"content"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// LLMConfig selects the OpenAI-compatible text model.
type LLMConfig struct {
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	APIKey   string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

type SearchConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Count   int    `json:"count,omitempty" yaml:"count,omitempty"`
	// CacheMinutes keeps results per topic in memory; negative disables.
	CacheMinutes int `json:"cache_minutes,omitempty" yaml:"cache_minutes,omitempty"`
}

type VisualConfig struct {
	AccessKey       string `json:"access_key,omitempty" yaml:"access_key,omitempty"`
	BaseURL         string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Size            string `json:"size,omitempty" yaml:"size,omitempty"`
	FallbackQuery   string `json:"fallback_query,omitempty" yaml:"fallback_query,omitempty"`
	SafeImageURL    string `json:"safe_image_url,omitempty" yaml:"safe_image_url,omitempty"`
	RetryDelayMilli int    `json:"retry_delay_ms,omitempty" yaml:"retry_delay_ms,omitempty"`
}

type LinkedInConfig struct {
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`
	// AuthorURN is urn:li:person:<id> or urn:li:organization:<id>.
	AuthorURN string `json:"author_urn,omitempty" yaml:"author_urn,omitempty"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

type EmailConfig struct {
	APIKey  string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	From    string `json:"from,omitempty" yaml:"from,omitempty"`
	To      string `json:"to,omitempty" yaml:"to,omitempty"`
}

type ApprovalConfig struct {
	Secret string `json:"secret,omitempty" yaml:"secret,omitempty"`
}

type CronConfig struct {
	Secret   string `json:"secret,omitempty" yaml:"secret,omitempty"`
	Schedule string `json:"schedule,omitempty" yaml:"schedule,omitempty"`
}

// WorkflowConfig tunes the quality-control loop. MaxAttempts sequential LLM round
// trips must fit inside RunTimeoutSeconds.
type WorkflowConfig struct {
	Topics                 []string `json:"topics,omitempty" yaml:"topics,omitempty"`
	MaxAttempts            int      `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	PerfectScore           int      `json:"perfect_score,omitempty" yaml:"perfect_score,omitempty"`
	HighQualityFloor       int      `json:"high_quality_floor,omitempty" yaml:"high_quality_floor,omitempty"`
	MinAttemptsForFallback int      `json:"min_attempts_for_fallback,omitempty" yaml:"min_attempts_for_fallback,omitempty"`
	RunTimeoutSeconds      int      `json:"run_timeout_seconds,omitempty" yaml:"run_timeout_seconds,omitempty"`
}

// ContentConfig carries the brand voice. Rules is ordered and shared by the
// draft, critique and refine prompts.
type ContentConfig struct {
	Brand    string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Audience string   `json:"audience,omitempty" yaml:"audience,omitempty"`
	Rules    []string `json:"rules,omitempty" yaml:"rules,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}

// Load reads a JSON or YAML config from disk (chosen by extension) and fills defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse yaml config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse json config %s: %w", path, err)
		}
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyEnv overrides secrets from the environment. Only main calls this.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	if c.LLM == nil {
		c.LLM = &LLMConfig{}
	}
	set(&c.LLM.APIKey, "LLM_API_KEY")
	set(&c.Search.APIKey, "BRAVE_API_KEY")
	set(&c.Visual.AccessKey, "UNSPLASH_ACCESS_KEY")
	set(&c.LinkedIn.AccessToken, "LINKEDIN_ACCESS_TOKEN")
	set(&c.LinkedIn.AuthorURN, "LINKEDIN_AUTHOR_URN")
	set(&c.Email.APIKey, "RESEND_API_KEY")
	set(&c.Approval.Secret, "APPROVAL_SECRET")
	set(&c.Cron.Secret, "CRON_SECRET")
	set(&c.PublicBaseURL, "PUBLIC_BASE_URL")
}

// RunTimeout is the ceiling for one workflow run.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Workflow.RunTimeoutSeconds) * time.Second
}

// SearchCacheTTL is zero when caching is disabled.
func (c Config) SearchCacheTTL() time.Duration {
	if c.Search.CacheMinutes <= 0 {
		return 0
	}
	return time.Duration(c.Search.CacheMinutes) * time.Minute
}

// RetryDelay is the fixed pause before the single image-search retry.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Visual.RetryDelayMilli) * time.Millisecond
}

// ValidatePipeline checks what a generation run needs.
func (c Config) ValidatePipeline() error {
	var errs []error
	if c.LLM == nil || c.LLM.Provider == "" {
		errs = append(errs, errors.New("llm.provider is required"))
	}
	if c.Search.APIKey == "" {
		errs = append(errs, errors.New("search.api_key is required"))
	}
	if c.Visual.AccessKey == "" {
		errs = append(errs, errors.New("visual.access_key is required"))
	}
	if c.PublicBaseURL == "" {
		errs = append(errs, errors.New("public_base_url is required"))
	}
	if c.Approval.Secret == "" {
		errs = append(errs, errors.New("approval.secret is required"))
	}
	if len(c.Workflow.Topics) == 0 {
		errs = append(errs, errors.New("workflow.topics must not be empty"))
	}
	if c.Workflow.HighQualityFloor > c.Workflow.PerfectScore {
		errs = append(errs, fmt.Errorf("workflow.high_quality_floor %d exceeds perfect_score %d",
			c.Workflow.HighQualityFloor, c.Workflow.PerfectScore))
	}
	return errors.Join(errs...)
}

// ValidateNotify checks the email adapter settings.
func (c Config) ValidateNotify() error {
	if c.Email.APIKey == "" || c.Email.From == "" || c.Email.To == "" {
		return errors.New("email.api_key, email.from and email.to are required")
	}
	return nil
}

// ValidatePublish checks what the approval executor needs.
func (c Config) ValidatePublish() error {
	var errs []error
	if c.Approval.Secret == "" {
		errs = append(errs, errors.New("approval.secret is required"))
	}
	if c.LinkedIn.AccessToken == "" || c.LinkedIn.AuthorURN == "" {
		errs = append(errs, errors.New("linkedin.access_token and linkedin.author_urn are required"))
	}
	return errors.Join(errs...)
}

package config

const (
	DefaultMaxAttempts            = 15
	DefaultPerfectScore           = 100
	DefaultHighQualityFloor       = 90
	DefaultMinAttemptsForFallback = 8
	DefaultRunTimeoutSeconds      = 280

	DefaultSearchBaseURL   = "https://api.search.brave.com/res/v1"
	DefaultSearchCount     = 5
	DefaultSearchCacheMin  = 360
	DefaultVisualBaseURL   = "https://api.unsplash.com"
	DefaultFallbackQuery   = "calm nature wellness morning light"
	DefaultSafeImageURL    = "https://www.example.com/images/brand-safe-default.jpg"
	DefaultRetryDelayMilli = 1500
	DefaultLinkedInBaseURL = "https://api.linkedin.com"
	DefaultEmailBaseURL    = "https://api.resend.com"
	DefaultCronSchedule    = "0 9 * * 1,3,5"
)

// DefaultRules is the house style used when content.rules is empty.
var DefaultRules = []string{
	"Open with a one-line hook that creates curiosity; no greeting.",
	"Keep the post between 120 and 250 words.",
	"Use short paragraphs of one or two sentences separated by blank lines.",
	"Plain text only: no markdown, no bold, no headings.",
	"Cite evidence in plain words; never include bracketed citation markers like [1].",
	"No medical claims: say 'may support' instead of 'cures' or 'treats'.",
	"Use at most two emojis.",
	"End with a question that invites comments.",
	"Finish with three to five relevant hashtags on the last line.",
}

// DefaultTopics is the candidate set the topic selector draws from.
var DefaultTopics = []string{
	"Lion's Mane Mushroom for Mental Clarity",
	"Reishi and Evening Wind-Down Rituals",
	"Cordyceps and Natural Energy",
	"Chaga as a Morning Coffee Companion",
	"Functional Mushrooms and Focus at Work",
}

// ApplyDefaults fills zero values with the defaults above.
func (c *Config) ApplyDefaults() {
	w := &c.Workflow
	if w.MaxAttempts <= 0 {
		w.MaxAttempts = DefaultMaxAttempts
	}
	if w.PerfectScore <= 0 {
		w.PerfectScore = DefaultPerfectScore
	}
	if w.HighQualityFloor <= 0 {
		w.HighQualityFloor = DefaultHighQualityFloor
	}
	if w.MinAttemptsForFallback <= 0 {
		w.MinAttemptsForFallback = DefaultMinAttemptsForFallback
	}
	if w.RunTimeoutSeconds <= 0 {
		w.RunTimeoutSeconds = DefaultRunTimeoutSeconds
	}
	if len(w.Topics) == 0 {
		w.Topics = append([]string(nil), DefaultTopics...)
	}
	if len(c.Content.Rules) == 0 {
		c.Content.Rules = append([]string(nil), DefaultRules...)
	}
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = DefaultSearchBaseURL
	}
	if c.Search.Count <= 0 {
		c.Search.Count = DefaultSearchCount
	}
	if c.Search.CacheMinutes == 0 {
		c.Search.CacheMinutes = DefaultSearchCacheMin
	}
	if c.Visual.BaseURL == "" {
		c.Visual.BaseURL = DefaultVisualBaseURL
	}
	if c.Visual.FallbackQuery == "" {
		c.Visual.FallbackQuery = DefaultFallbackQuery
	}
	if c.Visual.SafeImageURL == "" {
		c.Visual.SafeImageURL = DefaultSafeImageURL
	}
	if c.Visual.RetryDelayMilli <= 0 {
		c.Visual.RetryDelayMilli = DefaultRetryDelayMilli
	}
	if c.LinkedIn.BaseURL == "" {
		c.LinkedIn.BaseURL = DefaultLinkedInBaseURL
	}
	if c.Email.BaseURL == "" {
		c.Email.BaseURL = DefaultEmailBaseURL
	}
	if c.Cron.Schedule == "" {
		c.Cron.Schedule = DefaultCronSchedule
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// AppName names the per-user config and cache directories
const AppName = "platform-narratives"

// Embedding providers
const (
	EmbeddingOpenAI  = "openai"
	EmbeddingOllama  = "ollama"
	EmbeddingHashing = "hashing"
)

// LLM providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderNone      = "none"
)

// Notification providers
const (
	NotifySMTP = "smtp"
	NotifyNone = "none"
)

// Anchor strategies
const (
	AnchorsRoots   = "roots"
	AnchorsMatched = "matched"
	AnchorsTopK    = "top-k"
)

// Config holds all application configuration
type Config struct {
	Version   int             `toml:"version"`
	Input     InputConfig     `toml:"input"`
	Ranking   RankingConfig   `toml:"ranking"`
	Anchors   AnchorsConfig   `toml:"anchors"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Analysis  AnalysisConfig  `toml:"analysis"`
	CrossLink CrossLinkConfig `toml:"crosslink"`
	Output    OutputConfig    `toml:"output"`
	Schedule  ScheduleConfig  `toml:"schedule"`
	Notify    NotifyConfig    `toml:"notify"`
	Logging   LoggingConfig   `toml:"logging"`
}

type InputConfig struct {
	Language string `toml:"language"` // ISO 639-1; empty disables the filter
	Clean    bool   `toml:"clean"`
}

type RankingConfig struct {
	BatchSize   int `toml:"batch_size"`
	Concurrency int `toml:"concurrency"`
	Show        int `toml:"show"`
}

type AnchorsConfig struct {
	Strategy string `toml:"strategy"`
	TopK     int    `toml:"top_k"`
}

type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	APIKey     string `toml:"api_key"`
	APIURL     string `toml:"api_url"`
	Dimensions int    `toml:"dimensions"`
}

type AnalysisConfig struct {
	LLMProvider   string `toml:"llm_provider"`
	APIKey        string `toml:"api_key"`
	APIURL        string `toml:"api_url"`
	Model         string `toml:"model"`
	MaxTokens     int    `toml:"max_tokens"`
	BatchSize     int    `toml:"batch_size"`
	ClassifyTop   int    `toml:"classify_top"`
	ReplyChain    bool   `toml:"reply_chain"`
	MaxReplies    int    `toml:"max_replies"`
	StancePrompt  string `toml:"stance_prompt"`
	CacheExchange bool   `toml:"cache_exchange"`
}

type CrossLinkConfig struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold"`
}

type OutputConfig struct {
	Database   string `toml:"database"`
	ReportPath string `toml:"report_path"`
	CacheSteps bool   `toml:"cache_steps"`
	ReportTop  int    `toml:"report_top"`
}

type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
	Timeout  string `toml:"timeout"` // Go duration; bounds one scheduled run
}

// JobTimeout parses Timeout. An empty value yields 0, which leaves the
// scheduler's default in place.
func (s ScheduleConfig) JobTimeout() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("schedule.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("schedule.timeout must be > 0, got %s", s.Timeout)
	}
	return d, nil
}

// NotifyConfig emails each run's report. An empty or "none" provider disables it.
type NotifyConfig struct {
	Provider string `toml:"provider"`
	SMTPHost string `toml:"smtp_host"`
	SMTPPort int    `toml:"smtp_port"`
	SMTPUser string `toml:"smtp_user"`
	SMTPPass string `toml:"smtp_pass"`
	FromAddr string `toml:"from_address"`
	ToAddr   string `toml:"to_address"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Input: InputConfig{
			Language: "en",
			Clean:    true,
		},
		Ranking: RankingConfig{
			BatchSize:   256,
			Concurrency: 4,
			Show:        10,
		},
		Anchors: AnchorsConfig{
			Strategy: AnchorsTopK,
			TopK:     10,
		},
		Embedding: EmbeddingConfig{
			Provider: EmbeddingHashing,
		},
		Analysis: AnalysisConfig{
			LLMProvider: ProviderNone,
			MaxTokens:   200,
			BatchSize:   8,
			ClassifyTop: 10,
			ReplyChain:  true,
			MaxReplies:  20,
		},
		CrossLink: CrossLinkConfig{
			Enabled:   false,
			Threshold: 0.7,
		},
		Output: OutputConfig{
			CacheSteps: true,
			ReportTop:  25,
		},
		Schedule: ScheduleConfig{
			Cron:     "0 */6 * * *",
			Timezone: "UTC",
			Timeout:  "30m",
		},
		Notify: NotifyConfig{
			Provider: NotifyNone,
			SMTPPort: 587,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks enumerations and ranges
func (c *Config) Validate() error {
	switch c.Embedding.Provider {
	case EmbeddingOpenAI, EmbeddingOllama, EmbeddingHashing:
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}
	switch c.Analysis.LLMProvider {
	case ProviderAnthropic, ProviderOpenAI, ProviderNone, "":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Analysis.LLMProvider)
	}
	switch c.Anchors.Strategy {
	case AnchorsRoots, AnchorsMatched, AnchorsTopK:
	default:
		return fmt.Errorf("unknown anchor strategy: %q", c.Anchors.Strategy)
	}
	switch c.Notify.Provider {
	case NotifySMTP:
		if c.Notify.SMTPHost == "" || c.Notify.ToAddr == "" {
			return errors.New("notify: smtp needs smtp_host and to_address")
		}
	case NotifyNone, "":
	default:
		return fmt.Errorf("unknown notify provider: %q", c.Notify.Provider)
	}
	if c.Ranking.BatchSize <= 0 {
		return errors.New("ranking.batch_size must be > 0")
	}
	if c.Ranking.Concurrency <= 0 {
		return errors.New("ranking.concurrency must be > 0")
	}
	if c.Analysis.BatchSize <= 0 {
		return errors.New("analysis.batch_size must be > 0")
	}
	if c.CrossLink.Threshold < -1 || c.CrossLink.Threshold > 1 {
		return errors.New("crosslink.threshold must be within [-1, 1]")
	}
	if _, err := c.Schedule.JobTimeout(); err != nil {
		return err
	}
	return nil
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, AppName), nil
}

// ConfigPath returns the full path to the default config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// CacheDir returns the platform-appropriate cache directory
func CacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// Load reads config from path, or from ConfigPath when path is empty. Keys
// missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes config to path, or to ConfigPath when path is empty
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		path, err = ConfigPath()
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}

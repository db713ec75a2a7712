package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeBrowser Mode = "browser"
	ModeFile    Mode = "file"
)

type AppConfig struct {
	Mode Mode

	AnalysisURL string
	BrowserURL  string
	Headless    bool

	SnapshotFile string

	AssistantURL     string
	AssistantProxy   string
	AssistantTimeout time.Duration

	SettleDelay  time.Duration
	PollInterval time.Duration

	MessagesDir string
}

func Defaults() AppConfig {
	return AppConfig{
		Mode:             ModeBrowser,
		AnalysisURL:      "https://lichess.org/analysis",
		AssistantURL:     "https://api.zpi.my.id/v1/ai/copilot",
		AssistantTimeout: 60 * time.Second,
		SettleDelay:      150 * time.Millisecond,
		PollInterval:     250 * time.Millisecond,
	}
}

// Load reads COACH_* variables over the defaults and validates the result.
func Load() (*AppConfig, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads COACH_* variables over the defaults without validating, so
// callers can apply further overrides first.
func FromEnv() (*AppConfig, error) {
	cfg := Defaults()

	if v := strings.TrimSpace(os.Getenv("COACH_MODE")); v != "" {
		cfg.Mode = Mode(strings.ToLower(v))
	}
	if v := strings.TrimSpace(os.Getenv("COACH_ANALYSIS_URL")); v != "" {
		cfg.AnalysisURL = v
	}
	cfg.BrowserURL = strings.TrimSpace(os.Getenv("COACH_BROWSER_URL"))
	if v := strings.TrimSpace(os.Getenv("COACH_HEADLESS")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("COACH_HEADLESS: %w", err)
		}
		cfg.Headless = b
	}
	cfg.SnapshotFile = strings.TrimSpace(os.Getenv("COACH_SNAPSHOT_FILE"))

	if v := strings.TrimSpace(os.Getenv("COACH_ASSISTANT_URL")); v != "" {
		cfg.AssistantURL = v
	}
	cfg.AssistantProxy = strings.TrimSpace(os.Getenv("COACH_ASSISTANT_PROXY"))

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"COACH_ASSISTANT_TIMEOUT", &cfg.AssistantTimeout},
		{"COACH_SETTLE_DELAY", &cfg.SettleDelay},
		{"COACH_POLL_INTERVAL", &cfg.PollInterval},
	}
	for _, d := range durations {
		v := strings.TrimSpace(os.Getenv(d.key))
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("COACH_MESSAGES_DIR"))
	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch c.Mode {
	case ModeBrowser:
		if c.AnalysisURL == "" {
			return errors.New("COACH_ANALYSIS_URL is required")
		}
	case ModeFile:
		if c.SnapshotFile == "" {
			return errors.New("COACH_SNAPSHOT_FILE is required in file mode")
		}
	default:
		return fmt.Errorf("COACH_MODE must be browser or file, got %q", c.Mode)
	}
	if c.AssistantURL == "" {
		return errors.New("COACH_ASSISTANT_URL is required")
	}
	if c.AssistantTimeout <= 0 {
		return errors.New("COACH_ASSISTANT_TIMEOUT must be positive")
	}
	if c.SettleDelay <= 0 {
		return errors.New("COACH_SETTLE_DELAY must be positive")
	}
	if c.PollInterval <= 0 {
		return errors.New("COACH_POLL_INTERVAL must be positive")
	}
	return nil
}

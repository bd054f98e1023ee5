package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	API     APIConfig
	Storage StorageConfig
	Poll    PollConfig
	Log     LogConfig
}

type APIConfig struct {
	BaseURL string
	Timeout string // Go duration string, e.g. "30s"
}

type StorageConfig struct {
	DataDir string
}

type PollConfig struct {
	PipelineInterval string // Go duration string; cadence of pipeline status polls
	LeadsInterval    string // Go duration string; cadence of lead view refreshes
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: "30s",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Poll: PollConfig{
			PipelineInterval: "60s",
			LeadsInterval:    "120s",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.coldreach.leadctl).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/leadctl/config.json.
//
// Environment variables (LEADCTL_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")
	if cfg.API.BaseURL == "" {
		return Config{}, fmt.Errorf("missing required config: API base URL (set LEADCTL_API_BASE_URL)")
	}

	for _, d := range []struct {
		key string
		val string
	}{
		{"api.timeout", cfg.API.Timeout},
		{"poll.pipeline_interval", cfg.Poll.PipelineInterval},
		{"poll.leads_interval", cfg.Poll.LeadsInterval},
	} {
		if _, err := time.ParseDuration(d.val); err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", d.key, err)
		}
	}

	return cfg, nil
}

// Duration parses a duration config value, falling back to def when the
// value is missing or unparseable.
func Duration(val string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

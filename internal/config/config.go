package config

import (
	"errors"
	"io/fs"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Controller      ControllerConfig `yaml:"controller"`
	Preview         PreviewConfig    `yaml:"preview"`
	Database        DatabaseConfig   `yaml:"database"`
	Ledger          LedgerConfig     `yaml:"ledger"`
	Log             LogConfig        `yaml:"log"`
	Mock            MockConfig       `yaml:"mock"`
	ShutdownTimeout Duration         `yaml:"shutdown_timeout"`
}

// ControllerConfig contains the LED controller connection settings
type ControllerConfig struct {
	URL               string   `yaml:"url"`
	Timeout           Duration `yaml:"timeout"`              // HTTP timeout for ordinary requests
	SyncTimeout       Duration `yaml:"sync_timeout"`         // Bound on schedule persist + reload
	ColorRateLimitRPS float64  `yaml:"color_rate_limit_rps"` // Max color writes per second
}

// PreviewConfig contains color preview long-poll settings
type PreviewConfig struct {
	MinRetryBackoff Duration `yaml:"min_retry_backoff"`
	MaxRetryBackoff Duration `yaml:"max_retry_backoff"`
	RetryMultiplier float64  `yaml:"retry_multiplier"`
	MaxReconnects   int      `yaml:"max_reconnects"` // 0 = infinite
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LedgerConfig contains save history settings
type LedgerConfig struct {
	RetentionPeriod Duration `yaml:"retention_period"` // History older than this is pruned on startup
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Colors bool   `yaml:"colors"`
	JSON   bool   `yaml:"json"`
}

// MockConfig contains settings of the development controller (ledmock)
type MockConfig struct {
	Host         string   `yaml:"host"`
	Port         int      `yaml:"port"`
	DatabasePath string   `yaml:"database_path"`
	SequencesDir string   `yaml:"sequences_dir"`
	PollTimeout  Duration `yaml:"poll_timeout"` // How long /api/get-rgbw waits for a change
}

// Duration is a wrapper around time.Duration for YAML unmarshalling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// LoadOrDefault is Load, but a missing file yields the defaults.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Parse(nil)
	}
	return cfg, err
}

// Parse parses configuration from YAML and applies defaults.
func Parse(data []byte) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./ledpanel.sqlite"
	}
	if cfg.Ledger.RetentionPeriod == 0 {
		cfg.Ledger.RetentionPeriod = Duration(30 * 24 * time.Hour)
	}

	// Controller defaults
	if cfg.Controller.URL == "" {
		cfg.Controller.URL = "http://localhost:8000"
	}
	if cfg.Controller.Timeout == 0 {
		cfg.Controller.Timeout = Duration(10 * time.Second)
	}
	if cfg.Controller.SyncTimeout == 0 {
		cfg.Controller.SyncTimeout = Duration(15 * time.Second)
	}
	if cfg.Controller.ColorRateLimitRPS == 0 {
		cfg.Controller.ColorRateLimitRPS = 5.0
	}

	// Preview defaults
	if cfg.Preview.MinRetryBackoff == 0 {
		cfg.Preview.MinRetryBackoff = Duration(1 * time.Second)
	}
	if cfg.Preview.MaxRetryBackoff == 0 {
		cfg.Preview.MaxRetryBackoff = Duration(1 * time.Minute)
	}
	if cfg.Preview.RetryMultiplier == 0 {
		cfg.Preview.RetryMultiplier = 2.0
	}

	// Mock controller defaults
	if cfg.Mock.Host == "" {
		cfg.Mock.Host = "0.0.0.0"
	}
	if cfg.Mock.Port == 0 {
		cfg.Mock.Port = 8000
	}
	if cfg.Mock.DatabasePath == "" {
		cfg.Mock.DatabasePath = "./ledmock.sqlite"
	}
	if cfg.Mock.SequencesDir == "" {
		cfg.Mock.SequencesDir = "./sequences"
	}
	if cfg.Mock.PollTimeout == 0 {
		cfg.Mock.PollTimeout = Duration(30 * time.Second)
	}

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// GetShutdownTimeout returns the shutdown timeout as time.Duration
func (cfg *Config) GetShutdownTimeout() time.Duration {
	return cfg.ShutdownTimeout.Duration()
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars expands environment variables in the format ${VAR} or ${VAR:default}
func expandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		parts := envVarPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}

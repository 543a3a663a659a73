package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ALT-F4-LLC/fixtrack/internal/logging"
	"github.com/ALT-F4-LLC/fixtrack/internal/model"
)

// Settings is the runtime configuration. It is loaded once at startup and
// handed to constructors; nothing reads it from a global.
type Settings struct {
	LookbackDays           int            `mapstructure:"lookback_days" json:"lookback_days"`
	RetentionDays          int            `mapstructure:"retention_days" json:"retention_days"`
	ExclusionRulesPath     string         `mapstructure:"exclusion_rules_path" json:"exclusion_rules_path"`
	ExclusionCheckInterval time.Duration  `mapstructure:"exclusion_check_interval" json:"exclusion_check_interval"`
	TerminalStatuses       []string       `mapstructure:"terminal_statuses" json:"terminal_statuses"`
	SyncInterval           time.Duration  `mapstructure:"sync_interval" json:"sync_interval"`
	CleanupInterval        time.Duration  `mapstructure:"cleanup_interval" json:"cleanup_interval"`
	ReconcileTimeout       time.Duration  `mapstructure:"reconcile_timeout" json:"reconcile_timeout"`
	GitLab                 GitLabSettings `mapstructure:"gitlab" json:"gitlab"`
	Log                    LogSettings    `mapstructure:"log" json:"log"`
}

// GitLabSettings configures the merge request adapter used by reconcile.
type GitLabSettings struct {
	URL               string  `mapstructure:"url" json:"url"`
	Token             string  `mapstructure:"token" json:"-"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" json:"requests_per_second"`
	Concurrency       int     `mapstructure:"concurrency" json:"concurrency"`
}

// LogSettings configures the process logger.
type LogSettings struct {
	Level string `mapstructure:"level" json:"level"`
	File  string `mapstructure:"file" json:"file,omitempty"`
}

// ConfigError reports an invalid setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// DefaultSettings returns the settings used when no config file or
// environment override is present.
func DefaultSettings(dir string) Settings {
	return Settings{
		LookbackDays:           7,
		RetentionDays:          365,
		ExclusionRulesPath:     filepath.Join(dir, "excluded_rules.yaml"),
		ExclusionCheckInterval: 30 * time.Second,
		TerminalStatuses:       []string{string(model.MrStatusMerged), string(model.MrStatusClosed)},
		SyncInterval:           10 * time.Minute,
		CleanupInterval:        24 * time.Hour,
		ReconcileTimeout:       60 * time.Second,
		GitLab: GitLabSettings{
			RequestsPerSecond: 5,
			Concurrency:       4,
		},
		Log: LogSettings{Level: "info"},
	}
}

func newViper(dir string) *viper.Viper {
	d := DefaultSettings(dir)
	v := viper.New()

	v.SetDefault("lookback_days", d.LookbackDays)
	v.SetDefault("retention_days", d.RetentionDays)
	v.SetDefault("exclusion_rules_path", d.ExclusionRulesPath)
	v.SetDefault("exclusion_check_interval", d.ExclusionCheckInterval)
	v.SetDefault("terminal_statuses", d.TerminalStatuses)
	v.SetDefault("sync_interval", d.SyncInterval)
	v.SetDefault("cleanup_interval", d.CleanupInterval)
	v.SetDefault("reconcile_timeout", d.ReconcileTimeout)
	v.SetDefault("gitlab.url", d.GitLab.URL)
	v.SetDefault("gitlab.token", d.GitLab.Token)
	v.SetDefault("gitlab.requests_per_second", d.GitLab.RequestsPerSecond)
	v.SetDefault("gitlab.concurrency", d.GitLab.Concurrency)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)

	v.SetEnvPrefix("FIXTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads dir/config.yaml on top of the defaults, applies FIXTRACK_*
// environment overrides and validates the result. A missing config file is
// not an error.
func Load(dir string) (Settings, error) {
	v := newViper(dir)
	v.SetConfigName(strings.TrimSuffix(configFileName, filepath.Ext(configFileName)))
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding config: %w", err)
	}

	if s.ExclusionRulesPath != "" && !filepath.IsAbs(s.ExclusionRulesPath) {
		s.ExclusionRulesPath = filepath.Join(dir, s.ExclusionRulesPath)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// WriteDefault writes a config file holding the tunable defaults to path.
// An existing file is left alone.
func WriteDefault(path string) error {
	v := viper.New()
	v.Set("lookback_days", 7)
	v.Set("retention_days", 365)
	v.Set("exclusion_rules_path", "excluded_rules.yaml")
	v.Set("exclusion_check_interval", "30s")
	v.Set("terminal_statuses", []string{"merged", "closed"})
	v.Set("sync_interval", "10m")
	v.Set("cleanup_interval", "24h")
	v.Set("reconcile_timeout", "60s")
	v.Set("gitlab.url", "")
	v.Set("gitlab.requests_per_second", 5)
	v.Set("gitlab.concurrency", 4)
	v.Set("log.level", "info")

	if err := v.SafeWriteConfigAs(path); err != nil {
		var exists viper.ConfigFileAlreadyExistsError
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate checks every setting and returns the first problem found.
func (s Settings) Validate() error {
	switch {
	case s.LookbackDays <= 0:
		return &ConfigError{Field: "lookback_days", Message: "must be positive"}
	case s.RetentionDays <= 0:
		return &ConfigError{Field: "retention_days", Message: "must be positive"}
	case s.ExclusionCheckInterval < 0:
		return &ConfigError{Field: "exclusion_check_interval", Message: "must not be negative"}
	case s.SyncInterval <= 0:
		return &ConfigError{Field: "sync_interval", Message: "must be positive"}
	case s.CleanupInterval <= 0:
		return &ConfigError{Field: "cleanup_interval", Message: "must be positive"}
	case s.ReconcileTimeout <= 0:
		return &ConfigError{Field: "reconcile_timeout", Message: "must be positive"}
	case s.GitLab.RequestsPerSecond < 0:
		return &ConfigError{Field: "gitlab.requests_per_second", Message: "must not be negative"}
	case s.GitLab.Concurrency < 0:
		return &ConfigError{Field: "gitlab.concurrency", Message: "must not be negative"}
	}

	for _, st := range s.TerminalStatuses {
		if err := model.ValidateMrStatus(model.MrStatus(st)); err != nil {
			return &ConfigError{Field: "terminal_statuses", Message: err.Error()}
		}
	}

	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return &ConfigError{Field: "log.level", Message: err.Error()}
	}
	return nil
}

// TerminalMrStatuses returns TerminalStatuses as typed statuses.
func (s Settings) TerminalMrStatuses() []model.MrStatus {
	out := make([]model.MrStatus, 0, len(s.TerminalStatuses))
	for _, st := range s.TerminalStatuses {
		out = append(out, model.MrStatus(st))
	}
	return out
}

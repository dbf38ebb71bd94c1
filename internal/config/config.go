// Package config handles configuration loading and management for crewforge.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/crewforge/internal/ratelimit"
	"github.com/ShayCichocki/crewforge/internal/retry"
	"github.com/ShayCichocki/crewforge/pkg/models"
)

// DefaultModel is used when provider.model is unset.
const DefaultModel = "claude-sonnet-4-20250514"

// DefaultFirstMessage opens every conversation; %s is replaced by the task.
const DefaultFirstMessage = "Team, let's work together to complete this task: %s\n\nPlease coordinate your efforts and deliver high-quality results."

// envPrefix namespaces environment overrides, e.g. CREWFORGE_ACCOUNT_TYPE.
const envPrefix = "CREWFORGE"

// Config holds all configuration for crewforge.
type Config struct {
	Provider     ProviderConfig     `mapstructure:"provider"`
	Account      AccountConfig      `mapstructure:"account"`
	RateLimits   RateLimitsConfig   `mapstructure:"rate_limits"`
	Retry        retry.Policy       `mapstructure:"retry"`
	Workspace    WorkspaceConfig    `mapstructure:"workspace"`
	Policy       PolicyConfig       `mapstructure:"policy"`
	State        StateConfig        `mapstructure:"state"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Conversation ConversationConfig `mapstructure:"conversation"`
}

// ProviderConfig holds model provider settings.
type ProviderConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	UseBedrock     bool          `mapstructure:"use_bedrock"`
	AWSRegion      string        `mapstructure:"aws_region"`
	AWSProfile     string        `mapstructure:"aws_profile"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// BaseURL overrides the API endpoint.
	BaseURL string `mapstructure:"base_url"`
}

// AccountConfig selects the rate-limit profile.
type AccountConfig struct {
	// Type is "paid" or "free".
	Type string `mapstructure:"type"`
}

// RateLimitsConfig holds the adaptive limiter bounds per account type.
type RateLimitsConfig struct {
	Free ratelimit.Limits `mapstructure:"free"`
	Paid ratelimit.Limits `mapstructure:"paid"`
}

// WorkspaceConfig holds execution-agent workspace settings.
type WorkspaceConfig struct {
	BaseDir     string        `mapstructure:"base_dir"`
	ExecTimeout time.Duration `mapstructure:"exec_timeout"`
	// Keep leaves workspaces on disk after a run.
	Keep bool `mapstructure:"keep"`
}

// PolicyConfig points at an optional team-sizing policy overlay.
type PolicyConfig struct {
	File string `mapstructure:"file"`
}

// StateConfig holds run-history settings.
type StateConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig holds debug log settings.
type LoggingConfig struct {
	DebugLog string `mapstructure:"debug_log"`
}

// ConversationConfig holds group chat settings.
type ConversationConfig struct {
	// FirstMessage is a format string; %s is replaced by the task.
	FirstMessage string `mapstructure:"first_message"`
	// MaxRounds overrides the team's round budget when positive.
	MaxRounds int `mapstructure:"max_rounds"`
}

// AccountType returns the configured account type, defaulting to paid.
func (c *Config) AccountType() models.AccountType {
	t := models.AccountType(strings.ToLower(strings.TrimSpace(c.Account.Type)))
	if !t.Valid() {
		return models.AccountPaid
	}
	return t
}

// LimitsFor returns the configured limits for account.
func (c *Config) LimitsFor(account models.AccountType) ratelimit.Limits {
	l := c.RateLimits.Paid
	if account == models.AccountFree {
		l = c.RateLimits.Free
	}
	if l == (ratelimit.Limits{}) {
		return ratelimit.LimitsFor(account)
	}
	return l.Normalize()
}

// RetryPolicy returns the retry policy with out-of-range values repaired.
func (c *Config) RetryPolicy() retry.Policy {
	p := c.Retry
	p.Validate()
	return p
}

// FirstMessage renders the opening message for task.
func (c *Config) FirstMessage(task string) string {
	tmpl := c.Conversation.FirstMessage
	if tmpl == "" {
		tmpl = DefaultFirstMessage
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return fmt.Sprintf(tmpl, task)
}

// Validate checks values that cannot be repaired silently.
func (c *Config) Validate() error {
	if t := strings.TrimSpace(c.Account.Type); t != "" && !models.AccountType(strings.ToLower(t)).Valid() {
		return fmt.Errorf("account.type must be %q or %q, got %q", models.AccountPaid, models.AccountFree, c.Account.Type)
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 1 {
		return fmt.Errorf("provider.temperature must be between 0 and 1, got %v", c.Provider.Temperature)
	}
	if c.Provider.MaxTokens < 1 {
		return fmt.Errorf("provider.max_tokens must be positive, got %d", c.Provider.MaxTokens)
	}
	if c.Provider.UseBedrock && c.Provider.AWSRegion == "" {
		return fmt.Errorf("provider.aws_region is required when provider.use_bedrock is set")
	}
	return nil
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, CREWFORGE_*)
// 2. Project config (.crewforge.yaml in current directory or parent)
// 3. User config (~/.config/crewforge/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return unmarshal(v)
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)
	bindEnv(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return unmarshal(v)
}

// newViper builds the layered viper instance used by Load and Get.
func newViper() (*viper.Viper, error) {
	v := viper.New()

	setDefaults(v)

	// Load user config from XDG path
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading project config %s: %w", projectConfig, err)
		}
		// Merge project config (takes precedence)
		if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	bindEnv(v)
	return v, nil
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map specific environment variables
	_ = v.BindEnv("provider.api_key", envPrefix+"_PROVIDER_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("provider.aws_region", envPrefix+"_PROVIDER_AWS_REGION", "AWS_REGION")
	_ = v.BindEnv("provider.aws_profile", envPrefix+"_PROVIDER_AWS_PROFILE", "AWS_PROFILE")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Provider.APIKey = expandEnv(cfg.Provider.APIKey)
	cfg.Workspace.BaseDir = expandPath(cfg.Workspace.BaseDir)
	cfg.State.DBPath = expandPath(cfg.State.DBPath)
	cfg.Logging.DebugLog = expandPath(cfg.Logging.DebugLog)
	cfg.Policy.File = expandPath(cfg.Policy.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get returns the effective value of a single dotted key.
func Get(key string) (interface{}, error) {
	if !IsKnownKey(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return v.Get(key), nil
}

// SetUserValue writes one key to the user config file, keeping the others.
func SetUserValue(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q", key)
	}

	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)
	if _, err := os.Stat(configPath); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading user config: %w", err)
		}
	}
	v.Set(key, value)

	// Validate the result before writing it.
	check := viper.New()
	setDefaults(check)
	if err := check.MergeConfigMap(v.AllSettings()); err != nil {
		return fmt.Errorf("merging config: %w", err)
	}
	if _, err := unmarshal(check); err != nil {
		return err
	}

	return v.WriteConfig()
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("provider.api_key", cfg.Provider.APIKey)
	v.Set("provider.model", cfg.Provider.Model)
	v.Set("provider.use_bedrock", cfg.Provider.UseBedrock)
	v.Set("provider.aws_region", cfg.Provider.AWSRegion)
	v.Set("provider.aws_profile", cfg.Provider.AWSProfile)
	v.Set("provider.temperature", cfg.Provider.Temperature)
	v.Set("provider.max_tokens", cfg.Provider.MaxTokens)
	v.Set("provider.request_timeout", cfg.Provider.RequestTimeout.String())
	v.Set("provider.base_url", cfg.Provider.BaseURL)
	v.Set("account.type", cfg.Account.Type)
	setLimits(v, "rate_limits.free", cfg.RateLimits.Free)
	setLimits(v, "rate_limits.paid", cfg.RateLimits.Paid)
	v.Set("retry.max_retries", cfg.Retry.MaxRetries)
	v.Set("retry.base_delay", cfg.Retry.BaseDelay.String())
	v.Set("retry.transient_retries", cfg.Retry.TransientRetries)
	v.Set("retry.transient_delay", cfg.Retry.TransientDelay.String())
	v.Set("retry.suggested_jitter_min", cfg.Retry.SuggestedJitterMin.String())
	v.Set("retry.suggested_jitter_max", cfg.Retry.SuggestedJitterMax.String())
	v.Set("workspace.base_dir", cfg.Workspace.BaseDir)
	v.Set("workspace.exec_timeout", cfg.Workspace.ExecTimeout.String())
	v.Set("workspace.keep", cfg.Workspace.Keep)
	v.Set("policy.file", cfg.Policy.File)
	v.Set("state.db_path", cfg.State.DBPath)
	v.Set("logging.debug_log", cfg.Logging.DebugLog)
	v.Set("conversation.first_message", cfg.Conversation.FirstMessage)
	v.Set("conversation.max_rounds", cfg.Conversation.MaxRounds)

	return v.WriteConfig()
}

func setLimits(v *viper.Viper, prefix string, l ratelimit.Limits) {
	v.Set(prefix+".min_rpm", l.MinRPM)
	v.Set(prefix+".max_rpm", l.MaxRPM)
	v.Set(prefix+".base_rpm", l.BaseRPM)
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.use_bedrock", false)
	v.SetDefault("provider.aws_region", "")
	v.SetDefault("provider.aws_profile", "")
	v.SetDefault("provider.temperature", d.Provider.Temperature)
	v.SetDefault("provider.max_tokens", d.Provider.MaxTokens)
	v.SetDefault("provider.request_timeout", d.Provider.RequestTimeout.String())
	v.SetDefault("provider.base_url", "")

	v.SetDefault("account.type", d.Account.Type)

	v.SetDefault("rate_limits.free.min_rpm", d.RateLimits.Free.MinRPM)
	v.SetDefault("rate_limits.free.max_rpm", d.RateLimits.Free.MaxRPM)
	v.SetDefault("rate_limits.free.base_rpm", d.RateLimits.Free.BaseRPM)
	v.SetDefault("rate_limits.paid.min_rpm", d.RateLimits.Paid.MinRPM)
	v.SetDefault("rate_limits.paid.max_rpm", d.RateLimits.Paid.MaxRPM)
	v.SetDefault("rate_limits.paid.base_rpm", d.RateLimits.Paid.BaseRPM)

	v.SetDefault("retry.max_retries", d.Retry.MaxRetries)
	v.SetDefault("retry.base_delay", d.Retry.BaseDelay.String())
	v.SetDefault("retry.transient_retries", d.Retry.TransientRetries)
	v.SetDefault("retry.transient_delay", d.Retry.TransientDelay.String())
	v.SetDefault("retry.suggested_jitter_min", d.Retry.SuggestedJitterMin.String())
	v.SetDefault("retry.suggested_jitter_max", d.Retry.SuggestedJitterMax.String())

	v.SetDefault("workspace.base_dir", "")
	v.SetDefault("workspace.exec_timeout", d.Workspace.ExecTimeout.String())
	v.SetDefault("workspace.keep", true)

	v.SetDefault("policy.file", "")
	v.SetDefault("state.db_path", "")
	v.SetDefault("logging.debug_log", "")

	v.SetDefault("conversation.first_message", d.Conversation.FirstMessage)
	v.SetDefault("conversation.max_rounds", 0)
}

// Keys returns every known dotted config key, sorted.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	sort.Strings(keys)
	return keys
}

// IsKnownKey reports whether key is a recognized config key.
func IsKnownKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range Keys() {
		if k == key {
			return true
		}
	}
	return false
}

// getUserConfigDir returns the XDG config directory for crewforge.
func getUserConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "crewforge")
	}

	// Fall back to ~/.config/crewforge
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "crewforge")
	}
	return filepath.Join(home, ".config", "crewforge")
}

// findProjectConfig searches for .crewforge.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".crewforge.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// expandPath expands ${VAR} references and a leading ~/.
func expandPath(p string) string {
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Model:          DefaultModel,
			Temperature:    0.7,
			MaxTokens:      4096,
			RequestTimeout: 5 * time.Minute,
		},
		Account: AccountConfig{
			Type: string(models.AccountPaid),
		},
		RateLimits: RateLimitsConfig{
			Free: ratelimit.FreeLimits,
			Paid: ratelimit.PaidLimits,
		},
		Retry: retry.DefaultPolicy(),
		Workspace: WorkspaceConfig{
			ExecTimeout: 120 * time.Second,
			Keep:        true,
		},
		Conversation: ConversationConfig{
			FirstMessage: DefaultFirstMessage,
		},
	}
}

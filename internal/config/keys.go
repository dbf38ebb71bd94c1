package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("no Anthropic API key configured (set ANTHROPIC_API_KEY or provider.api_key)")

// GetAPIKey returns the provider API key. The environment wins over the
// config file.
func GetAPIKey(cfg *Config) (string, error) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		return key, nil
	}

	if cfg != nil && cfg.Provider.APIKey != "" {
		// Unresolved ${VAR} references count as unset.
		key := os.ExpandEnv(cfg.Provider.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// RequireCredentials checks that the configured provider can authenticate.
// Bedrock uses the AWS credential chain, so only the direct API needs a key.
func RequireCredentials(cfg *Config) error {
	if cfg != nil && cfg.Provider.UseBedrock {
		return nil
	}
	_, err := GetAPIKey(cfg)
	return err
}

// ValidateAPIKey performs basic format validation on an API key.
// It does not contact the provider.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrNoAPIKey
	}
	if !strings.HasPrefix(key, "sk-ant-") {
		return errors.New("invalid API key format: expected 'sk-ant-' prefix")
	}
	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}
	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 15 {
		return "***"
	}
	return key[:7] + "..." + key[len(key)-4:]
}

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv     KeySource = "environment"
	KeySourceConfig  KeySource = "config_file"
	KeySourceBedrock KeySource = "aws_bedrock"
	KeySourceNone    KeySource = "none"
)

// GetAPIKeySource returns where the credentials come from.
func GetAPIKeySource(cfg *Config) KeySource {
	if cfg != nil && cfg.Provider.UseBedrock {
		return KeySourceBedrock
	}
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		return KeySourceEnv
	}
	if cfg != nil && cfg.Provider.APIKey != "" {
		key := os.ExpandEnv(cfg.Provider.APIKey)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}
	return KeySourceNone
}

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/crewforge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify crewforge configuration.

Without arguments, displays the effective configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the value in the user config file.

Configuration is stored at ~/.config/crewforge/config.yaml
Project-specific overrides can be placed in .crewforge.yaml
Environment variables override both (CREWFORGE_ACCOUNT_TYPE, ANTHROPIC_API_KEY, ...).`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			return displayAllConfig(cmd)
		case 1:
			value, err := config.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, displayValue(args[0], value))
			return nil
		default:
			if err := config.SetUserValue(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out, "Set %s = %s\n", args[0], displayValue(args[0], args[1]))
			return nil
		}
	},
}

// displayAllConfig prints every known key with its effective value.
func displayAllConfig(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	for _, key := range config.Keys() {
		value, err := config.Get(key)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s\n", key, displayValue(key, value))
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\ncredentials: %s\n", config.GetAPIKeySource(cfg))
	fmt.Fprintf(out, "user config: %s\n", config.GetUserConfigPath())
	if p := config.GetProjectConfigPath(); p != "" {
		fmt.Fprintf(out, "project config: %s\n", p)
	}
	return nil
}

// displayValue formats a value for the console, masking secrets.
func displayValue(key string, value interface{}) string {
	s := fmt.Sprint(value)
	if strings.EqualFold(key, "provider.api_key") {
		return config.MaskAPIKey(s)
	}
	if s == "" {
		return "(not set)"
	}
	return s
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/simplainvest/wealthboard/internal/config"
)

// loadConfig merges defaults, an optional config file, WEALTHCTL_* variables
// and command flags into a validated config
func loadConfig(cmd *cobra.Command, configFile string) (*config.Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("WEALTHCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	dataDir, err := filepath.Abs(v.GetString("data-dir"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &config.Config{
		DataDir:         dataDir,
		FeedBaseURL:     strings.TrimRight(v.GetString("feed-url"), "/"),
		FeedTimeout:     v.GetDuration("feed-timeout"),
		FeedMaxRetries:  v.GetInt("feed-max-retries"),
		RefreshSchedule: v.GetString("refresh-schedule"),
		ScaleDivisor:    v.GetFloat64("scale-divisor"),
		ActivityFile:    v.GetString("activity-file"),
		LogLevel:        v.GetString("log-level"),
		Port:            v.GetInt("port"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data-dir", "./data")
	v.SetDefault("feed-url", config.DefaultFeedBaseURL)
	v.SetDefault("feed-timeout", "10s")
	v.SetDefault("feed-max-retries", 3)
	v.SetDefault("refresh-schedule", "@every 5m")
	v.SetDefault("scale-divisor", 1_000_000)
	v.SetDefault("log-level", "warn")
	v.SetDefault("port", 8080)
}

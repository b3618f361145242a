// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package config loads service configuration from a YAML file,
// environment variables and defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigFileName is the name of the config file (crucible.yaml).
const DefaultConfigFileName = "crucible"

// Config holds all configuration for the Crucible server.
// Priority: config file > environment variables > defaults.
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// LLM provider configuration
	LLM LLMConfig `mapstructure:"llm"`

	// Pipeline configuration (stage retries, timeouts, workers)
	Pipeline PipelineConfig `mapstructure:"pipeline"`

	// Retention configuration (cleanup of old validation records)
	Retention RetentionConfig `mapstructure:"retention"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// Address is the listen address for the REST API
	Address string `mapstructure:"address"`

	// ShutdownTimeoutSeconds bounds graceful shutdown
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Type selects the driver, "pgsql" or "sqlite"
	Type     string `mapstructure:"type"`
	Hostname string `mapstructure:"hostname"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	// APIKey is the Anthropic API key (CRUCIBLE_LLM_API_KEY)
	APIKey string `mapstructure:"api_key"`

	// Model is the model identifier
	Model string `mapstructure:"model"`

	// Endpoint overrides the API endpoint, mainly for testing
	Endpoint string `mapstructure:"endpoint"`

	// TimeoutSeconds bounds a single API call
	TimeoutSeconds int `mapstructure:"timeout_seconds"`

	// MaxTokens caps response length
	MaxTokens int `mapstructure:"max_tokens"`

	// Temperature controls sampling randomness
	Temperature float64 `mapstructure:"temperature"`

	// RateLimitRPS is the sustained request rate toward the provider
	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`
}

// PipelineConfig holds validation pipeline configuration.
type PipelineConfig struct {
	// Workers is the task queue worker count
	Workers int `mapstructure:"workers"`

	// MaxAttempts is the total attempt budget per stage
	MaxAttempts int `mapstructure:"max_attempts"`

	// RetryDelaySeconds is the pause before a stage is re-attempted
	RetryDelaySeconds int `mapstructure:"retry_delay_seconds"`

	// StageTimeoutSeconds bounds a single stage attempt
	StageTimeoutSeconds int `mapstructure:"stage_timeout_seconds"`

	// MaxTurns caps agent conversation iterations per stage
	MaxTurns int `mapstructure:"max_turns"`

	// MaxToolExecutions caps tool calls per stage
	MaxToolExecutions int `mapstructure:"max_tool_executions"`
}

// RetentionConfig holds cleanup job configuration.
type RetentionConfig struct {
	// Enabled turns the periodic cleanup job on
	Enabled bool `mapstructure:"enabled"`

	// Schedule is a standard 5-field cron expression
	Schedule string `mapstructure:"schedule"`

	// MaxAgeDays is how long terminal validations are kept
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format is "json" or "console"
	Format string `mapstructure:"format"`
}

// StageTimeout returns the per-attempt stage timeout as a duration.
func (c PipelineConfig) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSeconds) * time.Second
}

// RetryDelay returns the stage retry delay as a duration.
func (c PipelineConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// LoadConfig loads configuration with proper priority:
// 1. Config file
// 2. Environment variables (CRUCIBLE_ prefix)
// 3. Defaults
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/crucible/")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars
	}

	v.SetEnvPrefix("CRUCIBLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.type", "pgsql")
	v.SetDefault("database.hostname", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "crucible")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "adminpass")

	v.SetDefault("llm.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.temperature", 1.0)
	v.SetDefault("llm.rate_limit_rps", 0.7)

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.max_attempts", 3)
	v.SetDefault("pipeline.retry_delay_seconds", 60)
	v.SetDefault("pipeline.stage_timeout_seconds", 200)
	v.SetDefault("pipeline.max_turns", 5)
	v.SetDefault("pipeline.max_tool_executions", 10)

	v.SetDefault("retention.enabled", false)
	v.SetDefault("retention.schedule", "0 3 * * *")
	v.SetDefault("retention.max_age_days", 90)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Copyright © 2026 Crucible Labs - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadFromDir(t)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "pgsql", cfg.Database.Type)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.LLM.Model)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 60, cfg.Pipeline.RetryDelaySeconds)
	assert.Equal(t, 200, cfg.Pipeline.StageTimeoutSeconds)
	assert.Equal(t, 5, cfg.Pipeline.MaxTurns)
	assert.Equal(t, 10, cfg.Pipeline.MaxToolExecutions)
	assert.Equal(t, "0 3 * * *", cfg.Retention.Schedule)
	assert.False(t, cfg.Retention.Enabled)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  address: ":9090"
database:
  type: sqlite
  name: test.db
pipeline:
  max_attempts: 5
  retry_delay_seconds: 1
`
	path := filepath.Join(dir, "crucible.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "test.db", cfg.Database.Name)
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 1, cfg.Pipeline.RetryDelaySeconds)
	// Unset values keep their defaults
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CRUCIBLE_LLM_API_KEY", "sk-test-key")
	t.Setenv("CRUCIBLE_SERVER_ADDRESS", ":7070")

	cfg, err := loadFromDir(t)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", cfg.LLM.APIKey)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

func TestDurationAccessors(t *testing.T) {
	cfg := PipelineConfig{StageTimeoutSeconds: 200, RetryDelaySeconds: 60}
	assert.Equal(t, "3m20s", cfg.StageTimeout().String())
	assert.Equal(t, "1m0s", cfg.RetryDelay().String())
}

// loadFromDir loads config from an empty temp directory so no real
// crucible.yaml on the test machine leaks into the result.
func loadFromDir(t *testing.T) (*Config, error) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return LoadConfig("")
}

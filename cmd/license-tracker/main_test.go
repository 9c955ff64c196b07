package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr string
	}{
		{name: "default json logger", level: "info", format: "json"},
		{name: "development console logger", level: "debug", format: "console"},
		{name: "empty format falls back to json", level: "warn", format: ""},
		{name: "invalid log level", level: "loud", format: "json", wantErr: "invalid log level"},
		{name: "invalid log format", level: "info", format: "xml", wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := initLogger(tt.level, tt.format)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Nil(t, logger)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func TestRootCommand(t *testing.T) {
	t.Run("lists the subcommands", func(t *testing.T) {
		cmd := newRootCommand()
		names := make([]string, 0)
		for _, sub := range cmd.Commands() {
			names = append(names, sub.Name())
		}

		assert.Subset(t, names, []string{"serve", "migrate", "seed-admin", "seed-seats", "sync-renewals"})
	})

	t.Run("invalid configuration stops before running", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("SESSION_SECRET", "short")

		cmd := newRootCommand()
		cmd.SetArgs([]string{"seed-seats"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SESSION_SECRET")
	})

	t.Run("seed-admin refuses production", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("SESSION_SECRET", strings.Repeat("x", 32))
		t.Setenv("SEED_ADMIN_PASSWORD", "changeme")
		t.Setenv("LOG_LEVEL", "error")

		cmd := newRootCommand()
		cmd.SetArgs([]string{"seed-admin"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refusing to seed")
	})

	t.Run("seed-admin needs a password", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "development")
		t.Setenv("SEED_ADMIN_PASSWORD", "")
		t.Setenv("LOG_LEVEL", "error")

		cmd := newRootCommand()
		cmd.SetArgs([]string{"seed-admin"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})

		err := cmd.Execute()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SEED_ADMIN_PASSWORD")
	})

	t.Run("migrate rejects extra arguments", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "development")
		t.Setenv("LOG_LEVEL", "error")

		cmd := newRootCommand()
		cmd.SetArgs([]string{"migrate", "up", "now"})
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})

		assert.Error(t, cmd.Execute())
	})
}

func TestSeedSeatsReport(t *testing.T) {
	assert.Equal(t, "seeded seats for 3 licenses", seedSeatsReport(3))
	assert.Equal(t, "seeded seats for 0 licenses", seedSeatsReport(0))
}

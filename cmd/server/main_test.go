package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, options{}, opts)

	opts, err = parseFlags([]string{"-config", "dev.yaml", "-migrate", "status"})
	require.NoError(t, err)
	assert.Equal(t, "dev.yaml", opts.configPath)
	assert.Equal(t, "status", opts.migrate)

	_, err = parseFlags([]string{"-unknown"})
	assert.Error(t, err)
}

func TestHandleMigrations_RequiresCommand(t *testing.T) {
	err := handleMigrations(context.Background(), nil, "  ", nil)
	assert.ErrorIs(t, err, errNoMigrateCommand)
}

func TestGracePeriod(t *testing.T) {
	assert.Equal(t, 10*time.Second, gracePeriod(0))
	assert.Equal(t, 3*time.Second, gracePeriod(3))
}

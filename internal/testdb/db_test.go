package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MIYOG_TEST_DB_URL", "")
	assert.Empty(t, URL())
	assert.False(t, Available())

	t.Setenv("MIYOG_TEST_DB_URL", "postgres://fallback")
	assert.Equal(t, "postgres://fallback", URL())

	t.Setenv("DATABASE_URL", "postgres://primary")
	assert.Equal(t, "postgres://primary", URL())
	assert.True(t, Available())
}

func TestOpenSkipsWithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("MIYOG_TEST_DB_URL", "")

	skipped := true
	t.Run("inner", func(t *testing.T) {
		Open(t)
		skipped = false
	})
	assert.True(t, skipped)
}

package main

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/miyog/miyog-engine/internal/platform/postgres"
)

// handleMigrations runs a single goose command against the embedded
// migrations.
func handleMigrations(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	command = strings.ToLower(strings.TrimSpace(command))
	if command == "" {
		return errNoMigrateCommand
	}
	return postgres.RunMigrations(ctx, db, command, logger)
}

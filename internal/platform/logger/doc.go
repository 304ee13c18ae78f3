// Package logger configures log/slog JSON output and carries request-scoped
// loggers through context.
package logger

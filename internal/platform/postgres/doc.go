// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. It also owns the schema: SQL migrations
// are embedded in the binary and applied with goose.
package postgres

// Package store declares the persistence interfaces for users, projects and
// video tasks, together with the sentinel errors and transaction helpers
// shared by every implementation.
package store

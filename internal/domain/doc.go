// Package domain contains the engine's entities: users and their credits,
// projects, and video tasks with their render options and status vocabulary.
// The editor timeline lives in the timeline subpackage.
package domain

// Package client is a typed Go client for the miyog HTTP API.
//
// Every request carries the bearer token supplied by a TokenSource. A Poller
// follows a video task until it completes or fails, and Download streams the
// finished render.
package client

// Package task manages background job queuing, processing, and lifecycle.
// It runs long video renders outside the HTTP request path and persists
// every job so that work interrupted by a restart is picked up again.
package task

// Package api holds the HTTP handlers behind the /api routes: projects,
// uploads, AI generation, and video tasks with their progress stream.
// Handlers decode and validate requests, call the service layer, and map
// service errors onto status codes and safe messages.
package api

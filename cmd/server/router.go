package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/miyog/miyog-engine/internal/api"
	apiMiddleware "github.com/miyog/miyog-engine/internal/api/middleware"
)

// corsMaxAge is how long browsers may cache a preflight, in seconds.
const corsMaxAge = 300

// setupRouter creates the router with every route and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(apiMiddleware.NewMetricsMiddleware(app.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{apiMiddleware.TraceIDHeader},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.userService, app.logger)

	userHandler := api.NewUserHandler(app.userService, app.logger)
	projectHandler := api.NewProjectHandler(app.projectService, app.logger)
	uploadHandler := api.NewUploadHandler(app.uploadService, app.logger)
	aiHandler := api.NewAIHandler(app.aiService, app.logger)
	taskHandler := api.NewTaskHandler(app.taskService, app.progress, app.config.CORS.AllowedOrigins, app.logger)
	tempHandler := api.NewTempFileHandler(app.config.Runtime.Dir, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Local renders are fetched by <video> elements that cannot send headers.
		r.Get("/video/temp/{filename}", tempHandler.Serve)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/user", userHandler.GetCurrentUser)

			r.Get("/projects", projectHandler.ListProjects)
			r.Post("/projects", projectHandler.CreateProject)
			r.Get("/projects/{id}", projectHandler.GetProject)
			r.Put("/projects/{id}", projectHandler.UpdateProject)
			r.Delete("/projects/{id}", projectHandler.DeleteProject)

			r.Post("/upload/presigned", uploadHandler.Presign)
			r.Post("/upload", uploadHandler.Upload)

			r.Post("/ai/generate_script", aiHandler.GenerateScript)
			r.Post("/ai/generate_image", aiHandler.GenerateImage)
			r.Post("/ai/generate_video", aiHandler.GenerateVideo)
			r.Post("/ai/generate_voice", aiHandler.GenerateVoice)
			r.Get("/audio/voices", aiHandler.ListVoices)
			r.Get("/assets/search", aiHandler.SearchAssets)

			r.Get("/tasks", taskHandler.ListTasks)
			r.Post("/tasks/generate", taskHandler.GenerateTask)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Get("/tasks/{id}/stream", taskHandler.StreamTask)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})
	r.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	return r
}

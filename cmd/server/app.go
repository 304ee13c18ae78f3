package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/miyog/miyog-engine/internal/config"
	"github.com/miyog/miyog-engine/internal/events"
	"github.com/miyog/miyog-engine/internal/metrics"
	"github.com/miyog/miyog-engine/internal/platform/postgres"
	"github.com/miyog/miyog-engine/internal/platform/s3"
	"github.com/miyog/miyog-engine/internal/service"
	"github.com/miyog/miyog-engine/internal/service/auth"
	"github.com/miyog/miyog-engine/internal/store"
	"github.com/miyog/miyog-engine/internal/task"
)

// progressBuffer is the per-subscriber backlog of progress events.
const progressBuffer = 32

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore    store.UserStore
	projectStore store.ProjectStore
	videoStore   store.VideoTaskStore
	taskStore    task.TaskStore

	// Services
	jwtService     auth.JWTService
	userService    *service.UserServiceImpl
	projectService service.ProjectService
	taskService    service.TaskService
	aiService      service.AIService
	uploadService  service.UploadService

	// Infrastructure
	storage  *s3.Client
	metrics  *metrics.Metrics
	progress *events.ProgressBroker
	emitter  *events.InMemoryEventEmitter

	taskRunner *task.TaskRunner
}

// newApplication creates the application with every dependency initialized
// and the task runner started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.metrics, err = metrics.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	app.userStore = postgres.NewPostgresUserStore(db, logger)
	app.projectStore = postgres.NewPostgresProjectStore(db, logger)
	app.videoStore = postgres.NewPostgresVideoTaskStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.storage, err = s3.NewFromConfig(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("object storage initialized", "bucket", cfg.Storage.Bucket, "region", cfg.Storage.Region)

	providers, err := newProviders(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app.progress = events.NewProgressBroker(progressBuffer, logger)

	worker, err := newPipelineWorker(cfg, app.videoStore, app.storage, providers, app.progress, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline worker: %w", err)
	}

	app.taskRunner, err = setupTaskRunner(app, worker)
	if err != nil {
		return nil, fmt.Errorf("failed to setup task runner: %w", err)
	}

	txRunner := service.NewTxRunner(db)

	app.userService = service.NewUserService(app.userStore, logger)
	app.projectService = service.NewProjectService(app.projectStore, app.videoStore, logger)
	app.uploadService = service.NewUploadService(app.storage, logger)

	app.taskService, err = service.NewTaskService(service.TaskServiceDeps{
		Tx:       txRunner,
		Users:    app.userStore,
		Projects: app.projectStore,
		Tasks:    app.videoStore,
		Emitter:  app.emitter,
		Signer:   app.storage,
		Metrics:  app.metrics,
	}, logger)
	if err != nil {
		app.taskRunner.Stop()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.aiService, err = service.NewAIService(service.AIServiceDeps{
		Tx:      txRunner,
		Users:   app.userStore,
		Storage: app.storage,
		Scripts: providers.scripts,
		Images:  providers.inference,
		Clips:   providers.spaces,
		Voice:   providers.spaces,
		Assets:  providers.stock,
		Metrics: app.metrics,
	}, logger)
	if err != nil {
		app.taskRunner.Stop()
		return nil, fmt.Errorf("failed to create ai service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// setupTaskRunner builds the durable runner around worker, connects it to
// the event emitter and starts it. Start requeues work left by a previous
// run.
func setupTaskRunner(app *application, worker task.VideoProcessor) (*task.TaskRunner, error) {
	runner := task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		QueueSize:              app.config.Task.QueueSize,
		WorkerCount:            app.config.Task.WorkerCount,
		StuckTaskAge:           time.Duration(app.config.Task.StuckTaskAgeMinutes) * time.Minute,
		StuckTaskCheckInterval: time.Duration(app.config.Task.StuckCheckIntervalMins) * time.Minute,
	}, app.logger)

	factory := task.NewVideoGenerationTaskFactory(worker, app.logger)
	runner.Register(task.TaskTypeVideoGeneration, factory.Rebuild)
	runner.SetFinishHandler(func(t task.Task, err error, elapsed time.Duration) {
		app.metrics.ObserveTask(t.Type(), err, elapsed)
	})

	app.emitter = events.NewInMemoryEventEmitter(app.logger)
	app.emitter.RegisterHandler(task.NewTaskFactoryEventHandler(factory, runner, app.logger))

	if err := runner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}
	return runner, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases background workers and the database pool.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}
	app.logger.Info("application shutdown completed")
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/taskhive/apiserver/config"
	"github.com/taskhive/apiserver/internal/events"
	"github.com/taskhive/apiserver/internal/handlers"
	"github.com/taskhive/apiserver/internal/logging"
	"github.com/taskhive/apiserver/internal/services"
	"github.com/taskhive/apiserver/internal/storage"
	"github.com/taskhive/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	logger     *zap.Logger
	publisher  *events.Publisher
}

// New constructs a Server with its stores, services, and routes wired.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger, err := logging.Init(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	avatars, err := newAvatarStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	publisher, activity, err := newActivityPublisher(ctx, cfg.Events, logger)
	if err != nil {
		return nil, err
	}

	userStore := store.NewUserStore()
	projectStore := store.NewStore()

	userService := services.NewUserService(userStore, avatars)
	todoService := services.NewTodoService(projectStore, activity)
	projectService := services.NewProjectService(projectStore, userStore, activity)

	authMiddleware := handlers.RequireAuth(cfg.JWT)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, cfg.JWT)
	})
	router.Route("/todos", func(r chi.Router) {
		handlers.TodoRouter(r, todoService, authMiddleware)
	})
	router.Route("/projects", func(r chi.Router) {
		handlers.ProjectRouter(r, projectService, todoService, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.ProfileRouter(r, userService, authMiddleware)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		zap.Int("port", port),
		zap.String("storage_backend", cfg.Storage.Backend),
		zap.String("events_backend", cfg.Events.Backend))

	return &Server{
		httpServer: httpServer,
		router:     router,
		logger:     logger,
		publisher:  publisher,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	_ = s.logger.Sync()
	return s.httpServer.Close()
}

func newAvatarStore(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (services.AvatarStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		logger.Info("profile image storage disabled")
		return nil, nil
	case "minio":
		backend, err := storage.NewMinioBackend(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		avatars := storage.NewAvatars(backend)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("minio bucket: %w", err)
		}
		return avatars, nil
	case "gcs":
		backend, err := storage.NewGCSBackend(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		avatars := storage.NewAvatars(backend)
		if err := avatars.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("gcs bucket: %w", err)
		}
		return avatars, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func newActivityPublisher(ctx context.Context, cfg config.EventsConfig, logger *zap.Logger) (*events.Publisher, services.ActivityPublisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "none":
		logger.Info("activity events disabled")
		return nil, services.NopPublisher{}, nil
	case "rabbitmq":
		client, err := events.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, nil, fmt.Errorf("rabbitmq: %w", err)
		}
		publisher := events.NewPublisher(client, logger)
		return publisher, publisher, nil
	case "pubsub":
		client, err := events.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, nil, fmt.Errorf("pubsub: %w", err)
		}
		publisher := events.NewPublisher(client, logger)
		return publisher, publisher, nil
	default:
		return nil, nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

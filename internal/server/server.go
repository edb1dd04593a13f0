package server

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"backend-petsancheck/internal/auth"
	"backend-petsancheck/internal/config"
	"backend-petsancheck/internal/db"
	"backend-petsancheck/internal/history"
	"backend-petsancheck/internal/stream"
	"backend-petsancheck/internal/tracking"
)

type Server struct {
	App      *fiber.App
	Cfg      config.Config
	DB       db.Querier
	Redis    *redis.Client
	Stream   *stream.Hub
	History  history.Store
	Tracking *tracking.Service
	Logger   *slog.Logger
}

// Deps are the outer collaborators of the API. DB may be nil when history runs on
// SQLite; the account routes are then not mounted. Redis and Notifier are optional.
type Deps struct {
	DB       db.Querier
	Redis    *redis.Client
	History  history.Store
	Notifier tracking.CompletionNotifier
	Logger   *slog.Logger
}

func NewServer(cfg config.Config, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	trackingOpts := []tracking.Option{
		tracking.WithLogger(log),
		tracking.WithStatsInterval(cfg.StatsInterval),
	}
	if deps.Notifier != nil {
		trackingOpts = append(trackingOpts, tracking.WithCompletionNotifier(deps.Notifier))
	}

	hub := stream.NewHub(deps.Redis, log)
	s := &Server{
		App:      app,
		Cfg:      cfg,
		DB:       deps.DB,
		Redis:    deps.Redis,
		Stream:   hub,
		History:  deps.History,
		Tracking: tracking.NewService(deps.History, hub, trackingOpts...),
		Logger:   log,
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "history": s.Cfg.HistoryDriver})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	if s.DB != nil {
		auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	}
	tracking.RegisterRoutes(s.App.Group("/tracking"), s.Tracking, jwtMiddleware)
	history.RegisterRoutes(s.App.Group("/history"), s.History, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream, auth.StreamJWTMiddleware(s.Cfg.JWTSecret), s.Tracking.Owns)
}

// Close stops background work owned by the server. The fiber app is shut down by the caller.
func (s *Server) Close() error {
	s.Tracking.Close()
	return s.Stream.Close()
}

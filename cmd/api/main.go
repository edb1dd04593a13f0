package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-petsancheck/internal/config"
	"backend-petsancheck/internal/db"
	"backend-petsancheck/internal/events"
	"backend-petsancheck/internal/history"
	"backend-petsancheck/internal/logging"
	"backend-petsancheck/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const serviceName = "petsancheck-api"

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type mainDeps struct {
	loadConfig      func() (config.Config, error)
	newLogger       func(config.Config) *slog.Logger
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	connectEvents   func(config.Config, *slog.Logger) (*events.Publisher, error)
	openHistory     func(context.Context, config.Config, *pgxpool.Pool) (history.Store, io.Closer, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             func(context.Context, config.Config, Resources, <-chan os.Signal, ListenFunc) error
}

// Resources are the long-lived connections Run owns and closes on shutdown.
type Resources struct {
	Postgres *pgxpool.Pool
	Redis    *redis.Client
	History  history.Store
	Events   *events.Publisher
	Logger   *slog.Logger
}

func defaultDeps() mainDeps {
	return mainDeps{
		loadConfig:      config.Load,
		newLogger:       func(cfg config.Config) *slog.Logger { return logging.New(serviceName, cfg.LogLevel) },
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		connectEvents:   connectEvents,
		openHistory:     openHistory,
		notify:          signal.Notify,
		run:             Run,
	}
}

func realMain(deps mainDeps) {
	cfg, err := deps.loadConfig()
	if err != nil {
		slog.Error("configuration invalid", "error", err)
		return
	}
	log := deps.newLogger(cfg)
	slog.SetDefault(log)

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Warn("postgres connection failed", "error", err)
		pg = nil
	}

	store, closer, err := deps.openHistory(context.Background(), cfg, pg)
	if err != nil {
		log.Error("history store unavailable", "driver", cfg.HistoryDriver, "error", err)
		if pg != nil {
			pg.Close()
		}
		return
	}
	if closer != nil {
		defer closer.Close()
	}

	rdb := deps.connectRedis(cfg)

	var pub *events.Publisher
	if cfg.AMQPURL != "" {
		pub, err = deps.connectEvents(cfg, log)
		if err != nil {
			log.Warn("walk events disabled", "error", err)
			pub = nil
		}
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	res := Resources{Postgres: pg, Redis: rdb, History: store, Events: pub, Logger: log}
	if err := deps.run(context.Background(), cfg, res, signals, nil); err != nil {
		log.Error("server exited with error", "error", err)
	}
}

func connectEvents(cfg config.Config, log *slog.Logger) (*events.Publisher, error) {
	return events.Dial(cfg.AMQPURL, log)
}

var errPostgresRequired = errors.New("postgres history driver needs a postgres connection")

func openHistory(ctx context.Context, cfg config.Config, pg *pgxpool.Pool) (history.Store, io.Closer, error) {
	if cfg.HistoryDriver == config.HistorySQLite {
		conn, err := db.OpenSQLite(cfg)
		if err != nil {
			return nil, nil, err
		}
		store, err := history.NewSQLiteStore(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return store, conn, nil
	}
	if pg == nil {
		return nil, nil, errPostgresRequired
	}
	return history.NewPostgresStore(pg), nil, nil
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, res Resources, signals <-chan os.Signal, listen ListenFunc) error {
	deps := server.Deps{Redis: res.Redis, History: res.History, Logger: res.Logger}
	if res.Postgres != nil {
		deps.DB = res.Postgres
	}
	if res.Events != nil {
		deps.Notifier = res.Events
	}
	srv := server.NewServer(cfg, deps)

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			_ = srv.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := shutdownFn(srv.App, shutdownCtx); err != nil {
		return err
	}
	if err := srv.Close(); err != nil {
		srv.Logger.Warn("stream hub close", "error", err)
	}
	if res.Postgres != nil {
		res.Postgres.Close()
	}
	if res.Redis != nil {
		_ = res.Redis.Close()
	}
	if res.Events != nil {
		_ = res.Events.Close()
	}
	return nil
}

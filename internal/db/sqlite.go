package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"backend-petsancheck/internal/config"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens the embedded history database used when no Postgres is deployed.
func OpenSQLite(cfg config.Config) (*sql.DB, error) {
	if cfg.SQLitePath == "" {
		return nil, errors.New("sqlite path required")
	}
	conn, err := sql.Open("sqlite", cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	// one writer keeps modernc from returning SQLITE_BUSY under concurrent stops
	conn.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gofrs/flock"
	"github.com/jmoiron/sqlx"

	"github.com/kihaltung/attitude/internal/api"
	"github.com/kihaltung/attitude/internal/config"
	"github.com/kihaltung/attitude/internal/db"
	"github.com/kihaltung/attitude/internal/logger"
)

// app bundles what every subcommand needs.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	store api.Store
	close func() error
}

func loadApp(ctx context.Context, opts *rootOptions, logOut io.Writer, migrate bool) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	log := logger.New(logOut, logger.ParseLevel(cfg.Log.Level))
	a := &app{cfg: cfg, log: log, close: func() error { return nil }}

	if cfg.DB.Driver == config.DriverMemory {
		log.Warn("using the in-memory store, data is lost on exit")
		a.store = api.NewMemoryStore()
		return a, nil
	}

	conn, err := db.Open(ctx, cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}
	if migrate {
		if _, err := migrateLocked(ctx, cfg, conn, log); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	store, err := db.NewSQLStore(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	a.store = store
	a.close = conn.Close
	return a, nil
}

// sqliteLockPath returns "<db>.lock" next to an on-disk SQLite database, or
// "" for in-memory databases.
func sqliteLockPath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if strings.Contains(path[i:], "mode=memory") {
			return ""
		}
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return ""
	}
	return path + ".lock"
}

// migrateLocked applies pending migrations. For SQLite an exclusive file
// lock keeps concurrent processes from migrating the same database.
func migrateLocked(ctx context.Context, cfg *config.Config, conn *sqlx.DB, log *logger.Logger) ([]string, error) {
	if cfg.DB.Driver == config.DriverSQLite {
		if lockPath := sqliteLockPath(cfg.DB.DSN); lockPath != "" {
			lock := flock.New(lockPath)
			if err := lock.Lock(); err != nil {
				return nil, fmt.Errorf("failed to acquire lock on %s: %w", lockPath, err)
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					log.Warn("release migration lock: %v", err)
				}
			}()
		}
	}
	applied, err := db.RunMigrations(ctx, conn, cfg.DB.Driver, cfg.DB.MigrationsDir)
	if err != nil {
		return applied, err
	}
	for _, name := range applied {
		log.Info("applied migration %s", name)
	}
	return applied, nil
}

package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*/*.sql
var embeddedMigrations embed.FS

type migrationFile struct {
	name string
	data []byte
}

const schemaMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations (
    name       TEXT PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
)`

// RunMigrations applies the pending migrations for driver, each in its own
// transaction, and returns the names it applied. Files in migrationsDir
// replace the embedded set when the directory exists.
func RunMigrations(ctx context.Context, db *sqlx.DB, driver, migrationsDir string) ([]string, error) {
	files, err := loadMigrations(driver, migrationsDir)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaMigrations); err != nil {
		return nil, fmt.Errorf("create schema_migrations: %w", err)
	}
	var done []string
	if err := db.SelectContext(ctx, &done, `SELECT name FROM schema_migrations`); err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	seen := make(map[string]bool, len(done))
	for _, n := range done {
		seen[n] = true
	}

	var applied []string
	for _, mf := range files {
		if seen[mf.name] || len(mf.data) == 0 {
			continue
		}
		err := withTx(ctx, db, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, string(mf.data)); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`), mf.name, time.Now().UTC())
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("exec migration %s: %w", mf.name, err)
		}
		applied = append(applied, mf.name)
	}
	return applied, nil
}

func loadMigrations(driver, dir string) ([]migrationFile, error) {
	var files []migrationFile
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, entry := range entries {
				if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
					continue
				}
				content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
				if err != nil {
					return nil, fmt.Errorf("read migration %s: %w", entry.Name(), err)
				}
				files = append(files, migrationFile{name: entry.Name(), data: content})
			}
			sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
			return files, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read migrations: %w", err)
		}
	}

	root := path.Join("migrations", driver)
	entries, err := embeddedMigrations.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("no embedded migrations for driver %q: %w", driver, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".sql" {
			continue
		}
		content, err := embeddedMigrations.ReadFile(path.Join(root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read embedded migration %s: %w", entry.Name(), err)
		}
		files = append(files, migrationFile{name: entry.Name(), data: content})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"candlefuse/config"

	"github.com/lib/pq"
)

const bootstrapTimeout = 10 * time.Second

// CreateDatabase creates cfg.DBName through the maintenance database when it is missing.
func CreateDatabase(cfg config.PostgresConfig, env string) error {
	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	admin, err := sql.Open("postgres", cfg.AdminDSN(env))
	if err != nil {
		return fmt.Errorf("open admin connection: %w", err)
	}
	defer admin.Close()

	found, err := databaseExists(ctx, admin, cfg.DBName)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if _, err := admin.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.DBName)); err != nil {
		return fmt.Errorf("create database %s: %w", cfg.DBName, err)
	}
	return nil
}

func databaseExists(ctx context.Context, db *sql.DB, name string) (bool, error) {
	var found bool
	row := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`, name)
	if err := row.Scan(&found); err != nil {
		return false, fmt.Errorf("look up database %s: %w", name, err)
	}
	return found, nil
}

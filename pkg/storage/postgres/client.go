package postgres

import (
	"context"
	"fmt"

	"candlefuse/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresClient struct {
	DB *gorm.DB
}

func NewClient(dsn string) (*PostgresClient, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &PostgresClient{DB: db}, nil
}

// InitializeAndMigrate connects to Postgres, optionally creates the DB, applies pool limits and runs AutoMigrate.
func InitializeAndMigrate(cfg config.PostgresConfig, env string, createDB bool) (*PostgresClient, error) {
	if createDB {
		if err := CreateDatabase(cfg, env); err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	client, err := NewClient(cfg.DSN(env))
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	if err := client.configurePool(cfg); err != nil {
		return nil, err
	}

	if err := client.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func (p *PostgresClient) configurePool(cfg config.PostgresConfig) error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

func (p *PostgresClient) AutoMigrate() error {
	if err := p.DB.AutoMigrate(&FusedRecord{}, &CandleRecord{}); err != nil {
		return fmt.Errorf("auto-migrate fused tables: %w", err)
	}
	return nil
}

func (p *PostgresClient) IsHealthy(ctx context.Context) bool {
	db, err := p.DB.DB()
	if err != nil {
		return false
	}
	return db.PingContext(ctx) == nil
}

func (p *PostgresClient) Close() error {
	db, err := p.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to retrieve raw DB: %w", err)
	}
	return db.Close()
}

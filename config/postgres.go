package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// PostgresConfig defines the configuration for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`

	// Parameter Store names used in prod instead of Host/User/Password.
	SSM SSMParams `mapstructure:"ssm"`
}

type SSMParams struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

// DSN builds the connection string for the configured database.
// In prod the host and credentials come from AWS Parameter Store.
func (cfg *PostgresConfig) DSN(env string) string {
	return cfg.dsn(env, cfg.DBName)
}

// AdminDSN points at the maintenance "postgres" database, used to create cfg.DBName.
func (cfg *PostgresConfig) AdminDSN(env string) string {
	return cfg.dsn(env, "postgres")
}

func (cfg *PostgresConfig) dsn(env, dbName string) string {
	host, user, password := cfg.Host, cfg.User, cfg.Password
	if env == "prod" {
		host = getParameterStoreValue(cfg.SSM.Host, true)
		user = getParameterStoreValue(cfg.SSM.User, true)
		password = getParameterStoreValue(cfg.SSM.Password, true)
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, cfg.Port, user, password, dbName, cfg.SSLMode,
	)

	if cfg.TimeZone != "" {
		dsn += fmt.Sprintf(" TimeZone=%s", cfg.TimeZone)
	}

	return dsn
}

func getParameterStoreValue(parameterName string, decrypt bool) string {
	if parameterName == "" {
		return ""
	}

	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cfg, err := config.LoadDefaultConfig(ctxWithTimeout)
	if err != nil {
		return ""
	}

	client := ssm.NewFromConfig(cfg)

	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctxWithTimeout, input)
	if err != nil {
		return ""
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return ""
	}

	return *result.Parameter.Value
}

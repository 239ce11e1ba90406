package helper

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the PostgreSQL connection settings.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the connection settings from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		Database: getEnv("DB_NAME", ""),
		Username: getEnv("DB_USER", ""),
		Password: getEnv("DB_PASS", ""),
		Schema:   getEnv("DB_SCHEMA", "public"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	if config.Host == "" {
		return nil, NewError("database configuration", fmt.Errorf("DB_HOST is required"))
	}
	if config.Database == "" {
		return nil, NewError("database configuration", fmt.Errorf("DB_NAME is required"))
	}
	if config.Username == "" {
		return nil, NewError("database configuration", fmt.Errorf("DB_USER is required"))
	}

	return config, nil
}

// ConnectionString builds a lib/pq URL. The schema is passed as search_path
// so the knowledge views can be queried unqualified.
func (c *DatabaseConfiguration) ConnectionString() string {
	query := url.Values{}
	query.Set("sslmode", c.SSLMode)
	if c.Schema != "" {
		query.Set("search_path", c.Schema)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

// Database bundles the connection pool with a named logger.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens the connection pool and waits until the server answers.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration validation", fmt.Errorf("database configuration is nil"))
	}
	if logger == nil {
		logger = DiscardLogger()
	}

	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, NewError("open database", err)
	}
	instance.SetMaxOpenConns(10)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(30 * time.Minute)

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return instance.PingContext(ctx)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(ping, policy); err != nil {
		instance.Close()
		return nil, NewError("ping database", err)
	}

	db := &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger.With(slog.String("database", name)),
	}
	db.Logger.Info("Connected to database", slog.String("host", config.Host), slog.String("schema", config.Schema))

	return db, nil
}

// NewTestDatabase opens a database for tests and panics on failure.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	db, err := NewDatabase("test", config, DiscardLogger())
	if err != nil {
		panic(err)
	}
	return db
}

// Close closes the connection pool.
func (d *Database) Close() error {
	if d == nil || d.Instance == nil {
		return nil
	}
	return d.Instance.Close()
}

// Package database manages the connection used by the sql record source.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver ("pgx")
	_ "modernc.org/sqlite"             // SQLite / GeoPackage driver

	"github.com/dbsmedya/straycheck/internal/config"
	"github.com/dbsmedya/straycheck/internal/sqlutil"
)

// Manager owns the single read connection pool of a run.
type Manager struct {
	DB      *sql.DB
	Dialect sqlutil.Dialect
	config  *config.DatabaseConfig
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.DatabaseConfig) *Manager {
	m := &Manager{config: cfg}
	if cfg != nil {
		m.Dialect = sqlutil.DialectFor(cfg.Driver)
	}
	return m
}

// Connect opens the pool and verifies it with a ping. There is no retry:
// a failure here fails the run.
func (m *Manager) Connect(ctx context.Context) error {
	if m.config == nil {
		return fmt.Errorf("database config is nil")
	}

	dsn, err := BuildDSN(m.config)
	if err != nil {
		return err
	}

	db, err := sql.Open(m.config.Driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s database: %w", m.config.Driver, err)
	}

	// Configure connection pool
	if m.config.MaxConnections > 0 {
		db.SetMaxOpenConns(m.config.MaxConnections)
	}
	if m.config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(m.config.MaxIdleConnections)
	}
	db.SetConnMaxLifetime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to connect to %s database: %w", m.config.Driver, err)
	}

	m.DB = db
	return nil
}

// BuildDSN constructs a driver-specific DSN from configuration.
func BuildDSN(cfg *config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case "mysql", "":
		return buildMySQLDSN(cfg), nil
	case "pgx":
		return buildPostgresDSN(cfg), nil
	case "sqlite":
		if cfg.Path == "" {
			return "", fmt.Errorf("sqlite driver requires a path")
		}
		// Read-only: the check never writes.
		return "file:" + cfg.Path + "?mode=ro", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func buildMySQLDSN(cfg *config.DatabaseConfig) string {
	// Format: user:password@tcp(host:port)/database?params
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
	)

	if cfg.Database != "" {
		dsn += cfg.Database
	}

	// Timestamps come back as UTC time.Time values
	params := "?parseTime=true&loc=UTC"
	switch cfg.TLS {
	case "disable":
		params += "&tls=false"
	case "required":
		params += "&tls=true"
	case "preferred", "":
		params += "&tls=preferred"
	}

	return dsn + params
}

func buildPostgresDSN(cfg *config.DatabaseConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.Database,
	}

	q := url.Values{}
	switch cfg.TLS {
	case "disable":
		q.Set("sslmode", "disable")
	case "required":
		q.Set("sslmode", "require")
	case "preferred", "":
		q.Set("sslmode", "prefer")
	}
	u.RawQuery = q.Encode()

	return u.String()
}

// Close closes the pool.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	if err := m.DB.Close(); err != nil {
		return fmt.Errorf("database close: %w", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("database not connected")
	}
	if err := m.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

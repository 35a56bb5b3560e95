package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type connectionConfig struct {
	driver string
	dsn    string
	debug  bool
}

func (c connectionConfig) GetDebug() bool                { return c.debug }
func (c connectionConfig) GetDriver() string             { return c.driver }
func (c connectionConfig) GetServer() string             { return c.dsn }
func (c connectionConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c connectionConfig) GetOtelIdentifier() string     { return "go-credentials" }

// OpenPostgres opens a Postgres-backed persistence client for the credential
// store.
func OpenPostgres(dsn string, debug bool) (*persistence.Client, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres: %w", err)
	}
	client, err := persistence.New(connectionConfig{driver: "postgres", dsn: dsn, debug: debug}, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: build persistence client: %w", err)
	}
	return client, nil
}

// OpenSQLite opens a SQLite-backed persistence client. Memory DSNs should pin
// the pool to one connection so every query sees the same database.
func OpenSQLite(dsn string, debug bool) (*persistence.Client, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlstore: sqlite dsn is required")
	}
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite: %w", err)
	}
	if strings.Contains(dsn, "mode=memory") || strings.Contains(dsn, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(connectionConfig{driver: "sqlite3", dsn: dsn, debug: debug}, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: build persistence client: %w", err)
	}
	return client, nil
}

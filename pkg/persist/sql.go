package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// SQLStore is a Store backed by database/sql. It works with PostgreSQL,
// MySQL and SQLite drivers. Expiry is kept as unix milliseconds so the same
// comparison works on every dialect:
//
//	CREATE TABLE draftform_drafts (
//	    id VARCHAR(255) PRIMARY KEY,
//	    data BYTEA NOT NULL,
//	    expires_at BIGINT NOT NULL,
//	    updated_at BIGINT NOT NULL
//	);
//	CREATE INDEX idx_draftform_drafts_expires ON draftform_drafts(expires_at);
type SQLStore struct {
	db        *sql.DB
	tableName string
	dialect   SQLDialect
	now       func() time.Time
	logger    *slog.Logger

	cleanupInterval time.Duration
	closed          atomic.Bool
	done            chan struct{}
}

// SQLDialect selects placeholder and upsert syntax.
type SQLDialect int

const (
	// DialectPostgreSQL uses $n placeholders and ON CONFLICT.
	DialectPostgreSQL SQLDialect = iota
	// DialectMySQL uses ? placeholders and ON DUPLICATE KEY.
	DialectMySQL
	// DialectSQLite uses ? placeholders and INSERT OR REPLACE.
	DialectSQLite
)

// ParseDialect maps a driver or dialect name to a SQLDialect.
func ParseDialect(name string) (SQLDialect, error) {
	switch name {
	case "postgres", "postgresql", "pgx":
		return DialectPostgreSQL, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return 0, fmt.Errorf("persist: unknown sql dialect %q", name)
	}
}

// SQLStoreOption configures SQLStore behavior.
type SQLStoreOption func(*sqlStoreConfig)

type sqlStoreConfig struct {
	tableName       string
	dialect         SQLDialect
	cleanupInterval time.Duration
	now             func() time.Time
	logger          *slog.Logger
}

// WithSQLTableName sets the table name. Default: "draftform_drafts".
func WithSQLTableName(name string) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.tableName = name
	}
}

// WithSQLDialect sets the SQL dialect. Default: DialectPostgreSQL.
func WithSQLDialect(dialect SQLDialect) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.dialect = dialect
	}
}

// WithSQLCleanupInterval sets how often expired rows are deleted.
// Default: 5 minutes.
func WithSQLCleanupInterval(d time.Duration) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.cleanupInterval = d
	}
}

// WithSQLClock overrides the time source. Used by tests.
func WithSQLClock(now func() time.Time) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.now = now
	}
}

// WithSQLLogger sets the logger used by the cleanup loop.
func WithSQLLogger(l *slog.Logger) SQLStoreOption {
	return func(c *sqlStoreConfig) {
		c.logger = l
	}
}

// NewSQLStore creates a SQL-backed store. The table must exist; see
// CreateTable.
func NewSQLStore(db *sql.DB, opts ...SQLStoreOption) *SQLStore {
	cfg := &sqlStoreConfig{
		tableName:       "draftform_drafts",
		dialect:         DialectPostgreSQL,
		cleanupInterval: 5 * time.Minute,
		now:             time.Now,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &SQLStore{
		db:              db,
		tableName:       cfg.tableName,
		dialect:         cfg.dialect,
		now:             cfg.now,
		logger:          cfg.logger.With("component", "persist", "backend", "sql"),
		cleanupInterval: cfg.cleanupInterval,
		done:            make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

func (s *SQLStore) placeholder(n int) string {
	if s.dialect == DialectPostgreSQL {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (s *SQLStore) upsertQuery() string {
	switch s.dialect {
	case DialectMySQL:
		return fmt.Sprintf(`
			INSERT INTO %s (id, data, expires_at, updated_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				data = VALUES(data),
				expires_at = VALUES(expires_at),
				updated_at = VALUES(updated_at)
		`, s.tableName)
	case DialectSQLite:
		return fmt.Sprintf(`
			INSERT OR REPLACE INTO %s (id, data, expires_at, updated_at)
			VALUES (?, ?, ?, ?)
		`, s.tableName)
	default:
		return fmt.Sprintf(`
			INSERT INTO %s (id, data, expires_at, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET
				data = EXCLUDED.data,
				expires_at = EXCLUDED.expires_at,
				updated_at = EXCLUDED.updated_at
		`, s.tableName)
	}
}

// Save upserts data under key.
func (s *SQLStore) Save(ctx context.Context, key string, data []byte, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.ExecContext(ctx, s.upsertQuery(), key, data, expiresAt.UnixMilli(), s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("persist: save %q: %w", key, err)
	}
	return nil
}

// Load returns the data under key if it has not expired.
func (s *SQLStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = %s AND expires_at > %s`,
		s.tableName, s.placeholder(1), s.placeholder(2))

	var data []byte
	err := s.db.QueryRowContext(ctx, query, key, s.now().UnixMilli()).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("persist: load %q: %w", key, err)
	}
	return data, nil
}

// Delete removes the row for key.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = %s`, s.tableName, s.placeholder(1))
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("persist: delete %q: %w", key, err)
	}
	return nil
}

// Close stops the cleanup loop. The database handle is left open since it
// may be shared with other components.
func (s *SQLStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	close(s.done)
	return nil
}

func (s *SQLStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := s.Cleanup(ctx); err != nil {
				s.logger.Warn("draft cleanup failed", "error", err)
			} else if n > 0 {
				s.logger.Debug("expired drafts removed", "count", n)
			}
			cancel()
		case <-s.done:
			return
		}
	}
}

// Cleanup deletes expired rows and reports how many were removed.
func (s *SQLStore) Cleanup(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= %s`, s.tableName, s.placeholder(1))
	res, err := s.db.ExecContext(ctx, query, s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("persist: cleanup: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// CreateTable creates the draft table and its expiry index if missing.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	var query string
	switch s.dialect {
	case DialectMySQL:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(255) PRIMARY KEY,
				data BLOB NOT NULL,
				expires_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)
		`, s.tableName)
	case DialectSQLite:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id TEXT PRIMARY KEY,
				data BLOB NOT NULL,
				expires_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			)
		`, s.tableName)
	default:
		query = fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(255) PRIMARY KEY,
				data BYTEA NOT NULL,
				expires_at BIGINT NOT NULL,
				updated_at BIGINT NOT NULL
			)
		`, s.tableName)
	}
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("persist: create table: %w", err)
	}

	indexQuery := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_expires ON %s(expires_at)`, s.tableName, s.tableName)
	if s.dialect == DialectMySQL {
		// MySQL has no IF NOT EXISTS for indexes; a duplicate is ignored.
		indexQuery = fmt.Sprintf(`CREATE INDEX idx_%s_expires ON %s(expires_at)`, s.tableName, s.tableName)
		s.db.ExecContext(ctx, indexQuery)
		return nil
	}
	if _, err := s.db.ExecContext(ctx, indexQuery); err != nil {
		return fmt.Errorf("persist: create index: %w", err)
	}
	return nil
}

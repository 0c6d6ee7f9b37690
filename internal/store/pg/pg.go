// Package pg backs the console's stores with PostgreSQL.
package pg

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store holds the shared connection pool. The per-concern stores hang off
// it so a single pool serves the whole process.
type Store struct {
	db *sql.DB
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool. Tests use this with sqlmock.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Content() *ContentStore     { return &ContentStore{db: s.db} }
func (s *Store) Directory() *DirectoryStore { return &DirectoryStore{db: s.db} }
func (s *Store) AuditSink() *AuditSink      { return &AuditSink{db: s.db} }
func (s *Store) LedgerLog() *LedgerLog      { return &LedgerLog{db: s.db} }

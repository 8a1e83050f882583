// Package store persists calculations and electricity rates in SQLite or
// PostgreSQL.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // register postgres driver
	_ "modernc.org/sqlite" // register sqlite driver
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store provides access to the calculations and electricity_rates tables.
type Store struct {
	db       *sql.DB
	postgres bool
}

// IsPostgres reports whether dsn names a PostgreSQL database rather than a
// SQLite file.
func IsPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Open opens or creates the database named by dsn: a postgres:// URL, or a
// SQLite file path.
func Open(dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	pg := IsPostgres(dsn)
	if pg {
		db, err = sql.Open("postgres", dsn)
	} else {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o750); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
		db, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	}
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	if !pg {
		// One connection serialises writers from concurrent batch workers.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, postgres: pg}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver names the underlying database driver.
func (s *Store) Driver() string {
	if s.postgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

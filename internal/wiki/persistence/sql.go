package persistence

import (
	"context"
	"database/sql"
	"fmt"
)

// Dialect captures the few places SQLite and Postgres disagree.
type Dialect struct {
	Name     string
	BlobType string
	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder func(n int) string
}

var (
	SQLite = Dialect{
		Name:        "sqlite3",
		BlobType:    "BLOB",
		Placeholder: func(int) string { return "?" },
	}
	Postgres = Dialect{
		Name:        "postgres",
		BlobType:    "BYTEA",
		Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	}
)

// SQLAdapter stores records in a single wiki_records table.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLAdapter creates the records table if needed. It is idempotent.
func NewSQLAdapter(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLAdapter, error) {
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS wiki_records (
			name TEXT PRIMARY KEY,
			data %s NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, dialect.BlobType)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("create wiki_records: %w", err)
	}
	return &SQLAdapter{db: db, dialect: dialect}, nil
}

func (s *SQLAdapter) Load(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	q := "SELECT data FROM wiki_records WHERE name = " + s.dialect.Placeholder(1)
	err := s.db.QueryRowContext(ctx, q, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s load %s: %w", s.dialect.Name, name, err)
	}
	return data, nil
}

func (s *SQLAdapter) Save(ctx context.Context, name string, data []byte) error {
	q := fmt.Sprintf(`INSERT INTO wiki_records (name, data, updated_at)
		VALUES (%s, %s, CURRENT_TIMESTAMP)
		ON CONFLICT (name) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	if _, err := s.db.ExecContext(ctx, q, name, data); err != nil {
		return fmt.Errorf("%s save %s: %w", s.dialect.Name, name, err)
	}
	return nil
}

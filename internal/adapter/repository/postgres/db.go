package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
// connectionString should be in the format: "host=localhost port=5432 user=postgres password=postgres dbname=checkflow sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS ledger_rows (
	row_number  BIGSERIAL PRIMARY KEY,
	check_id    UUID NOT NULL UNIQUE,
	recipient   TEXT NOT NULL,
	check_date  TEXT NOT NULL,
	amount1     TEXT NOT NULL,
	amount2     TEXT NOT NULL,
	full_name   TEXT NOT NULL,
	status      TEXT NOT NULL,
	issuer_id   BIGINT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS recipients (
	handle   TEXT PRIMARY KEY,
	user_id  BIGINT NOT NULL,
	note     TEXT NOT NULL DEFAULT ''
);
`

// EnsureSchema creates the ledger and directory tables if they are missing
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

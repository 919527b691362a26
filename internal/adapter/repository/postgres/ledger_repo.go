package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// ledgerRepository implements domain.LedgerRepository
type ledgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) domain.LedgerRepository {
	return &ledgerRepository{db: db}
}

// AppendPending inserts the row of a new check
func (r *ledgerRepository) AppendPending(ctx context.Context, check *domain.Check) error {
	query := `
		INSERT INTO ledger_rows (check_id, recipient, check_date, amount1, amount2, full_name, status, issuer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	amount1, amount2 := check.Draft.AmountTexts()
	_, err := r.db.ExecContext(ctx, query,
		check.ID,
		check.Draft.Recipient.Handle,
		check.Draft.Date,
		amount1,
		amount2,
		check.Draft.FullName,
		string(check.Status),
		check.IssuerID,
		check.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to append check %s: %w", domain.ErrLedgerSync, check.ID, err)
	}

	return nil
}

// UpdateStatus rewrites the status of the row keyed by checkID.
// The lookup uses the unique index on check_id instead of scanning rows.
func (r *ledgerRepository) UpdateStatus(ctx context.Context, checkID uuid.UUID, status domain.CheckStatus) error {
	query := `
		UPDATE ledger_rows
		SET status = $2, updated_at = now()
		WHERE check_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, checkID, string(status))
	if err != nil {
		return fmt.Errorf("%w: failed to update check %s: %w", domain.ErrLedgerSync, checkID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: failed to read update result: %w", domain.ErrLedgerSync, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", domain.ErrLedgerRowNotFound, checkID)
	}

	return nil
}

// Rows returns every ledger row as 7 text cells in insertion order
func Rows(ctx context.Context, db *DB) ([][]string, error) {
	query := `
		SELECT check_id, recipient, check_date, amount1, amount2, full_name, status
		FROM ledger_rows
		ORDER BY row_number
	`

	result, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger rows: %w", err)
	}
	defer result.Close()

	var out [][]string
	for result.Next() {
		row := make([]string, 7)
		if err := result.Scan(&row[0], &row[1], &row[2], &row[3], &row[4], &row[5], &row[6]); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		out = append(out, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger rows: %w", err)
	}

	return out, nil
}

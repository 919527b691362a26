package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// directoryRepository implements domain.DirectoryRepository
type directoryRepository struct {
	db *DB
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *DB) domain.DirectoryRepository {
	return &directoryRepository{db: db}
}

// Get retrieves a recipient by handle
func (r *directoryRepository) Get(ctx context.Context, handle string) (*domain.Recipient, error) {
	query := `
		SELECT handle, user_id, note
		FROM recipients
		WHERE handle = $1
	`

	var recipient domain.Recipient
	err := r.db.QueryRowContext(ctx, query, handle).Scan(
		&recipient.Handle,
		&recipient.UserID,
		&recipient.Note,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecipientNotFound, handle)
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	return &recipient, nil
}

// Save upserts the record for recipient.Handle
func (r *directoryRepository) Save(ctx context.Context, recipient *domain.Recipient) error {
	query := `
		INSERT INTO recipients (handle, user_id, note)
		VALUES ($1, $2, $3)
		ON CONFLICT (handle) DO UPDATE SET user_id = EXCLUDED.user_id, note = EXCLUDED.note
	`

	_, err := r.db.ExecContext(ctx, query, recipient.Handle, recipient.UserID, recipient.Note)
	if err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}

	return nil
}

// List retrieves all recipients ordered by handle
func (r *directoryRepository) List(ctx context.Context) ([]*domain.Recipient, error) {
	query := `
		SELECT handle, user_id, note
		FROM recipients
		ORDER BY handle
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	defer rows.Close()

	var recipients []*domain.Recipient
	for rows.Next() {
		var recipient domain.Recipient
		if err := rows.Scan(&recipient.Handle, &recipient.UserID, &recipient.Note); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}
		recipients = append(recipients, &recipient)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}

	return recipients, nil
}

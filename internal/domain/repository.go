package domain

import (
	"context"

	"github.com/google/uuid"
)

// LedgerRepository defines the contract with the external append-only ledger.
// Both operations are best effort: failures are reported, never retried here.
type LedgerRepository interface {
	// AppendPending writes the full row of a new check with status Pending
	AppendPending(ctx context.Context, check *Check) error

	// UpdateStatus finds the row keyed by checkID and overwrites its status cell.
	// Returns ErrLedgerRowNotFound if no row carries the id.
	UpdateStatus(ctx context.Context, checkID uuid.UUID, status CheckStatus) error
}

// DirectoryRepository defines the interface for recipient directory persistence
type DirectoryRepository interface {
	// Get retrieves a recipient by its normalized handle.
	// Returns ErrRecipientNotFound if the handle is unknown.
	Get(ctx context.Context, handle string) (*Recipient, error)

	// Save creates or replaces the record for recipient.Handle
	Save(ctx context.Context, recipient *Recipient) error

	// List retrieves all recipients ordered by handle
	List(ctx context.Context) ([]*Recipient, error)
}

// Messenger delivers outbound chat messages
type Messenger interface {
	// Send delivers a message; returns ErrRecipientUnreachable if the chat cannot be reached
	Send(ctx context.Context, msg Message) error

	// EditText replaces the text of a message sent earlier and drops its buttons
	EditText(ctx context.Context, chatID int64, messageID int, text string) error

	// ClearButtons removes the inline buttons of a message sent earlier
	ClearButtons(ctx context.Context, chatID int64, messageID int) error
}

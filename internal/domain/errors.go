package domain

import "errors"

var (
	// ErrInvalidInput is returned for malformed dates, amounts, names or records
	ErrInvalidInput = errors.New("invalid input")

	// ErrRecipientNotFound is returned when a token matches no directory record
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrUnauthorized is returned when a non-operator invokes a restricted action
	ErrUnauthorized = errors.New("operator permission required")

	// ErrRecipientUnreachable is returned when the recipient chat cannot be delivered to
	ErrRecipientUnreachable = errors.New("recipient unreachable")

	// ErrLedgerSync is returned when the ledger cannot be written
	ErrLedgerSync = errors.New("ledger sync failed")

	// ErrLedgerRowNotFound is returned when no ledger row carries the check id
	ErrLedgerRowNotFound = errors.New("ledger row not found")

	// ErrCheckNotFound covers both unknown and already resolved checks
	ErrCheckNotFound = errors.New("check expired or not found")

	// ErrDuplicateCheck is returned when a check id is registered twice
	ErrDuplicateCheck = errors.New("check already registered")

	// ErrCheckAlreadyResolved is returned on a second terminal transition
	ErrCheckAlreadyResolved = errors.New("check already resolved")
)

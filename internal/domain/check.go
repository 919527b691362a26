package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted literal check date format (DD.MM.YYYY)
const DateLayout = "02.01.2006"

// CheckStatus represents the lifecycle status of a check.
// The string value is the text written to the ledger status column.
type CheckStatus string

const (
	CheckStatusPending  CheckStatus = "Pending"
	CheckStatusAccepted CheckStatus = "Accepted"
	CheckStatusRejected CheckStatus = "Rejected"
)

// IsTerminal reports whether no further transition is allowed from this status
func (s CheckStatus) IsTerminal() bool {
	return s == CheckStatusAccepted || s == CheckStatusRejected
}

// CheckDraft is the data collected by the wizard before a check is issued
type CheckDraft struct {
	RecipientToken string     // Raw operator input used to find the recipient
	Recipient      *Recipient // Resolved once, embedded in the decision payload
	Date           string     // DD.MM.YYYY
	Amount1        decimal.Decimal
	Amount2        decimal.Decimal
	Amount1Text    string // Digits as typed, leading zeros kept; empty means Amount1.String()
	Amount2Text    string
	FullName       string
}

// AmountTexts returns both amounts the way they are shown and written to the ledger
func (d *CheckDraft) AmountTexts() (string, string) {
	return amountText(d.Amount1Text, d.Amount1), amountText(d.Amount2Text, d.Amount2)
}

func amountText(typed string, value decimal.Decimal) string {
	if typed != "" {
		return typed
	}
	return value.String()
}

// Validate ensures the draft is complete enough to be finalized into a check
func (d *CheckDraft) Validate() error {
	if d.Recipient == nil {
		return fmt.Errorf("%w: recipient must be resolved", ErrInvalidInput)
	}
	if err := d.Recipient.Validate(); err != nil {
		return err
	}

	if _, err := ParseCheckDate(d.Date); err != nil {
		return err
	}

	if d.Amount1.IsNegative() || d.Amount2.IsNegative() {
		return fmt.Errorf("%w: amounts must not be negative", ErrInvalidInput)
	}
	if !d.Amount1.IsInteger() || !d.Amount2.IsInteger() {
		return fmt.Errorf("%w: amounts must be whole numbers", ErrInvalidInput)
	}
	if !typedAmountMatches(d.Amount1Text, d.Amount1) || !typedAmountMatches(d.Amount2Text, d.Amount2) {
		return fmt.Errorf("%w: typed amount does not match its value", ErrInvalidInput)
	}

	if strings.TrimSpace(d.FullName) == "" {
		return fmt.Errorf("%w: full name cannot be empty", ErrInvalidInput)
	}

	return nil
}

// Check is a finalized payment voucher awaiting or having received a recipient decision
type Check struct {
	ID        uuid.UUID
	IssuerID  int64 // Operator who confirmed the preview
	Draft     CheckDraft
	Status    CheckStatus
	CreatedAt time.Time
}

// NewCheck finalizes a draft into a Pending check with a freshly minted ID.
// The draft is copied so later changes to the caller's value do not leak in.
func NewCheck(issuerID int64, draft CheckDraft, now time.Time) (*Check, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	recipient := *draft.Recipient
	draft.Recipient = &recipient

	return &Check{
		ID:        uuid.New(),
		IssuerID:  issuerID,
		Draft:     draft,
		Status:    CheckStatusPending,
		CreatedAt: now,
	}, nil
}

// RecipientID returns the numeric identity the check was issued to
func (c *Check) RecipientID() int64 {
	return c.Draft.Recipient.UserID
}

// Resolve performs the single Pending -> terminal transition
func (c *Check) Resolve(status CheckStatus) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %q is not a terminal status", ErrInvalidInput, status)
	}
	if c.Status != CheckStatusPending {
		return fmt.Errorf("%w: check %s is already %s", ErrCheckAlreadyResolved, c.ID, c.Status)
	}

	c.Status = status
	return nil
}

// LedgerRow returns the 7 ordered ledger columns:
// checkId, recipient handle, date, amount1, amount2, full name, status
func (c *Check) LedgerRow() []string {
	amount1, amount2 := c.Draft.AmountTexts()
	return []string{
		c.ID.String(),
		c.Draft.Recipient.Handle,
		c.Draft.Date,
		amount1,
		amount2,
		c.Draft.FullName,
		string(c.Status),
	}
}

// ParseCheckDate validates a literal DD.MM.YYYY date
func ParseCheckDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must use the DD.MM.YYYY format", ErrInvalidInput)
	}
	return date, nil
}

// FormatCheckDate renders a date in the ledger format
func FormatCheckDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseAmount accepts only strings made entirely of ASCII decimal digits
func ParseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("%w: amount must be a number", ErrInvalidInput)
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return decimal.Zero, fmt.Errorf("%w: amount must be a number", ErrInvalidInput)
		}
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: amount must be a number", ErrInvalidInput)
	}
	return amount, nil
}

func typedAmountMatches(typed string, value decimal.Decimal) bool {
	if typed == "" {
		return true
	}
	parsed, err := ParseAmount(typed)
	return err == nil && parsed.Equal(value)
}

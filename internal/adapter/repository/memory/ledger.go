package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

const (
	idColumn     = 0
	statusColumn = 6
)

// Ledger keeps checks as spreadsheet rows: ordered slices of text cells.
// Status updates scan the rows for the id in the first column.
type Ledger struct {
	mu   sync.Mutex
	rows [][]string
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{}
}

// AppendPending adds the 7-column row of check
func (l *Ledger) AppendPending(ctx context.Context, check *domain.Check) error {
	if check.Status != domain.CheckStatusPending {
		return fmt.Errorf("%w: appended check must be pending", domain.ErrInvalidInput)
	}

	row := check.LedgerRow()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, row)

	return nil
}

// UpdateStatus rewrites the status cell of the first row whose id cell equals checkID
func (l *Ledger) UpdateStatus(ctx context.Context, checkID uuid.UUID, status domain.CheckStatus) error {
	id := checkID.String()

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, row := range l.rows {
		if len(row) > statusColumn && row[idColumn] == id {
			row[statusColumn] = string(status)
			return nil
		}
	}

	return fmt.Errorf("%w: %s", domain.ErrLedgerRowNotFound, id)
}

// Rows returns a copy of every row in append order
func (l *Ledger) Rows() [][]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([][]string, len(l.rows))
	for i, row := range l.rows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

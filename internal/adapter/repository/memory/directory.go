package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// Directory is a DirectoryRepository held in process memory
type Directory struct {
	mu      sync.RWMutex
	records map[string]domain.Recipient
}

// NewDirectory creates a directory seeded with recipients
func NewDirectory(recipients ...*domain.Recipient) *Directory {
	d := &Directory{records: make(map[string]domain.Recipient)}
	for _, r := range recipients {
		d.records[r.Handle] = *r
	}
	return d
}

// Get retrieves a copy of the record for handle
func (d *Directory) Get(ctx context.Context, handle string) (*domain.Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.records[handle]
	if !ok {
		return nil, domain.ErrRecipientNotFound
	}
	return &r, nil
}

// Save creates or replaces the record for recipient.Handle
func (d *Directory) Save(ctx context.Context, recipient *domain.Recipient) error {
	if err := recipient.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[recipient.Handle] = *recipient

	return nil
}

// List retrieves copies of all records ordered by handle
func (d *Directory) List(ctx context.Context) ([]*domain.Recipient, error) {
	d.mu.RLock()
	out := make([]*domain.Recipient, 0, len(d.records))
	for _, r := range d.records {
		r := r
		out = append(out, &r)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out, nil
}

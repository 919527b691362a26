package pending

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/simaogato/checkflow-backend/internal/domain"
)

// Registry holds issued checks that are still waiting for a recipient decision.
// Every operation runs under a single lock, so no caller can observe a half-written entry.
type Registry struct {
	mu     sync.Mutex
	checks map[uuid.UUID]*domain.Check
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{
		checks: make(map[uuid.UUID]*domain.Check),
	}
}

// Insert registers a pending check; fails if the id is already present
func (r *Registry) Insert(check *domain.Check) error {
	if check == nil {
		return fmt.Errorf("%w: check cannot be nil", domain.ErrInvalidInput)
	}
	if check.Status != domain.CheckStatusPending {
		return fmt.Errorf("%w: only pending checks can be registered", domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.checks[check.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCheck, check.ID)
	}
	r.checks[check.ID] = check

	return nil
}

// Get returns a copy of the check registered under id.
// Returns ErrCheckNotFound for ids never issued or already resolved.
func (r *Registry) Get(id uuid.UUID) (*domain.Check, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	check, ok := r.checks[id]
	if !ok {
		return nil, domain.ErrCheckNotFound
	}

	snapshot := *check
	return &snapshot, nil
}

// Remove evicts id; removing an absent id is a no-op
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.checks, id)
}

// Claim atomically looks up and evicts the check registered under id.
// If match is non-nil and rejects the check, the entry stays and ErrCheckNotFound is returned.
// Of two concurrent claims for the same id exactly one succeeds.
func (r *Registry) Claim(id uuid.UUID, match func(*domain.Check) bool) (*domain.Check, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	check, ok := r.checks[id]
	if !ok {
		return nil, domain.ErrCheckNotFound
	}
	if match != nil && !match(check) {
		return nil, domain.ErrCheckNotFound
	}

	delete(r.checks, id)
	return check, nil
}

// Len returns the number of pending checks
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.checks)
}

// Snapshot returns copies of all pending checks, oldest first
func (r *Registry) Snapshot() []domain.Check {
	r.mu.Lock()
	out := make([]domain.Check, 0, len(r.checks))
	for _, check := range r.checks {
		out = append(out, *check)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}

package domain

import (
	"fmt"
	"strings"
)

// MatchKind records which directory field a recipient token matched
type MatchKind string

const (
	MatchByHandle MatchKind = "handle"
	MatchByUserID MatchKind = "user_id"
	MatchByNote   MatchKind = "note"
)

// Recipient is a directory record: who a check can be sent to
type Recipient struct {
	Handle string // Lowercased chat handle without the leading @
	UserID int64  // Numeric chat identity
	Note   string // Free text operators use to find people
}

// NormalizeHandle lowercases a handle and strips a leading @
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(handle), "@"))
}

// Validate ensures the recipient adheres to directory rules
func (r *Recipient) Validate() error {
	if r.Handle == "" {
		return fmt.Errorf("%w: recipient handle cannot be empty", ErrInvalidInput)
	}
	if r.Handle != NormalizeHandle(r.Handle) {
		return fmt.Errorf("%w: recipient handle must be lowercase without @", ErrInvalidInput)
	}
	if r.UserID <= 0 {
		return fmt.Errorf("%w: recipient user id must be positive", ErrInvalidInput)
	}
	return nil
}

// OperatorSet is the static allow-list of operator identities
type OperatorSet struct {
	ids   []int64
	index map[int64]struct{}
}

// NewOperatorSet builds an allow-list, dropping duplicates but keeping order
func NewOperatorSet(ids ...int64) OperatorSet {
	set := OperatorSet{index: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if _, ok := set.index[id]; ok {
			continue
		}
		set.index[id] = struct{}{}
		set.ids = append(set.ids, id)
	}
	return set
}

// Contains reports whether id is an operator
func (s OperatorSet) Contains(id int64) bool {
	_, ok := s.index[id]
	return ok
}

// IDs returns the operator ids in configuration order
func (s OperatorSet) IDs() []int64 {
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}

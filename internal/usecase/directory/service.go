package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// DirectoryService implements the directory commands and recipient resolution.
// Mutating commands run one at a time, so a Get followed by a Save is never
// interleaved with another command for the same record.
type DirectoryService struct {
	Repo domain.DirectoryRepository

	mu sync.Mutex
}

// NewDirectoryService creates a new DirectoryService instance
func NewDirectoryService(repo domain.DirectoryRepository) *DirectoryService {
	return &DirectoryService{Repo: repo}
}

// Resolve finds the recipient an operator meant by token.
// Precedence:
//  1. exact handle
//  2. numeric user id
//  3. substring of a note (case-insensitive)
//
// Within a tier the first record in handle order wins.
func (s *DirectoryService) Resolve(ctx context.Context, token string) (*domain.Recipient, domain.MatchKind, error) {
	input := strings.ToLower(strings.TrimSpace(token))
	if input == "" {
		return nil, "", domain.ErrRecipientNotFound
	}

	// 1. Handle
	recipient, err := s.Repo.Get(ctx, domain.NormalizeHandle(input))
	if err == nil {
		return recipient, domain.MatchByHandle, nil
	}
	if !errors.Is(err, domain.ErrRecipientNotFound) {
		return nil, "", err
	}

	recipients, err := s.Repo.List(ctx)
	if err != nil {
		return nil, "", err
	}

	// 2. Numeric user id
	for _, r := range recipients {
		if strconv.FormatInt(r.UserID, 10) == input {
			return r, domain.MatchByUserID, nil
		}
	}

	// 3. Note substring
	for _, r := range recipients {
		if r.Note != "" && strings.Contains(strings.ToLower(r.Note), input) {
			return r, domain.MatchByNote, nil
		}
	}

	return nil, "", domain.ErrRecipientNotFound
}

// Register records the caller of the start command.
// An existing handle gets its user id refreshed and keeps its note.
// Returns true when the handle was not known before.
func (s *DirectoryService) Register(ctx context.Context, handle string, userID int64) (*domain.Recipient, bool, error) {
	normalized := domain.NormalizeHandle(handle)
	if normalized == "" {
		return nil, false, fmt.Errorf("%w: chat has no handle", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.Repo.Get(ctx, normalized)
	switch {
	case err == nil:
		existing.UserID = userID
		if err := s.save(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	case errors.Is(err, domain.ErrRecipientNotFound):
		recipient := &domain.Recipient{Handle: normalized, UserID: userID}
		if err := s.save(ctx, recipient); err != nil {
			return nil, false, err
		}
		return recipient, true, nil
	default:
		return nil, false, err
	}
}

// AddUser creates or replaces a directory record; rawID must be all digits
func (s *DirectoryService) AddUser(ctx context.Context, handle, rawID, note string) (*domain.Recipient, error) {
	if rawID == "" || strings.IndexFunc(rawID, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return nil, fmt.Errorf("%w: user id must be a number", domain.ErrInvalidInput)
	}

	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: user id is out of range", domain.ErrInvalidInput)
	}

	recipient := &domain.Recipient{
		Handle: domain.NormalizeHandle(handle),
		UserID: userID,
		Note:   note,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(ctx, recipient); err != nil {
		return nil, err
	}

	return recipient, nil
}

// SetNote replaces the note of a known handle
func (s *DirectoryService) SetNote(ctx context.Context, handle, note string) (*domain.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, err := s.Repo.Get(ctx, domain.NormalizeHandle(handle))
	if err != nil {
		return nil, err
	}

	recipient.Note = note
	if err := s.save(ctx, recipient); err != nil {
		return nil, err
	}

	return recipient, nil
}

// List returns every directory record ordered by handle
func (s *DirectoryService) List(ctx context.Context) ([]*domain.Recipient, error) {
	return s.Repo.List(ctx)
}

func (s *DirectoryService) save(ctx context.Context, recipient *domain.Recipient) error {
	if err := recipient.Validate(); err != nil {
		return err
	}
	return s.Repo.Save(ctx, recipient)
}

package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// record is the value stored under each handle key of the users file
type record struct {
	UserID int64  `json:"user_id"`
	Note   string `json:"note"`
}

// DirectoryRepository implements domain.DirectoryRepository on a JSON object
// keyed by handle: {"alice": {"user_id": 42, "note": ""}}.
// The whole file is read on every call and rewritten on every Save.
type DirectoryRepository struct {
	path string
	mu   sync.Mutex
}

// NewDirectoryRepository creates a directory repository stored at path.
// A missing file is an empty directory.
func NewDirectoryRepository(path string) *DirectoryRepository {
	return &DirectoryRepository{path: path}
}

// Get retrieves a recipient by handle
func (r *DirectoryRepository) Get(ctx context.Context, handle string) (*domain.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return nil, err
	}

	rec, ok := records[handle]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecipientNotFound, handle)
	}

	return &domain.Recipient{Handle: handle, UserID: rec.UserID, Note: rec.Note}, nil
}

// Save upserts the record for recipient.Handle
func (r *DirectoryRepository) Save(ctx context.Context, recipient *domain.Recipient) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := recipient.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load()
	if err != nil {
		return err
	}
	records[recipient.Handle] = record{UserID: recipient.UserID, Note: recipient.Note}

	return r.store(records)
}

// List retrieves all recipients ordered by handle
func (r *DirectoryRepository) List(ctx context.Context) ([]*domain.Recipient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	records, err := r.load()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	recipients := make([]*domain.Recipient, 0, len(records))
	for handle, rec := range records {
		recipients = append(recipients, &domain.Recipient{Handle: handle, UserID: rec.UserID, Note: rec.Note})
	}
	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].Handle < recipients[j].Handle
	})

	return recipients, nil
}

func (r *DirectoryRepository) load() (map[string]record, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]record), nil
		}
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	records := make(map[string]record)
	if len(raw) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to decode directory file %s: %w", r.path, err)
	}

	return records, nil
}

// store writes to a temporary file in the same directory and renames it over the target
func (r *DirectoryRepository) store(records map[string]record) error {
	raw, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to encode directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write directory file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write directory file: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace directory file: %w", err)
	}

	return nil
}

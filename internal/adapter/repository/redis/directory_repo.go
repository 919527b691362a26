package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
	goredis "github.com/redis/go-redis/v9"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

// DefaultKey is the hash that stores the directory when no key is configured
const DefaultKey = "checkflow:recipients"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// record is the value stored under each handle field
type record struct {
	UserID int64  `json:"user_id"`
	Note   string `json:"note"`
}

// directoryRepository implements domain.DirectoryRepository on a single Redis hash.
// Each field is a handle, each value a JSON record.
type directoryRepository struct {
	client goredis.UniversalClient
	key    string
}

// NewDirectoryRepository creates a directory repository backed by the hash at key
func NewDirectoryRepository(client goredis.UniversalClient, key string) domain.DirectoryRepository {
	if key == "" {
		key = DefaultKey
	}
	return &directoryRepository{client: client, key: key}
}

// Get retrieves a recipient by handle
func (r *directoryRepository) Get(ctx context.Context, handle string) (*domain.Recipient, error) {
	raw, err := r.client.HGet(ctx, r.key, handle).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRecipientNotFound, handle)
		}
		return nil, fmt.Errorf("failed to get recipient: %w", err)
	}

	return decode(handle, raw)
}

// Save upserts the record for recipient.Handle
func (r *directoryRepository) Save(ctx context.Context, recipient *domain.Recipient) error {
	if err := recipient.Validate(); err != nil {
		return err
	}

	raw, err := json.Marshal(record{UserID: recipient.UserID, Note: recipient.Note})
	if err != nil {
		return fmt.Errorf("failed to encode recipient: %w", err)
	}

	if err := r.client.HSet(ctx, r.key, recipient.Handle, raw).Err(); err != nil {
		return fmt.Errorf("failed to save recipient: %w", err)
	}

	return nil
}

// List retrieves all recipients ordered by handle
func (r *directoryRepository) List(ctx context.Context) ([]*domain.Recipient, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}

	recipients := make([]*domain.Recipient, 0, len(fields))
	for handle, raw := range fields {
		recipient, err := decode(handle, []byte(raw))
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}

	sort.Slice(recipients, func(i, j int) bool {
		return recipients[i].Handle < recipients[j].Handle
	})

	return recipients, nil
}

func decode(handle string, raw []byte) (*domain.Recipient, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode recipient %s: %w", handle, err)
	}

	return &domain.Recipient{Handle: handle, UserID: rec.UserID, Note: rec.Note}, nil
}

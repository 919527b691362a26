//go:build integration

package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/checkflow-backend/internal/domain"
)

var db *DB

// TestMain connects to the database and applies the schema
func TestMain(m *testing.M) {
	var err error
	db, err = NewDB(getDBConnectionString())
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to database: %v", err))
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		panic(fmt.Sprintf("Failed to apply schema: %v", err))
	}

	code := m.Run()
	db.Close()
	os.Exit(code)
}

func getDBConnectionString() string {
	if connStr := os.Getenv("DB_CONN_STR"); connStr != "" {
		return connStr
	}

	host := os.Getenv("DB_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("DB_PORT")
	if port == "" {
		port = "5432"
	}

	return fmt.Sprintf("host=%s port=%s user=postgres password=postgres dbname=checkflow sslmode=disable", host, port)
}

func TestLedgerRepository_AppendAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(db)

	check, err := domain.NewCheck(1001, domain.CheckDraft{
		RecipientToken: "alice",
		Recipient:      &domain.Recipient{Handle: "alice", UserID: 42},
		Date:           "05.03.2024",
		Amount1:        decimal.NewFromInt(100),
		Amount2:        decimal.NewFromInt(7),
		Amount2Text:    "007",
		FullName:       "Alice Smith",
	}, time.Now())
	require.NoError(t, err)

	require.NoError(t, repo.AppendPending(ctx, check))
	require.NoError(t, repo.UpdateStatus(ctx, check.ID, domain.CheckStatusAccepted))

	rows, err := Rows(ctx, db)
	require.NoError(t, err)

	var found []string
	for _, row := range rows {
		if row[0] == check.ID.String() {
			found = row
		}
	}
	assert.Equal(t, []string{check.ID.String(), "alice", "05.03.2024", "100", "007", "Alice Smith", "Accepted"}, found)
}

func TestLedgerRepository_UpdateUnknownRow(t *testing.T) {
	repo := NewLedgerRepository(db)

	err := repo.UpdateStatus(context.Background(), uuid.New(), domain.CheckStatusRejected)

	assert.ErrorIs(t, err, domain.ErrLedgerRowNotFound)
}

func TestLedgerRepository_DuplicateAppendFails(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository(db)

	check, err := domain.NewCheck(1001, domain.CheckDraft{
		Recipient: &domain.Recipient{Handle: "bob", UserID: 7},
		Date:      "01.01.2024",
		FullName:  "Bob",
	}, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.AppendPending(ctx, check))

	err = repo.AppendPending(ctx, check)

	assert.ErrorIs(t, err, domain.ErrLedgerSync)
}

func TestDirectoryRepository_SaveGetList(t *testing.T) {
	ctx := context.Background()
	repo := NewDirectoryRepository(db)
	handle := "it_" + uuid.NewString()[:8]

	require.NoError(t, repo.Save(ctx, &domain.Recipient{Handle: handle, UserID: 1, Note: "first"}))
	require.NoError(t, repo.Save(ctx, &domain.Recipient{Handle: handle, UserID: 2, Note: "second"}))

	got, err := repo.Get(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.UserID)
	assert.Equal(t, "second", got.Note)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	for i := 1; i < len(list); i++ {
		assert.LessOrEqual(t, list[i-1].Handle, list[i].Handle)
	}

	_, err = repo.Get(ctx, "missing_"+handle)
	assert.ErrorIs(t, err, domain.ErrRecipientNotFound)
}

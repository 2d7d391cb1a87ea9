package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"finance-tracker/internal/models"
	"finance-tracker/internal/storage"
	"finance-tracker/internal/storage/storagetest"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func newMemoryDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewDB(":memory:")
	require.NoError(t, err, "failed to create test database")
	return db
}

// DBTestSuite runs the shared store checks against SQLite.
type DBTestSuite struct {
	storagetest.Suite
}

func TestDBSuite(t *testing.T) {
	s := new(DBTestSuite)
	s.NewStore = func() storage.Store { return newMemoryDB(s.T()) }
	suite.Run(t, s)
}

func TestNewDBReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "finance.db")
	ctx := context.Background()

	db, err := storage.NewDB(path)
	require.NoError(t, err)
	u, err := db.CreateUser(ctx, "Ann", "ann@example.com", "hash")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Migrations must be a no-op the second time around.
	db, err = storage.NewDB(path)
	require.NoError(t, err)
	defer db.Close()

	got, err := db.GetUserByUsername(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestDBKeepsDecimalPrecision(t *testing.T) {
	db := newMemoryDB(t)
	defer db.Close()
	ctx := context.Background()

	u, err := db.CreateUser(ctx, "Ann", "ann@example.com", "hash")
	require.NoError(t, err)

	tx := &models.Transaction{
		UserID:      u.ID,
		Amount:      decimal.RequireFromString("0.10"),
		Type:        models.TypeIncome,
		Description: "Interest",
		Date:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, db.CreateTransaction(ctx, tx))

	got, err := db.GetTransaction(ctx, u.ID, tx.ID)
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("0.1")))
	assert.True(t, tx.Date.Equal(got.Date))
}

package repository_test

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"kash_budget/internal/db"
	"kash_budget/internal/domain"
	"kash_budget/internal/migrations"
	"kash_budget/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, migrations.Apply(ctx, pool, nil))
	return pool
}

func createUser(t *testing.T, repo *repository.UserRepository) *domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := &domain.User{
		Email:        uuid.NewString() + "@it.local",
		PasswordHash: "x",
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	pool := openDB(t)
	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	u := createUser(t, repo)
	require.NotEmpty(t, u.ID)

	byEmail, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Email, byID.Email)

	dup := &domain.User{Email: u.Email, PasswordHash: "y", CreatedAt: time.Now()}
	assert.ErrorIs(t, repo.Create(ctx, dup), domain.ErrAlreadyExists)

	_, err = repo.GetByEmail(ctx, "missing-"+u.Email)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransactionRepository_OwnerScoping(t *testing.T) {
	pool := openDB(t)
	users := repository.NewUserRepository(pool)
	repo := repository.NewTransactionRepository(pool)
	ctx := context.Background()

	alice := createUser(t, users)
	bob := createUser(t, users)

	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	var ids []string
	for i := 0; i < 3; i++ {
		tx := &domain.Transaction{
			UserID:    alice.ID,
			Amount:    decimal.RequireFromString("75.99"),
			Timestamp: base.Add(-time.Duration(i) * time.Minute),
			Source:    domain.SourceManual,
			Type:      domain.TypeExpense,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, tx))
		ids = append(ids, tx.ID)
	}

	page, err := repo.ListByOwner(ctx, alice.ID, 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[0], page[0].ID)
	assert.True(t, decimal.RequireFromString("75.99").Equal(page[0].Amount))
	assert.True(t, base.Equal(page[0].Timestamp))
	assert.Nil(t, page[0].Category)

	total, err := repo.CountByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	_, err = repo.GetByIDAndOwner(ctx, ids[0], bob.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	category := "Groceries"
	_, err = repo.UpdateCategory(ctx, ids[0], bob.ID, &category, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	updated, err := repo.UpdateCategory(ctx, ids[0], alice.ID, &category, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Groceries", *updated.Category)

	assert.ErrorIs(t, repo.DeleteByIDAndOwner(ctx, ids[0], bob.ID), domain.ErrNotFound)
	require.NoError(t, repo.DeleteByIDAndOwner(ctx, ids[0], alice.ID))
	assert.ErrorIs(t, repo.DeleteByIDAndOwner(ctx, ids[0], alice.ID), domain.ErrNotFound)
}

func pageAll(t *testing.T, repo *repository.TransactionRepository, ownerID string, limit int) []string {
	t.Helper()
	var ids []string
	for offset := 0; ; offset += limit {
		page, err := repo.ListByOwner(context.Background(), ownerID, limit, offset)
		require.NoError(t, err)
		for _, tx := range page {
			ids = append(ids, tx.ID)
		}
		if len(page) < limit {
			return ids
		}
	}
}

func TestTransactionRepository_EqualTimestampsPageStably(t *testing.T) {
	pool := openDB(t)
	users := repository.NewUserRepository(pool)
	repo := repository.NewTransactionRepository(pool)
	ctx := context.Background()

	owner := createUser(t, users)
	ts := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	created0 := time.Now().UTC().Truncate(time.Microsecond)

	var created []string
	for i := 0; i < 7; i++ {
		tx := &domain.Transaction{
			UserID:    owner.ID,
			Amount:    decimal.RequireFromString("1.00"),
			Timestamp: ts,
			Source:    domain.SourceManual,
			Type:      domain.TypeExpense,
			CreatedAt: created0.Add(time.Duration(i) * time.Millisecond),
		}
		require.NoError(t, repo.Create(ctx, tx))
		created = append(created, tx.ID)
	}

	// newest created first, same as the in-memory store
	want := make([]string, len(created))
	for i, id := range created {
		want[len(created)-1-i] = id
	}
	assert.Equal(t, want, pageAll(t, repo, owner.ID, 3))
}

func TestTransactionRepository_FullTiesFallBackToID(t *testing.T) {
	pool := openDB(t)
	users := repository.NewUserRepository(pool)
	repo := repository.NewTransactionRepository(pool)
	ctx := context.Background()

	owner := createUser(t, users)
	ts := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	createdAt := time.Now().UTC().Truncate(time.Microsecond)

	var created []string
	for i := 0; i < 7; i++ {
		tx := &domain.Transaction{
			UserID:    owner.ID,
			Amount:    decimal.RequireFromString("1.00"),
			Timestamp: ts,
			Source:    domain.SourceManual,
			Type:      domain.TypeExpense,
			CreatedAt: createdAt,
		}
		require.NoError(t, repo.Create(ctx, tx))
		created = append(created, tx.ID)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(created)))
	assert.Equal(t, created, pageAll(t, repo, owner.ID, 3))
}

func TestAuditRepository_CreateAndList(t *testing.T) {
	pool := openDB(t)
	users := repository.NewUserRepository(pool)
	repo := repository.NewAuditRepository(pool)
	ctx := context.Background()

	u := createUser(t, users)
	require.NoError(t, repo.Create(ctx, &domain.AuditLog{
		UserID:   &u.ID,
		Action:   domain.AuditActionLogin,
		Category: domain.AuditCategoryAuth,
		Details:  map[string]any{"ip": "127.0.0.1"},
	}))

	logs, err := repo.ListByUser(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.AuditActionLogin, logs[0].Action)
}

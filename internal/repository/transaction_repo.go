package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kash_budget/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const transactionColumns = `id::text, user_id::text, amount::text, timestamp, category, location, source, type, created_at, updated_at`

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction and fills the server-assigned fields
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO transactions (user_id, amount, timestamp, category, location, source, type, created_at, updated_at)
		 VALUES ($1::uuid, $2::numeric, $3, $4, $5, $6, $7, $8, $8)
		 RETURNING id::text, created_at, updated_at`,
		tx.UserID, tx.Amount.String(), tx.Timestamp, tx.Category, tx.Location,
		string(tx.Source), string(tx.Type), tx.CreatedAt,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
}

// ListByOwner returns one page of a user's ledger, most recent occurrence first
func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE user_id = $1::uuid
		 ORDER BY timestamp DESC, created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		ownerID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTransactions(rows)
}

func (r *TransactionRepository) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = $1::uuid`,
		ownerID,
	).Scan(&total)
	return total, err
}

// GetByIDAndOwner matches id and owner in one predicate
func (r *TransactionRepository) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE id = $1::uuid AND user_id = $2::uuid`,
		id, ownerID,
	)
	return scanTransaction(row)
}

func (r *TransactionRepository) UpdateCategory(ctx context.Context, id, ownerID string, category *string, updatedAt time.Time) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE transactions SET category = $3, updated_at = $4
		 WHERE id = $1::uuid AND user_id = $2::uuid
		 RETURNING `+transactionColumns,
		id, ownerID, category, updatedAt,
	)
	return scanTransaction(row)
}

func (r *TransactionRepository) UpdateLocation(ctx context.Context, id, ownerID string, location *string, updatedAt time.Time) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE transactions SET location = $3, updated_at = $4
		 WHERE id = $1::uuid AND user_id = $2::uuid
		 RETURNING `+transactionColumns,
		id, ownerID, location, updatedAt,
	)
	return scanTransaction(row)
}

// DeleteByIDAndOwner removes the row in a single statement; zero affected rows is ErrNotFound
func (r *TransactionRepository) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM transactions WHERE id = $1::uuid AND user_id = $2::uuid`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	tx, err := scanInto(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return tx, err
}

func scanTransactions(rows pgx.Rows) ([]*domain.Transaction, error) {
	result := []*domain.Transaction{}
	for rows.Next() {
		tx, err := scanInto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, rows.Err()
}

func scanInto(row pgx.Row) (*domain.Transaction, error) {
	var (
		tx     domain.Transaction
		amount string
		source string
		typ    string
	)
	if err := row.Scan(&tx.ID, &tx.UserID, &amount, &tx.Timestamp, &tx.Category, &tx.Location,
		&source, &typ, &tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, err
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	tx.Amount = d
	tx.Source = domain.Source(source)
	tx.Type = domain.TransactionType(typ)
	return &tx, nil
}

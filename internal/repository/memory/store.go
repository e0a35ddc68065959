// Package memory is an in-process implementation of the ledger, identity and
// audit stores. It backs DEV_MODE and the service and handler tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"kash_budget/internal/domain"

	"github.com/google/uuid"
)

type row struct {
	seq int64
	tx  domain.Transaction
}

type TransactionStore struct {
	mu   sync.RWMutex
	seq  int64
	rows map[string]*row
}

func NewTransactionStore() *TransactionStore {
	return &TransactionStore{rows: make(map[string]*row)}
}

func (s *TransactionStore) Create(ctx context.Context, tx *domain.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	tx.ID = uuid.NewString()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx.UpdatedAt = tx.CreatedAt
	s.rows[tx.ID] = &row{seq: s.seq, tx: *tx}
	return nil
}

func (s *TransactionStore) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := make([]*row, 0)
	for _, r := range s.rows {
		if r.tx.UserID == ownerID {
			owned = append(owned, r)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		a, b := owned[i], owned[j]
		if !a.tx.Timestamp.Equal(b.tx.Timestamp) {
			return a.tx.Timestamp.After(b.tx.Timestamp)
		}
		return a.seq > b.seq
	})

	result := []*domain.Transaction{}
	for i := offset; i < len(owned) && len(result) < limit; i++ {
		result = append(result, clone(&owned[i].tx))
	}
	return result, nil
}

func (s *TransactionStore) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.rows {
		if r.tx.UserID == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *TransactionStore) GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rows[id]
	if !ok || r.tx.UserID != ownerID {
		return nil, domain.ErrNotFound
	}
	return clone(&r.tx), nil
}

func (s *TransactionStore) UpdateCategory(ctx context.Context, id, ownerID string, category *string, updatedAt time.Time) (*domain.Transaction, error) {
	return s.update(ctx, id, ownerID, updatedAt, func(tx *domain.Transaction) {
		tx.Category = category
	})
}

func (s *TransactionStore) UpdateLocation(ctx context.Context, id, ownerID string, location *string, updatedAt time.Time) (*domain.Transaction, error) {
	return s.update(ctx, id, ownerID, updatedAt, func(tx *domain.Transaction) {
		tx.Location = location
	})
}

func (s *TransactionStore) update(ctx context.Context, id, ownerID string, updatedAt time.Time, mutate func(*domain.Transaction)) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok || r.tx.UserID != ownerID {
		return nil, domain.ErrNotFound
	}
	mutate(&r.tx)
	r.tx.UpdatedAt = updatedAt
	return clone(&r.tx), nil
}

func (s *TransactionStore) DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[id]
	if !ok || r.tx.UserID != ownerID {
		return domain.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func clone(tx *domain.Transaction) *domain.Transaction {
	c := *tx
	if tx.Category != nil {
		v := *tx.Category
		c.Category = &v
	}
	if tx.Location != nil {
		v := *tx.Location
		c.Location = &v
	}
	return &c
}

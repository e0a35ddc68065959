package service

import (
	"context"
	"time"

	"kash_budget/internal/domain"
)

// TransactionStore is the ledger's data-access contract. Every read and
// write that names a transaction id is scoped by the owner in the same
// predicate; rows of other owners behave exactly like missing rows and
// yield domain.ErrNotFound.
type TransactionStore interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Transaction, error)
	CountByOwner(ctx context.Context, ownerID string) (int64, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID string) (*domain.Transaction, error)
	UpdateCategory(ctx context.Context, id, ownerID string, category *string, updatedAt time.Time) (*domain.Transaction, error)
	UpdateLocation(ctx context.Context, id, ownerID string, location *string, updatedAt time.Time) (*domain.Transaction, error)
	DeleteByIDAndOwner(ctx context.Context, id, ownerID string) error
}

// UserStore persists identities. Create reports a taken email as
// domain.ErrAlreadyExists; lookups report domain.ErrNotFound.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error)
}

// Notifier receives ledger events after a successful mutation.
// Publish must not block.
type Notifier interface {
	Publish(ownerID string, event domain.LedgerEvent)
}

type noopNotifier struct{}

func (noopNotifier) Publish(string, domain.LedgerEvent) {}

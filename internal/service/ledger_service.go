package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kash_budget/internal/domain"
	"kash_budget/internal/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultStoreTimeout = 5 * time.Second

// CreateTransactionInput carries a new ledger entry. Type may be empty
// (expense); Category and Location may be nil.
type CreateTransactionInput struct {
	Amount    decimal.Decimal
	Timestamp time.Time
	Source    domain.Source
	Type      domain.TransactionType
	Category  *string
	Location  *string
}

// LedgerService mediates all reads and writes of transactions. Every call
// takes the caller's user id explicitly and never touches rows of another
// owner.
type LedgerService struct {
	transactions TransactionStore
	audit        *AuditService
	notifier     Notifier
	timeout      time.Duration
	now          func() time.Time
}

func NewLedgerService(transactions TransactionStore, audit *AuditService, notifier Notifier, timeout time.Duration) *LedgerService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &LedgerService{
		transactions: transactions,
		audit:        audit,
		notifier:     notifier,
		timeout:      timeout,
		now:          time.Now,
	}
}

// Create validates and persists a transaction for ownerID. A timestamp
// later than the moment of the call is rejected; equal is accepted.
func (s *LedgerService) Create(ctx context.Context, ownerID string, in CreateTransactionInput) (tx *domain.Transaction, err error) {
	defer func() { LedgerOperations.WithLabelValues("create", resultLabel(err)).Inc() }()

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := domain.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if in.Timestamp.IsZero() {
		return nil, domain.Invalid("timestamp", "timestamp is required")
	}
	if in.Timestamp.After(now) {
		return nil, domain.Invalid("timestamp", "timestamp cannot be in the future")
	}
	if !in.Source.Valid() {
		return nil, domain.Invalid("source", "source must be one of: qr_scan, manual")
	}
	typ := in.Type
	if typ == "" {
		typ = domain.TypeExpense
	}
	if !typ.Valid() {
		return nil, domain.Invalid("type", "type must be one of: income, expense")
	}
	category, err := domain.NormalizeCategory(in.Category)
	if err != nil {
		return nil, err
	}

	tx = &domain.Transaction{
		UserID:    ownerID,
		Amount:    in.Amount,
		Timestamp: in.Timestamp.UTC(),
		Category:  category,
		Location:  domain.NormalizeLocation(in.Location),
		Source:    in.Source,
		Type:      typ,
		CreatedAt: now,
		UpdatedAt: now,
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.transactions.Create(storeCtx, tx); err != nil {
		return nil, s.storeFailure(ctx, "create", ownerID, "", err)
	}

	logger.WithContext(ctx).Debug("transaction created", "transaction_id", tx.ID, "user_id", ownerID)
	s.audit.LogTransaction(ctx, ownerID, domain.AuditActionTransactionCreate, tx.ID, map[string]any{
		"amount": tx.Amount.String(),
		"source": string(tx.Source),
	})
	s.notifier.Publish(ownerID, domain.LedgerEvent{Type: domain.EventTransactionCreated, ID: tx.ID, Transaction: tx})

	return tx, nil
}

// ListByOwner returns one page of ownerID's ledger ordered by timestamp,
// most recent first. Items and total are read independently and may
// disagree under concurrent writes.
func (s *LedgerService) ListByOwner(ctx context.Context, ownerID string, limit, offset int) (page *domain.TransactionPage, err error) {
	defer func() { LedgerOperations.WithLabelValues("list", resultLabel(err)).Inc() }()

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	window := domain.NormalizePage(limit, offset)

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	items, err := s.transactions.ListByOwner(storeCtx, ownerID, window.Limit, window.Offset)
	if err != nil {
		return nil, s.storeFailure(ctx, "list", ownerID, "", err)
	}
	total, err := s.transactions.CountByOwner(storeCtx, ownerID)
	if err != nil {
		return nil, s.storeFailure(ctx, "count", ownerID, "", err)
	}

	return domain.NewTransactionPage(items, window, total), nil
}

// GetByID fails with domain.ErrNotFound both for unknown ids and for ids
// owned by someone else.
func (s *LedgerService) GetByID(ctx context.Context, id, ownerID string) (tx *domain.Transaction, err error) {
	defer func() { LedgerOperations.WithLabelValues("get", resultLabel(err)).Inc() }()

	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ErrNotFound
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err = s.transactions.GetByIDAndOwner(storeCtx, id, ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, s.storeFailure(ctx, "get", ownerID, id, err)
	}
	return tx, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, id, ownerID, category string) (tx *domain.Transaction, err error) {
	defer func() { LedgerOperations.WithLabelValues("update_category", resultLabel(err)).Inc() }()

	if strings.TrimSpace(category) == "" {
		return nil, domain.Invalid("category", "category must not be empty")
	}
	normalized, err := domain.NormalizeCategory(&category)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, "update_category", id, ownerID, func(storeCtx context.Context, now time.Time) (*domain.Transaction, error) {
		return s.transactions.UpdateCategory(storeCtx, id, ownerID, normalized, now)
	})
}

func (s *LedgerService) UpdateLocation(ctx context.Context, id, ownerID, location string) (tx *domain.Transaction, err error) {
	defer func() { LedgerOperations.WithLabelValues("update_location", resultLabel(err)).Inc() }()

	if strings.TrimSpace(location) == "" {
		return nil, domain.Invalid("location", "location must not be empty")
	}
	normalized := domain.NormalizeLocation(&location)

	return s.update(ctx, "update_location", id, ownerID, func(storeCtx context.Context, now time.Time) (*domain.Transaction, error) {
		return s.transactions.UpdateLocation(storeCtx, id, ownerID, normalized, now)
	})
}

// update runs a single owner-scoped UPDATE ... RETURNING through apply.
func (s *LedgerService) update(ctx context.Context, op, id, ownerID string, apply func(context.Context, time.Time) (*domain.Transaction, error)) (*domain.Transaction, error) {
	if err := checkOwner(ownerID); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, domain.ErrNotFound
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := apply(storeCtx, s.now().UTC())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, s.storeFailure(ctx, op, ownerID, id, err)
	}

	logger.WithContext(ctx).Debug("transaction updated", "op", op, "transaction_id", id, "user_id", ownerID)
	s.audit.LogTransaction(ctx, ownerID, domain.AuditActionTransactionUpdate, id, map[string]any{"op": op})
	s.notifier.Publish(ownerID, domain.LedgerEvent{Type: domain.EventTransactionUpdated, ID: id, Transaction: tx})

	return tx, nil
}

// Delete removes the row with one scoped statement. Deleting twice fails
// the second time with domain.ErrNotFound.
func (s *LedgerService) Delete(ctx context.Context, id, ownerID string) (err error) {
	defer func() { LedgerOperations.WithLabelValues("delete", resultLabel(err)).Inc() }()

	if err := checkOwner(ownerID); err != nil {
		return err
	}
	if !validID(id) {
		return domain.ErrNotFound
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.transactions.DeleteByIDAndOwner(storeCtx, id, ownerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return s.storeFailure(ctx, "delete", ownerID, id, err)
	}

	logger.WithContext(ctx).Debug("transaction deleted", "transaction_id", id, "user_id", ownerID)
	s.audit.LogTransaction(ctx, ownerID, domain.AuditActionTransactionDelete, id, nil)
	s.notifier.Publish(ownerID, domain.LedgerEvent{Type: domain.EventTransactionDeleted, ID: id})

	return nil
}

func (s *LedgerService) storeFailure(ctx context.Context, op, ownerID, id string, cause error) error {
	logger.WithContext(ctx).Error("ledger store failure",
		"op", op,
		"user_id", ownerID,
		"transaction_id", id,
		"error", cause,
	)
	return fmt.Errorf("%w: %s", domain.ErrStore, op)
}

func checkOwner(ownerID string) error {
	if !validID(ownerID) {
		return domain.ErrUnauthorized
	}
	return nil
}

// validID accepts only the hyphenated 36-character uuid form.
func validID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

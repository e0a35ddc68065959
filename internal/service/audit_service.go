package service

import (
	"context"
	"time"

	"kash_budget/internal/domain"
	"kash_budget/internal/logger"
)

type requestMetaKey struct{}

// RequestMeta is the client information recorded alongside audit entries.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// WithRequestMeta attaches client information to ctx for audit logging.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMeta(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// AuditService handles audit logging
type AuditService struct {
	repo    AuditStore
	timeout time.Duration
}

// NewAuditService creates a new audit service. Each write is bounded by
// timeout; zero means the default store timeout.
func NewAuditService(repo AuditStore, timeout time.Duration) *AuditService {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &AuditService{repo: repo, timeout: timeout}
}

// Log creates a new audit log entry. Failures are logged and swallowed;
// a nil service records nothing.
func (s *AuditService) Log(ctx context.Context, userID string, action, category string, details map[string]any) {
	if s == nil || s.repo == nil {
		return
	}

	meta := requestMeta(ctx)
	entry := &domain.AuditLog{
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        meta.IP,
		UserAgent: meta.UserAgent,
	}
	if userID != "" {
		entry.UserID = &userID
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.repo.Create(storeCtx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogLogin logs a user login
func (s *AuditService) LogLogin(ctx context.Context, userID string) {
	s.Log(ctx, userID, domain.AuditActionLogin, domain.AuditCategoryAuth, nil)
}

// LogLoginFailed logs a rejected login; userID is empty for unknown emails
func (s *AuditService) LogLoginFailed(ctx context.Context, userID, email string) {
	s.Log(ctx, userID, domain.AuditActionLoginFailed, domain.AuditCategoryAuth, map[string]any{"email": email})
}

// LogRegister logs a new account
func (s *AuditService) LogRegister(ctx context.Context, userID string) {
	s.Log(ctx, userID, domain.AuditActionRegister, domain.AuditCategoryAuth, nil)
}

// LogTransaction logs a ledger mutation
func (s *AuditService) LogTransaction(ctx context.Context, userID, action, transactionID string, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	details["transaction_id"] = transactionID

	s.Log(ctx, userID, action, domain.AuditCategoryLedger, details)
}

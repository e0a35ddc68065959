package memory

import (
	"context"
	"sync"
	"time"

	"kash_budget/internal/domain"
)

type AuditStore struct {
	mu   sync.RWMutex
	seq  int64
	logs []*domain.AuditLog
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Create(ctx context.Context, log *domain.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	log.ID = s.seq
	log.CreatedAt = time.Now().UTC()
	c := *log
	s.logs = append(s.logs, &c)
	return nil
}

func (s *AuditStore) ListByUser(ctx context.Context, userID string, limit int) ([]*domain.AuditLog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.AuditLog
	for i := len(s.logs) - 1; i >= 0 && len(out) < limit; i-- {
		l := s.logs[i]
		if l.UserID != nil && *l.UserID == userID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

package handlers

import (
	"kash_budget/internal/service"
)

type Handler struct {
	AuthService   *service.AuthService
	LedgerService *service.LedgerService
}

func NewHandler(auth *service.AuthService, ledger *service.LedgerService) *Handler {
	return &Handler{
		AuthService:   auth,
		LedgerService: ledger,
	}
}

// getUserID извлекает user_id, установленный middleware.JWT
func getUserID(c interface{ Get(string) (any, bool) }) (string, bool) {
	uidVal, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, ok := uidVal.(string)
	return id, ok && id != ""
}

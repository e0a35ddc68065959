package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"kash_budget/internal/domain"
	"kash_budget/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateTransactionRequest struct {
	Amount    *decimal.Decimal `json:"amount" binding:"required"`
	Timestamp string           `json:"timestamp" binding:"required"`
	Source    string           `json:"source" binding:"required,oneof=qr_scan manual"`
	Type      string           `json:"type" binding:"omitempty,oneof=income expense"`
	Category  *string          `json:"category" binding:"omitempty,max=50"`
	Location  *string          `json:"location"`
}

type UpdateCategoryRequest struct {
	Category string `json:"category" binding:"required,max=50"`
}

type UpdateLocationRequest struct {
	Location string `json:"location" binding:"required"`
}

type Pagination struct {
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"hasMore"`
}

type TransactionListResponse struct {
	Data       []*domain.Transaction `json:"data"`
	Pagination Pagination            `json:"pagination"`
}

// CreateTransaction handles POST /transactions
func (h *Handler) CreateTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	ts, err := domain.ParseTimestamp(req.Timestamp)
	if err != nil {
		respondError(c, err, "failed to create transaction")
		return
	}
	source, err := domain.ParseSource(req.Source)
	if err != nil {
		respondError(c, err, "failed to create transaction")
		return
	}
	typ, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		respondError(c, err, "failed to create transaction")
		return
	}

	tx, err := h.LedgerService.Create(c.Request.Context(), userID, service.CreateTransactionInput{
		Amount:    *req.Amount,
		Timestamp: ts,
		Source:    source,
		Type:      typ,
		Category:  req.Category,
		Location:  req.Location,
	})
	if err != nil {
		respondError(c, err, "failed to create transaction")
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// ListTransactions handles GET /transactions?limit&offset. Values without a
// leading integer fall back to the defaults.
func (h *Handler) ListTransactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	limit := queryInt(c, "limit")
	offset := queryInt(c, "offset")

	page, err := h.LedgerService.ListByOwner(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, err, "failed to fetch transactions")
		return
	}

	c.JSON(http.StatusOK, TransactionListResponse{
		Data: page.Items,
		Pagination: Pagination{
			Limit:   page.Page.Limit,
			Offset:  page.Page.Offset,
			Total:   page.Total,
			HasMore: page.HasMore,
		},
	})
}

// GetTransaction handles GET /transactions/:id
func (h *Handler) GetTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	tx, err := h.LedgerService.GetByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err, "failed to fetch transaction")
		return
	}

	c.JSON(http.StatusOK, tx)
}

// UpdateCategory handles PATCH /transactions/:id/category
func (h *Handler) UpdateCategory(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	tx, err := h.LedgerService.UpdateCategory(c.Request.Context(), c.Param("id"), userID, req.Category)
	if err != nil {
		respondError(c, err, "failed to update transaction")
		return
	}

	c.JSON(http.StatusOK, tx)
}

// UpdateLocation handles PATCH /transactions/:id/location
func (h *Handler) UpdateLocation(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	tx, err := h.LedgerService.UpdateLocation(c.Request.Context(), c.Param("id"), userID, req.Location)
	if err != nil {
		respondError(c, err, "failed to update transaction")
		return
	}

	c.JSON(http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /transactions/:id
func (h *Handler) DeleteTransaction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.LedgerService.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		respondError(c, err, "failed to delete transaction")
		return
	}

	c.Status(http.StatusNoContent)
}

// queryInt reads the leading integer of a query value, so "10abc" is 10.
// No leading digits yields 0.
func queryInt(c *gin.Context, key string) int {
	v := strings.TrimSpace(c.Query(key))
	end := 0
	if end < len(v) && (v[end] == '-' || v[end] == '+') {
		end++
	}
	digits := end
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.Atoi(v[:end])
	if err != nil {
		return 0
	}
	return n
}

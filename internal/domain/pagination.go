package domain

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Page is a normalized pagination window.
type Page struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NormalizePage falls back to the defaults instead of rejecting out of
// range values.
func NormalizePage(limit, offset int) Page {
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Page{Limit: limit, Offset: offset}
}

type TransactionPage struct {
	Items   []*Transaction
	Page    Page
	Total   int64
	HasMore bool
}

// NewTransactionPage computes HasMore from the window and total.
func NewTransactionPage(items []*Transaction, page Page, total int64) *TransactionPage {
	if items == nil {
		items = []*Transaction{}
	}
	return &TransactionPage{
		Items:   items,
		Page:    page,
		Total:   total,
		HasMore: int64(page.Offset+len(items)) < total,
	}
}

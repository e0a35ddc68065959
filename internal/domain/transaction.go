package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers, e.g. 75.99
	decimal.MarshalJSONWithoutQuotes = true
}

// Source records how a transaction entered the ledger.
type Source string

const (
	SourceQRScan Source = "qr_scan"
	SourceManual Source = "manual"
)

func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceQRScan, SourceManual:
		return Source(s), nil
	}
	return "", Invalid("source", "source must be one of: qr_scan, manual")
}

type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// ParseTransactionType accepts an empty value as expense.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case "":
		return TypeExpense, nil
	case TypeIncome, TypeExpense:
		return TransactionType(s), nil
	}
	return "", Invalid("type", "type must be one of: income, expense")
}

const (
	MaxCategoryLength = 50
	AmountScale       = 2
)

var (
	MinAmount = decimal.New(1, -AmountScale)
	MaxAmount = decimal.RequireFromString("999999.99")
)

type Transaction struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"userId"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Timestamp time.Time       `db:"timestamp" json:"timestamp"`
	Category  *string         `db:"category" json:"category"`
	Location  *string         `db:"location" json:"location"`
	Source    Source          `db:"source" json:"source"`
	Type      TransactionType `db:"type" json:"type"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time       `db:"updated_at" json:"updatedAt"`
}

// ValidateAmount checks that amount is positive, within the numeric(10,2)
// column range and carries at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Invalid("amount", "amount must be a positive number")
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return Invalid("amount", "amount must have at most 2 decimal places")
	}
	if amount.LessThan(MinAmount) || amount.GreaterThan(MaxAmount) {
		return Invalid("amount", "amount must be between 0.01 and 999999.99")
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 timestamps or plain dates (UTC midnight).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, Invalid("timestamp", "timestamp must be a valid ISO 8601 date string")
}

// NormalizeCategory maps an empty value to nil. Anything else is kept
// exactly as sent, surrounding whitespace included.
func NormalizeCategory(c *string) (*string, error) {
	if c == nil || *c == "" {
		return nil, nil
	}
	if utf8.RuneCountInString(*c) > MaxCategoryLength {
		return nil, Invalid("category", "category must not exceed 50 characters")
	}
	v := *c
	return &v, nil
}

// NormalizeLocation maps an empty value to nil; the content is opaque.
func NormalizeLocation(l *string) *string {
	if l == nil || *l == "" {
		return nil
	}
	v := *l
	return &v
}

// LedgerEvent is pushed to a user's live feed after a ledger mutation.
type LedgerEvent struct {
	Type        string       `json:"type"`
	ID          string       `json:"id"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

const (
	EventTransactionCreated = "transaction_created"
	EventTransactionUpdated = "transaction_updated"
	EventTransactionDeleted = "transaction_deleted"
)

func (s Source) Valid() bool {
	return s == SourceQRScan || s == SourceManual
}

func (t TransactionType) Valid() bool {
	return t == TypeIncome || t == TypeExpense
}

package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction says whether a movement increases or decreases an account balance.
type Direction string

const (
	// Credit increases the account balance.
	Credit Direction = "credit"
	// Debit decreases the account balance.
	Debit Direction = "debit"
)

// ParseDirection validates a raw direction string. Anything other than
// "credit" or "debit" is a caller bug and fails fast.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Credit, Debit:
		return Direction(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// RefType is the business reason for a money movement.
type RefType string

const (
	RefPayment  RefType = "payment"
	RefExpense  RefType = "expense"
	RefManual   RefType = "manual"
	RefTransfer RefType = "transfer"
	RefReversal RefType = "reversal"
)

// ParseRefType validates a raw reference type string.
func ParseRefType(s string) (RefType, error) {
	switch RefType(s) {
	case RefPayment, RefExpense, RefManual, RefTransfer, RefReversal:
		return RefType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRefType, s)
}

// LedgerEntry is the immutable record of one money movement against one
// account. Entries are append-only: corrections are new reversal-typed
// entries, never edits.
//
// Amount is always stored positive; Delta carries the sign (+Amount for a
// credit, -Amount for a debit). BalanceAfter is the account balance
// captured at the moment the entry was applied and is never recomputed.
type LedgerEntry struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	AccountID    string          `json:"account_id"`
	Direction    Direction       `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RefType      RefType         `json:"ref_type"`
	RefID        string          `json:"ref_id,omitempty"`
	Remark       string          `json:"remark,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind classifies a money container.
type AccountKind string

const (
	// AccountBank is a bank account.
	AccountBank AccountKind = "bank"
	// AccountWallet is a cash wallet.
	AccountWallet AccountKind = "wallet"
)

// ParseAccountKind validates a raw account kind string.
func ParseAccountKind(s string) (AccountKind, error) {
	switch AccountKind(s) {
	case AccountBank, AccountWallet:
		return AccountKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAccountKind, s)
}

// Account is a named money container owned by a user.
//
// Balance is denormalized for display; the audit source of truth is the
// chain of BalanceAfter snapshots on the account's ledger entries. It is
// mutated exclusively through the ledger poster.
type Account struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	Kind           AccountKind       `json:"kind"`
	Name           string            `json:"name"`
	Details        map[string]string `json:"details,omitempty"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	Balance        decimal.Decimal   `json:"balance"`
	CreatedAt      time.Time         `json:"created_at"`
}

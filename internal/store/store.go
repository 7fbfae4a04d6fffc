// Package store defines the persistence contracts for accounts and the
// append-only ledger. Implementations must apply a balance increment and
// the matching entry append as one atomic operation; that operation is
// the serialization point for concurrent posts against the same account.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/domain"
)

// EntryFilter restricts a ledger entry query. Nil time bounds are open.
type EntryFilter struct {
	UserID    string
	AccountID string
	From      *time.Time
	To        *time.Time
}

// EntryWithAccount is a ledger entry joined with its account's display
// name and kind, as produced by QueryEntries.
type EntryWithAccount struct {
	domain.LedgerEntry
	AccountName string
	AccountKind domain.AccountKind
}

// AccountStore provides account persistence.
type AccountStore interface {
	// CreateAccount inserts a new account.
	CreateAccount(ctx context.Context, account *domain.Account) error

	// GetAccount retrieves an account by ID. Returns
	// domain.ErrAccountNotFound when missing.
	GetAccount(ctx context.Context, id string) (*domain.Account, error)

	// ListAccounts retrieves all accounts owned by a user.
	ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error)

	// IncrementBalance atomically adds delta to the account balance and
	// returns the new balance. Two concurrent increments against the same
	// account must never both observe the pre-increment balance. Returns
	// domain.ErrAccountNotFound when the account does not exist.
	IncrementBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error)
}

// EntryStore provides ledger entry persistence. Entries are append-only;
// there is deliberately no update or delete.
type EntryStore interface {
	// InsertEntry appends one immutable ledger entry.
	InsertEntry(ctx context.Context, entry *domain.LedgerEntry) error

	// GetEntry retrieves an entry by ID. Returns domain.ErrEntryNotFound
	// when missing.
	GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)

	// QueryEntries returns entries matching the filter, joined with their
	// account name and kind, sorted by creation time descending. The
	// ordering is stable and is the contract report consumers rely on.
	QueryEntries(ctx context.Context, filter EntryFilter) ([]EntryWithAccount, error)
}

// Store is the full persistence surface consumed by the ledger poster
// and the report generator.
type Store interface {
	AccountStore
	EntryStore

	// PostEntry atomically adds entry.Delta to the account balance and
	// appends the entry in the same critical section, filling
	// BalanceAfter with the new balance and CreatedAt with the apply
	// time. Creation order therefore matches apply order, so the
	// per-account snapshots form an unbroken chain. Returns
	// domain.ErrAccountNotFound when the account does not exist.
	PostEntry(ctx context.Context, entry *domain.LedgerEntry) error
}

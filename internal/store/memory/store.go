// Package memory is an in-memory implementation of the store contracts.
// It is safe for concurrent use and suitable for tests and single-process
// development runs; data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/store"
)

type storedEntry struct {
	domain.LedgerEntry
	seq int64
}

// Store holds accounts and ledger entries in memory. The mutex makes the
// balance increment and the entry append one critical section, mirroring
// what the relational store gets from a row-locking transaction.
type Store struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	entries  []storedEntry
	nextSeq  int64
	now      func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*domain.Account),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateAccount implements store.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

// GetAccount implements store.AccountStore.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *account
	return &cp, nil
}

// ListAccounts implements store.AccountStore.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*domain.Account
	for _, account := range s.accounts {
		if userID != "" && account.UserID != userID {
			continue
		}
		cp := *account
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// IncrementBalance implements store.AccountStore. The read-modify-write
// happens under the store mutex, so concurrent increments against one
// account serialize here and each caller observes a distinct new balance.
func (s *Store) IncrementBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(delta)
	return account.Balance, nil
}

// InsertEntry implements store.EntryStore.
func (s *Store) InsertEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	s.entries = append(s.entries, storedEntry{LedgerEntry: *entry, seq: s.nextSeq})
	return nil
}

// PostEntry implements store.Store. The increment, the snapshot, and the
// append all happen under one mutex hold; CreatedAt is assigned inside
// the critical section so creation order cannot diverge from apply order.
func (s *Store) PostEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[entry.AccountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	account.Balance = account.Balance.Add(entry.Delta)
	entry.BalanceAfter = account.Balance
	entry.CreatedAt = s.now()

	s.nextSeq++
	s.entries = append(s.entries, storedEntry{LedgerEntry: *entry, seq: s.nextSeq})
	return nil
}

// GetEntry implements store.EntryStore.
func (s *Store) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == id {
			cp := s.entries[i].LedgerEntry
			return &cp, nil
		}
	}
	return nil, domain.ErrEntryNotFound
}

// QueryEntries implements store.EntryStore. Results are sorted by
// creation time descending, insertion order breaking ties.
func (s *Store) QueryEntries(ctx context.Context, filter store.EntryFilter) ([]store.EntryWithAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]storedEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if filter.UserID != "" && e.UserID != filter.UserID {
			continue
		}
		if filter.AccountID != "" && e.AccountID != filter.AccountID {
			continue
		}
		if filter.From != nil && e.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.CreatedAt.After(*filter.To) {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	result := make([]store.EntryWithAccount, 0, len(matched))
	for _, e := range matched {
		row := store.EntryWithAccount{LedgerEntry: e.LedgerEntry}
		if account, ok := s.accounts[e.AccountID]; ok {
			row.AccountName = account.Name
			row.AccountKind = account.Kind
		}
		result = append(result, row)
	}
	return result, nil
}

var _ store.Store = (*Store)(nil)

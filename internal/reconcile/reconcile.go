// Package reconcile verifies the ledger consistency invariant: an
// account's balance must equal the balance-after snapshot of its most
// recent entry, and the opening balance plus the sum of all entry deltas.
// It is the detection path for balance mutations that bypassed the
// poster.
package reconcile

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/store"
)

// Result is the outcome of one account check.
type Result struct {
	AccountID       string          `json:"account_id"`
	Balance         decimal.Decimal `json:"balance"`
	LatestSnapshot  decimal.Decimal `json:"latest_snapshot"`
	ComputedBalance decimal.Decimal `json:"computed_balance"`
	EntryCount      int             `json:"entry_count"`
	Consistent      bool            `json:"consistent"`
	Drift           decimal.Decimal `json:"drift"`
}

// Checker runs consistency checks against the store.
type Checker struct {
	store store.Store
	log   zerolog.Logger
}

// NewChecker creates a consistency checker.
func NewChecker(st store.Store, log zerolog.Logger) *Checker {
	return &Checker{store: st, log: log}
}

// Check compares the account's denormalized balance against the latest
// entry snapshot and against opening balance plus the sum of deltas.
func (c *Checker) Check(ctx context.Context, accountID string) (*Result, error) {
	account, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	entries, err := c.store.QueryEntries(ctx, store.EntryFilter{AccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	latest := account.OpeningBalance
	if len(entries) > 0 {
		// Entries arrive sorted most recent first.
		latest = entries[0].BalanceAfter
	}

	computed := account.OpeningBalance
	for _, e := range entries {
		computed = computed.Add(e.Delta)
	}

	result := &Result{
		AccountID:       accountID,
		Balance:         account.Balance,
		LatestSnapshot:  latest,
		ComputedBalance: computed,
		EntryCount:      len(entries),
		Consistent:      account.Balance.Equal(latest) && account.Balance.Equal(computed),
		Drift:           account.Balance.Sub(computed),
	}

	if !result.Consistent {
		c.log.Error().
			Str("account_id", accountID).
			Str("balance", account.Balance.String()).
			Str("latest_snapshot", latest.String()).
			Str("computed_balance", computed.String()).
			Msg("Account balance inconsistent with ledger")
	}
	return result, nil
}

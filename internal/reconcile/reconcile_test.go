package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/events"
	"github.com/bizbooks/bizbooks/internal/ledger"
	"github.com/bizbooks/bizbooks/internal/store/memory"
)

func TestCheck_ConsistentAccount(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	opening := decimal.NewFromInt(100)
	err := st.CreateAccount(ctx, &domain.Account{
		ID: "acct-1", UserID: "user-1", Kind: domain.AccountBank, Name: "Main",
		OpeningBalance: opening, Balance: opening, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	poster := ledger.NewPoster(st, events.Nop{}, zerolog.Nop())
	for _, amount := range []int64{10, 20, 5} {
		if _, err := poster.PostEntry(ctx, ledger.PostRequest{
			UserID: "user-1", AccountID: "acct-1",
			Direction: domain.Credit, Amount: decimal.NewFromInt(amount), RefType: domain.RefManual,
		}); err != nil {
			t.Fatalf("PostEntry: %v", err)
		}
	}

	result, err := NewChecker(st, zerolog.Nop()).Check(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !result.Consistent {
		t.Errorf("consistent = false, want true: %+v", result)
	}
	if result.EntryCount != 3 {
		t.Errorf("entry count = %d, want 3", result.EntryCount)
	}
	if !result.Drift.IsZero() {
		t.Errorf("drift = %s, want 0", result.Drift)
	}
}

func TestCheck_DetectsOrphanedIncrement(t *testing.T) {
	st := memory.New()
	ctx := context.Background()
	err := st.CreateAccount(ctx, &domain.Account{
		ID: "acct-1", UserID: "user-1", Kind: domain.AccountBank, Name: "Main",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}

	// A balance increment with no ledger row: a mutation that bypassed
	// the poster.
	if _, err := st.IncrementBalance(ctx, "acct-1", decimal.NewFromInt(50)); err != nil {
		t.Fatalf("IncrementBalance: %v", err)
	}

	result, err := NewChecker(st, zerolog.Nop()).Check(ctx, "acct-1")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Consistent {
		t.Error("consistent = true for an account with an orphaned increment")
	}
	if !result.Drift.Equal(decimal.NewFromInt(50)) {
		t.Errorf("drift = %s, want 50", result.Drift)
	}
}

func TestCheck_MissingAccount(t *testing.T) {
	st := memory.New()
	_, err := NewChecker(st, zerolog.Nop()).Check(context.Background(), "nope")
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("error = %v, want ErrAccountNotFound", err)
	}
}

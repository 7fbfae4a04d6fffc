package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/events"
	"github.com/bizbooks/bizbooks/internal/store"
	"github.com/bizbooks/bizbooks/internal/store/memory"
)

func newTestPoster(t *testing.T) (*Poster, *memory.Store) {
	t.Helper()
	st := memory.New()
	return NewPoster(st, events.Nop{}, zerolog.Nop()), st
}

func createAccount(t *testing.T, st *memory.Store, opening decimal.Decimal) string {
	t.Helper()
	account := &domain.Account{
		ID:             uuid.New().String(),
		UserID:         "user-1",
		Kind:           domain.AccountBank,
		Name:           "Main Checking",
		OpeningBalance: opening,
		Balance:        opening,
		CreatedAt:      time.Now().UTC(),
	}
	if err := st.CreateAccount(context.Background(), account); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return account.ID
}

func TestPostEntry_CreditAndDebit(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	accountID := createAccount(t, st, decimal.Zero)

	credit, err := poster.PostEntry(ctx, PostRequest{
		UserID:    "user-1",
		AccountID: accountID,
		Direction: domain.Credit,
		Amount:    decimal.RequireFromString("100.50"),
		RefType:   domain.RefPayment,
	})
	if err != nil {
		t.Fatalf("PostEntry credit: %v", err)
	}
	if !credit.Delta.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("credit delta = %s, want 100.50", credit.Delta)
	}
	if !credit.BalanceAfter.Equal(decimal.RequireFromString("100.50")) {
		t.Errorf("credit balance after = %s, want 100.50", credit.BalanceAfter)
	}

	debit, err := poster.PostEntry(ctx, PostRequest{
		UserID:    "user-1",
		AccountID: accountID,
		Direction: domain.Debit,
		Amount:    decimal.RequireFromString("40.25"),
		RefType:   domain.RefExpense,
	})
	if err != nil {
		t.Fatalf("PostEntry debit: %v", err)
	}
	if !debit.Delta.Equal(decimal.RequireFromString("-40.25")) {
		t.Errorf("debit delta = %s, want -40.25", debit.Delta)
	}
	if !debit.BalanceAfter.Equal(decimal.RequireFromString("60.25")) {
		t.Errorf("debit balance after = %s, want 60.25", debit.BalanceAfter)
	}

	account, err := st.GetAccount(ctx, accountID)
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if !account.Balance.Equal(debit.BalanceAfter) {
		t.Errorf("account balance = %s, want %s (latest balance-after)", account.Balance, debit.BalanceAfter)
	}
}

func TestPostEntry_SignInvariant(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	accountID := createAccount(t, st, decimal.NewFromInt(500))

	// Callers may pass either sign; only the magnitude counts.
	entry, err := poster.PostEntry(ctx, PostRequest{
		UserID:    "user-1",
		AccountID: accountID,
		Direction: domain.Debit,
		Amount:    decimal.NewFromInt(-30),
		RefType:   domain.RefManual,
	})
	if err != nil {
		t.Fatalf("PostEntry: %v", err)
	}
	if entry.Amount.IsNegative() {
		t.Errorf("amount = %s, want non-negative", entry.Amount)
	}
	if !entry.Amount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("amount = %s, want 30", entry.Amount)
	}
	if !entry.Delta.Equal(decimal.NewFromInt(-30)) {
		t.Errorf("delta = %s, want -30", entry.Delta)
	}
}

func TestPostEntry_InvalidInput(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	accountID := createAccount(t, st, decimal.Zero)

	tests := []struct {
		name    string
		req     PostRequest
		wantErr error
	}{
		{
			name: "zero amount",
			req: PostRequest{
				UserID: "user-1", AccountID: accountID,
				Direction: domain.Credit, Amount: decimal.Zero, RefType: domain.RefManual,
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "unknown direction",
			req: PostRequest{
				UserID: "user-1", AccountID: accountID,
				Direction: "sideways", Amount: decimal.NewFromInt(1), RefType: domain.RefManual,
			},
			wantErr: domain.ErrInvalidDirection,
		},
		{
			name: "unknown ref type",
			req: PostRequest{
				UserID: "user-1", AccountID: accountID,
				Direction: domain.Credit, Amount: decimal.NewFromInt(1), RefType: "loan",
			},
			wantErr: domain.ErrInvalidRefType,
		},
		{
			name: "missing account",
			req: PostRequest{
				UserID: "user-1", AccountID: "no-such-account",
				Direction: domain.Credit, Amount: decimal.NewFromInt(1), RefType: domain.RefManual,
			},
			wantErr: domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := poster.PostEntry(ctx, tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("PostEntry error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// No entry may exist and the balance must be untouched after the
	// rejected posts.
	entries, err := st.QueryEntries(ctx, store.EntryFilter{AccountID: accountID})
	if err != nil {
		t.Fatalf("QueryEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries after rejected posts, want 0", len(entries))
	}
	account, _ := st.GetAccount(ctx, accountID)
	if !account.Balance.IsZero() {
		t.Errorf("balance = %s after rejected posts, want 0", account.Balance)
	}
}

// failingPostStore rejects posts to verify a failed post leaves no
// trace.
type failingPostStore struct {
	*memory.Store
}

func (f *failingPostStore) PostEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	return errors.New("store unavailable")
}

func TestPostEntry_FailedPostLeavesNoTrace(t *testing.T) {
	st := memory.New()
	poster := NewPoster(&failingPostStore{st}, events.Nop{}, zerolog.Nop())
	ctx := context.Background()
	accountID := createAccount(t, st, decimal.NewFromInt(10))

	_, err := poster.PostEntry(ctx, PostRequest{
		UserID: "user-1", AccountID: accountID,
		Direction: domain.Credit, Amount: decimal.NewFromInt(5), RefType: domain.RefManual,
	})
	if err == nil {
		t.Fatal("expected error from failed post")
	}

	account, _ := st.GetAccount(ctx, accountID)
	if !account.Balance.Equal(decimal.NewFromInt(10)) {
		t.Errorf("balance = %s after failed post, want 10", account.Balance)
	}
	entries, _ := st.QueryEntries(ctx, store.EntryFilter{AccountID: accountID})
	if len(entries) != 0 {
		t.Errorf("got %d entries after failed post, want 0", len(entries))
	}
}

func TestPostEntry_ConcurrentCredits(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	accountID := createAccount(t, st, decimal.Zero)

	const posts = 100
	var wg sync.WaitGroup
	for i := 0; i < posts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := poster.PostEntry(ctx, PostRequest{
				UserID: "user-1", AccountID: accountID,
				Direction: domain.Credit, Amount: decimal.NewFromInt(1), RefType: domain.RefManual,
			})
			if err != nil {
				t.Errorf("PostEntry: %v", err)
			}
		}()
	}
	wg.Wait()

	account, _ := st.GetAccount(ctx, accountID)
	if !account.Balance.Equal(decimal.NewFromInt(posts)) {
		t.Errorf("final balance = %s, want %d", account.Balance, posts)
	}

	entries, err := st.QueryEntries(ctx, store.EntryFilter{AccountID: accountID})
	if err != nil {
		t.Fatalf("QueryEntries: %v", err)
	}
	if len(entries) != posts {
		t.Fatalf("got %d entries, want %d", len(entries), posts)
	}

	// Walking the entries in creation order, every snapshot must extend
	// the previous one by its delta: a post that observed balance N may
	// never be created after the post that observed N+1. Entries arrive
	// sorted most recent first, so walk the slice backwards.
	prev := decimal.Zero
	for i := len(entries) - 1; i >= 0; i-- {
		want := prev.Add(entries[i].Delta)
		if !entries[i].BalanceAfter.Equal(want) {
			t.Fatalf("chain broken at entry %s: balance after = %s, want %s",
				entries[i].ID, entries[i].BalanceAfter, want)
		}
		prev = entries[i].BalanceAfter
	}
	if !account.Balance.Equal(entries[0].BalanceAfter) {
		t.Errorf("balance = %s, want most recent snapshot %s", account.Balance, entries[0].BalanceAfter)
	}
}

func TestPostEntry_CrossAccountIndependence(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	accountA := createAccount(t, st, decimal.Zero)
	accountB := createAccount(t, st, decimal.Zero)

	const posts = 50
	var wg sync.WaitGroup
	for i := 0; i < posts; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			poster.PostEntry(ctx, PostRequest{
				UserID: "user-1", AccountID: accountA,
				Direction: domain.Credit, Amount: decimal.NewFromInt(2), RefType: domain.RefManual,
			})
		}()
		go func() {
			defer wg.Done()
			poster.PostEntry(ctx, PostRequest{
				UserID: "user-1", AccountID: accountB,
				Direction: domain.Debit, Amount: decimal.NewFromInt(1), RefType: domain.RefManual,
			})
		}()
	}
	wg.Wait()

	a, _ := st.GetAccount(ctx, accountA)
	b, _ := st.GetAccount(ctx, accountB)
	if !a.Balance.Equal(decimal.NewFromInt(2 * posts)) {
		t.Errorf("account A balance = %s, want %d", a.Balance, 2*posts)
	}
	if !b.Balance.Equal(decimal.NewFromInt(-posts)) {
		t.Errorf("account B balance = %s, want %d", b.Balance, -posts)
	}
}

func TestTransfer(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	from := createAccount(t, st, decimal.NewFromInt(100))
	to := createAccount(t, st, decimal.Zero)

	debit, credit, err := poster.Transfer(ctx, TransferRequest{
		UserID:        "user-1",
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        decimal.NewFromInt(25),
		Remark:        "monthly top-up",
	})
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	if debit.RefType != domain.RefTransfer || credit.RefType != domain.RefTransfer {
		t.Errorf("ref types = %s/%s, want transfer/transfer", debit.RefType, credit.RefType)
	}
	if debit.RefID == "" || debit.RefID != credit.RefID {
		t.Errorf("legs must share a transfer ref id, got %q and %q", debit.RefID, credit.RefID)
	}

	fromAccount, _ := st.GetAccount(ctx, from)
	toAccount, _ := st.GetAccount(ctx, to)
	if !fromAccount.Balance.Equal(decimal.NewFromInt(75)) {
		t.Errorf("source balance = %s, want 75", fromAccount.Balance)
	}
	if !toAccount.Balance.Equal(decimal.NewFromInt(25)) {
		t.Errorf("destination balance = %s, want 25", toAccount.Balance)
	}
}

func TestTransfer_MissingDestinationReversesDebit(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	from := createAccount(t, st, decimal.NewFromInt(100))

	_, _, err := poster.Transfer(ctx, TransferRequest{
		UserID:        "user-1",
		FromAccountID: from,
		ToAccountID:   "no-such-account",
		Amount:        decimal.NewFromInt(25),
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("Transfer error = %v, want account not found", err)
	}

	account, _ := st.GetAccount(ctx, from)
	if !account.Balance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("source balance = %s after failed transfer, want 100", account.Balance)
	}
}

func TestReverse(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	accountID := createAccount(t, st, decimal.Zero)

	original, err := poster.PostEntry(ctx, PostRequest{
		UserID: "user-1", AccountID: accountID,
		Direction: domain.Credit, Amount: decimal.NewFromInt(80), RefType: domain.RefPayment,
	})
	if err != nil {
		t.Fatalf("PostEntry: %v", err)
	}

	reversal, err := poster.Reverse(ctx, "user-1", original.ID, "duplicate payment")
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}

	if reversal.Direction != domain.Debit {
		t.Errorf("reversal direction = %s, want debit", reversal.Direction)
	}
	if reversal.RefType != domain.RefReversal {
		t.Errorf("reversal ref type = %s, want reversal", reversal.RefType)
	}
	if reversal.RefID != original.ID {
		t.Errorf("reversal ref id = %s, want original entry id %s", reversal.RefID, original.ID)
	}

	account, _ := st.GetAccount(ctx, accountID)
	if !account.Balance.IsZero() {
		t.Errorf("balance = %s after reversal, want 0", account.Balance)
	}

	// The original entry is untouched; the correction is a new row.
	entries, _ := st.QueryEntries(ctx, store.EntryFilter{AccountID: accountID})
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestPostEntry_BalanceConsistency(t *testing.T) {
	poster, st := newTestPoster(t)
	ctx := context.Background()
	opening := decimal.NewFromInt(250)
	accountID := createAccount(t, st, opening)

	amounts := []string{"10.10", "20.20", "5.05", "100", "0.65"}
	directions := []domain.Direction{domain.Credit, domain.Debit, domain.Credit, domain.Debit, domain.Credit}
	for i := range amounts {
		if _, err := poster.PostEntry(ctx, PostRequest{
			UserID: "user-1", AccountID: accountID,
			Direction: directions[i], Amount: decimal.RequireFromString(amounts[i]), RefType: domain.RefManual,
		}); err != nil {
			t.Fatalf("PostEntry %d: %v", i, err)
		}
	}

	entries, _ := st.QueryEntries(ctx, store.EntryFilter{AccountID: accountID})
	account, _ := st.GetAccount(ctx, accountID)

	sum := opening
	for _, e := range entries {
		sum = sum.Add(e.Delta)
	}
	if !account.Balance.Equal(sum) {
		t.Errorf("balance = %s, want opening plus sum of deltas %s", account.Balance, sum)
	}
	// Entries are sorted most recent first.
	if !account.Balance.Equal(entries[0].BalanceAfter) {
		t.Errorf("balance = %s, want latest balance-after %s", account.Balance, entries[0].BalanceAfter)
	}
}

package handlers

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/events"
	"github.com/bizbooks/bizbooks/internal/ledger"
	"github.com/bizbooks/bizbooks/internal/report"
	"github.com/bizbooks/bizbooks/internal/store"
	"github.com/bizbooks/bizbooks/internal/store/memory"
)

type failingEntryStore struct{}

func (failingEntryStore) InsertEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	return context.DeadlineExceeded
}

func (failingEntryStore) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	return nil, context.DeadlineExceeded
}

func (failingEntryStore) QueryEntries(ctx context.Context, filter store.EntryFilter) ([]store.EntryWithAccount, error) {
	return nil, context.DeadlineExceeded
}

func seedAccount(t *testing.T, st *memory.Store, id string) {
	t.Helper()
	err := st.CreateAccount(context.Background(), &domain.Account{
		ID: id, UserID: "user-1", Kind: domain.AccountBank, Name: "Main Checking",
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
}

func TestReportsHandler_CSVAttachment(t *testing.T) {
	st := memory.New()
	seedAccount(t, st, "acct-1")
	poster := ledger.NewPoster(st, events.Nop{}, zerolog.Nop())
	if _, err := poster.PostEntry(context.Background(), ledger.PostRequest{
		UserID: "user-1", AccountID: "acct-1",
		Direction: domain.Credit, Amount: decimal.NewFromInt(42), RefType: domain.RefPayment,
	}); err != nil {
		t.Fatalf("PostEntry: %v", err)
	}

	reports := report.NewService(st, time.UTC, "USD", zerolog.Nop())
	handler := NewReportsHandler(reports, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/csv?accountId=acct-1", nil)
	rec := httptest.NewRecorder()
	handler.CSV(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") || !strings.Contains(cd, "account-report-") {
		t.Errorf("content disposition = %q", cd)
	}

	records, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("parse body: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d CSV records, want header plus one row", len(records))
	}
}

func TestReportsHandler_QueryFailure(t *testing.T) {
	reports := report.NewService(failingEntryStore{}, time.UTC, "USD", zerolog.Nop())
	handler := NewReportsHandler(reports, nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/reports/pdf", nil)
	rec := httptest.NewRecorder()
	handler.PDF(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	// An error response, never a truncated file.
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json error body", ct)
	}
}

func TestEntriesHandler_CreateEntry(t *testing.T) {
	st := memory.New()
	seedAccount(t, st, "acct-1")
	poster := ledger.NewPoster(st, events.Nop{}, zerolog.Nop())
	handler := NewEntriesHandler(poster, st, zerolog.Nop())

	body, _ := json.Marshal(map[string]any{
		"account_id": "acct-1",
		"direction":  "credit",
		"amount":     "125.40",
		"ref_type":   "payment",
		"remark":     "invoice 17",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateEntry(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var entry domain.LedgerEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !entry.BalanceAfter.Equal(decimal.RequireFromString("125.40")) {
		t.Errorf("balance after = %s, want 125.40", entry.BalanceAfter)
	}
}

func TestEntriesHandler_RejectsBadDirection(t *testing.T) {
	st := memory.New()
	seedAccount(t, st, "acct-1")
	poster := ledger.NewPoster(st, events.Nop{}, zerolog.Nop())
	handler := NewEntriesHandler(poster, st, zerolog.Nop())

	body, _ := json.Marshal(map[string]any{
		"account_id": "acct-1",
		"direction":  "withdraw",
		"amount":     "10",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/entries", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateEntry(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAccountsHandler_CreateAndBalance(t *testing.T) {
	st := memory.New()
	handler := NewAccountsHandler(st, zerolog.Nop())

	body, _ := json.Marshal(map[string]any{
		"kind":            "wallet",
		"name":            "Petty Cash",
		"opening_balance": "50",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/accounts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateAccount(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	var account domain.Account
	if err := json.Unmarshal(rec.Body.Bytes(), &account); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !account.Balance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("balance = %s, want opening balance 50", account.Balance)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/accounts/balance?account_id="+account.ID, nil)
	rec = httptest.NewRecorder()
	handler.GetBalance(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

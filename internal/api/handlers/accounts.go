package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/api/middleware"
	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/store"
)

// AccountsHandler handles account-related endpoints.
type AccountsHandler struct {
	store store.Store
	log   zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(st store.Store, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		store: st,
		log:   log,
	}
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind           string            `json:"kind"`
		Name           string            `json:"name"`
		Details        map[string]string `json:"details"`
		OpeningBalance decimal.Decimal   `json:"opening_balance"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	kind, err := domain.ParseAccountKind(req.Kind)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "Name is required")
		return
	}

	account := &domain.Account{
		ID:             uuid.New().String(),
		UserID:         middleware.UserID(r.Context()),
		Kind:           kind,
		Name:           req.Name,
		Details:        req.Details,
		OpeningBalance: req.OpeningBalance,
		Balance:        req.OpeningBalance,
		CreatedAt:      time.Now().UTC(),
	}

	if err := h.store.CreateAccount(r.Context(), account); err != nil {
		h.log.Error().Err(err).Msg("Failed to create account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, account)
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.ListAccounts(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list accounts")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list accounts")
		return
	}

	if accounts == nil {
		accounts = []*domain.Account{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// GetBalance handles GET /api/accounts/balance
func (h *AccountsHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	account, err := h.store.GetAccount(r.Context(), accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Failed to get account")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get account")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"account_id": account.ID,
		"balance":    account.Balance,
	})
}

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/api/middleware"
	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/ledger"
	"github.com/bizbooks/bizbooks/internal/store"
)

// EntriesHandler handles ledger entry endpoints. All writes go through
// the poster; this layer never touches balances itself.
type EntriesHandler struct {
	poster *ledger.Poster
	store  store.EntryStore
	log    zerolog.Logger
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(poster *ledger.Poster, st store.EntryStore, log zerolog.Logger) *EntriesHandler {
	return &EntriesHandler{
		poster: poster,
		store:  st,
		log:    log,
	}
}

// CreateEntry handles POST /api/entries
func (h *EntriesHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string          `json:"account_id"`
		Direction string          `json:"direction"`
		Amount    decimal.Decimal `json:"amount"`
		RefType   string          `json:"ref_type"`
		RefID     string          `json:"ref_id"`
		Remark    string          `json:"remark"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RefType == "" {
		req.RefType = string(domain.RefManual)
	}

	entry, err := h.poster.PostEntry(r.Context(), ledger.PostRequest{
		UserID:    middleware.UserID(r.Context()),
		AccountID: req.AccountID,
		Direction: domain.Direction(req.Direction),
		Amount:    req.Amount,
		RefType:   domain.RefType(req.RefType),
		RefID:     req.RefID,
		Remark:    req.Remark,
	})
	if err != nil {
		h.writePostError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, entry)
}

// CreateTransfer handles POST /api/transfers
func (h *EntriesHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID string          `json:"from_account_id"`
		ToAccountID   string          `json:"to_account_id"`
		Amount        decimal.Decimal `json:"amount"`
		Remark        string          `json:"remark"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FromAccountID == "" || req.ToAccountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "from_account_id and to_account_id are required")
		return
	}

	debit, credit, err := h.poster.Transfer(r.Context(), ledger.TransferRequest{
		UserID:        middleware.UserID(r.Context()),
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Amount:        req.Amount,
		Remark:        req.Remark,
	})
	if err != nil {
		h.writePostError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"debit":  debit,
		"credit": credit,
	})
}

// ReverseEntry handles POST /api/entries/{id}/reverse
func (h *EntriesHandler) ReverseEntry(w http.ResponseWriter, r *http.Request, entryID string) {
	var req struct {
		Remark string `json:"remark"`
	}
	// An empty body is fine; the remark is optional.
	_ = json.NewDecoder(r.Body).Decode(&req)

	entry, err := h.poster.Reverse(r.Context(), middleware.UserID(r.Context()), entryID, req.Remark)
	if err != nil {
		h.writePostError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, entry)
}

// ListEntries handles GET /api/entries
func (h *EntriesHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.QueryEntries(r.Context(), store.EntryFilter{
		UserID:    middleware.UserID(r.Context()),
		AccountID: r.URL.Query().Get("account_id"),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query entries")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query entries")
		return
	}

	if entries == nil {
		entries = []store.EntryWithAccount{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *EntriesHandler) writePostError(w http.ResponseWriter, err error) {
	switch {
	case ledger.IsInvalid(err):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case ledger.IsNotFound(err):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg("Failed to post entry")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to post entry")
	}
}

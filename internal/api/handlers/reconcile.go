package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/bizbooks/bizbooks/internal/api/middleware"
	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/reconcile"
)

// ReconcileHandler exposes the ledger consistency check.
type ReconcileHandler struct {
	checker *reconcile.Checker
	log     zerolog.Logger
}

// NewReconcileHandler creates a new reconcile handler.
func NewReconcileHandler(checker *reconcile.Checker, log zerolog.Logger) *ReconcileHandler {
	return &ReconcileHandler{
		checker: checker,
		log:     log,
	}
}

// Check handles POST /api/reconcile
func (h *ReconcileHandler) Check(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	result, err := h.checker.Check(r.Context(), accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("account_id", accountID).Msg("Reconcile check failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Reconcile check failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

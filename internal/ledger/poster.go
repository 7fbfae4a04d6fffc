// Package ledger implements the posting service: the sole writer of
// account balances. Each post is one atomic store operation that
// increments the balance and appends one immutable ledger entry carrying
// the resulting balance snapshot.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/events"
	"github.com/bizbooks/bizbooks/internal/store"
)

// Poster converts signed money movements into balance mutations and
// ledger entries. Concurrent posts against the same account serialize at
// the store's atomic post; the poster takes no locks of its own.
type Poster struct {
	store     store.Store
	publisher events.Publisher
	log       zerolog.Logger
}

// NewPoster creates a posting service.
func NewPoster(st store.Store, publisher events.Publisher, log zerolog.Logger) *Poster {
	return &Poster{
		store:     st,
		publisher: publisher,
		log:       log,
	}
}

// PostRequest describes one money movement. Amount may carry either sign;
// only its magnitude is used.
type PostRequest struct {
	UserID    string
	AccountID string
	Direction domain.Direction
	Amount    decimal.Decimal
	RefType   domain.RefType
	RefID     string
	Remark    string
}

// PostEntry applies one movement. The store increments the account
// balance by the signed delta and appends exactly one ledger entry with
// the new balance as its snapshot, both inside one critical section, so
// either everything lands or nothing does and the per-account snapshot
// chain stays unbroken in creation order.
func (p *Poster) PostEntry(ctx context.Context, req PostRequest) (*domain.LedgerEntry, error) {
	if _, err := domain.ParseDirection(string(req.Direction)); err != nil {
		return nil, err
	}
	if _, err := domain.ParseRefType(string(req.RefType)); err != nil {
		return nil, err
	}

	amount := req.Amount.Abs()
	if amount.IsZero() {
		return nil, fmt.Errorf("%w: amount must be non-zero", domain.ErrInvalidAmount)
	}

	delta := amount
	if req.Direction == domain.Debit {
		delta = amount.Neg()
	}

	entry := &domain.LedgerEntry{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		AccountID: req.AccountID,
		Direction: req.Direction,
		Amount:    amount,
		Delta:     delta,
		RefType:   req.RefType,
		RefID:     req.RefID,
		Remark:    req.Remark,
	}

	// The store fills BalanceAfter and CreatedAt while it holds the
	// account's critical section.
	if err := p.store.PostEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("post entry: %w", err)
	}

	p.publishPosted(ctx, entry)
	return entry, nil
}

// TransferRequest moves money between two accounts of the same user.
type TransferRequest struct {
	UserID        string
	FromAccountID string
	ToAccountID   string
	Amount        decimal.Decimal
	Remark        string
}

// Transfer debits the source account and credits the destination, both
// entries sharing a transfer reference ID. If the credit leg fails after
// the debit succeeded, the debit is reversed before the error is
// returned.
func (p *Poster) Transfer(ctx context.Context, req TransferRequest) (debit, credit *domain.LedgerEntry, err error) {
	refID := uuid.New().String()

	debit, err = p.PostEntry(ctx, PostRequest{
		UserID:    req.UserID,
		AccountID: req.FromAccountID,
		Direction: domain.Debit,
		Amount:    req.Amount,
		RefType:   domain.RefTransfer,
		RefID:     refID,
		Remark:    req.Remark,
	})
	if err != nil {
		return nil, nil, err
	}

	credit, err = p.PostEntry(ctx, PostRequest{
		UserID:    req.UserID,
		AccountID: req.ToAccountID,
		Direction: domain.Credit,
		Amount:    req.Amount,
		RefType:   domain.RefTransfer,
		RefID:     refID,
		Remark:    req.Remark,
	})
	if err != nil {
		if _, revErr := p.Reverse(ctx, req.UserID, debit.ID, "transfer credit leg failed"); revErr != nil {
			p.log.Error().Err(revErr).
				Str("entry_id", debit.ID).
				Msg("Failed to reverse debit leg of broken transfer")
		}
		return nil, nil, err
	}
	return debit, credit, nil
}

// Reverse corrects a previously posted entry with a new reversal-typed
// entry in the opposite direction. The original entry is never mutated.
func (p *Poster) Reverse(ctx context.Context, userID, entryID, remark string) (*domain.LedgerEntry, error) {
	original, err := p.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, fmt.Errorf("reverse entry: %w", err)
	}

	direction := domain.Credit
	if original.Direction == domain.Credit {
		direction = domain.Debit
	}

	return p.PostEntry(ctx, PostRequest{
		UserID:    userID,
		AccountID: original.AccountID,
		Direction: direction,
		Amount:    original.Amount,
		RefType:   domain.RefReversal,
		RefID:     original.ID,
		Remark:    remark,
	})
}

func (p *Poster) publishPosted(ctx context.Context, entry *domain.LedgerEntry) {
	event := events.EntryPosted{
		EntryID:      entry.ID,
		UserID:       entry.UserID,
		AccountID:    entry.AccountID,
		Direction:    string(entry.Direction),
		Amount:       entry.Amount,
		Delta:        entry.Delta,
		BalanceAfter: entry.BalanceAfter,
		RefType:      string(entry.RefType),
		OccurredAt:   entry.CreatedAt,
	}
	if err := p.publisher.Publish(ctx, events.TopicEntryPosted, event); err != nil {
		p.log.Warn().Err(err).Str("entry_id", entry.ID).Msg("Failed to publish entry-posted event")
	}
}

// IsNotFound reports whether err is an account or entry lookup miss.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrAccountNotFound) || errors.Is(err, domain.ErrEntryNotFound)
}

// IsInvalid reports whether err is a caller input error.
func IsInvalid(err error) bool {
	return errors.Is(err, domain.ErrInvalidAmount) ||
		errors.Is(err, domain.ErrInvalidDirection) ||
		errors.Is(err, domain.ErrInvalidRefType)
}

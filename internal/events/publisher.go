// Package events carries audit events emitted after ledger posts. The
// publisher is a side-effect sink: a failed publish is logged by the
// caller and never fails the post itself.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TopicEntryPosted is the topic for ledger entry audit events.
const TopicEntryPosted = "ledger.entry.posted"

// EntryPosted is emitted after a ledger entry has been durably recorded.
type EntryPosted struct {
	EntryID      string          `json:"entry_id"`
	UserID       string          `json:"user_id"`
	AccountID    string          `json:"account_id"`
	Direction    string          `json:"direction"`
	Amount       decimal.Decimal `json:"amount"`
	Delta        decimal.Decimal `json:"delta"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	RefType      string          `json:"ref_type"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Publisher publishes events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Nop is a Publisher that discards everything. Used when no broker is
// configured.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(ctx context.Context, topic string, event any) error { return nil }

// Close implements Publisher.
func (Nop) Close() error { return nil }

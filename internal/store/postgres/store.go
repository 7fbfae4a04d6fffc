// Package postgres is the production implementation of the store
// contracts on PostgreSQL via lib/pq. The single-statement
// UPDATE ... RETURNING on the account balance is the atomic
// increment-and-return the ledger poster relies on.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/bizbooks/bizbooks/internal/domain"
	"github.com/bizbooks/bizbooks/internal/store"
)

// Store is a PostgreSQL-backed store.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	kind            TEXT NOT NULL,
	name            TEXT NOT NULL,
	details         JSONB,
	opening_balance NUMERIC(20,4) NOT NULL DEFAULT 0,
	balance         NUMERIC(20,4) NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	direction     TEXT NOT NULL,
	amount        NUMERIC(20,4) NOT NULL,
	delta         NUMERIC(20,4) NOT NULL,
	balance_after NUMERIC(20,4) NOT NULL,
	ref_type      TEXT NOT NULL,
	ref_id        TEXT,
	remark        TEXT,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ledger_entries_account_created
	ON ledger_entries (account_id, created_at DESC);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CreateAccount implements store.AccountStore.
func (s *Store) CreateAccount(ctx context.Context, account *domain.Account) error {
	details, err := json.Marshal(account.Details)
	if err != nil {
		return fmt.Errorf("marshal account details: %w", err)
	}

	const query = `INSERT INTO accounts (id, user_id, kind, name, details, opening_balance, balance, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = s.db.ExecContext(ctx, query,
		account.ID, account.UserID, string(account.Kind), account.Name,
		details, account.OpeningBalance, account.Balance, account.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount implements store.AccountStore.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	const query = `SELECT id, user_id, kind, name, details, opening_balance, balance, created_at
	FROM accounts WHERE id = $1`

	var (
		account domain.Account
		kind    string
		details []byte
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&account.ID, &account.UserID, &kind, &account.Name,
		&details, &account.OpeningBalance, &account.Balance, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	account.Kind = domain.AccountKind(kind)
	if len(details) > 0 {
		if err := json.Unmarshal(details, &account.Details); err != nil {
			return nil, fmt.Errorf("unmarshal account details: %w", err)
		}
	}
	return &account, nil
}

// ListAccounts implements store.AccountStore.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]*domain.Account, error) {
	const query = `SELECT id, user_id, kind, name, details, opening_balance, balance, created_at
	FROM accounts WHERE ($1 = '' OR user_id = $1) ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var (
			account domain.Account
			kind    string
			details []byte
		)
		if err := rows.Scan(&account.ID, &account.UserID, &kind, &account.Name,
			&details, &account.OpeningBalance, &account.Balance, &account.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		account.Kind = domain.AccountKind(kind)
		if len(details) > 0 {
			if err := json.Unmarshal(details, &account.Details); err != nil {
				return nil, fmt.Errorf("unmarshal account details: %w", err)
			}
		}
		accounts = append(accounts, &account)
	}
	return accounts, rows.Err()
}

// IncrementBalance implements store.AccountStore. The database serializes
// concurrent updates on the row, so each caller gets a distinct new
// balance back.
func (s *Store) IncrementBalance(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	return incrementBalance(ctx, s.db, accountID, delta)
}

type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func incrementBalance(ctx context.Context, q execQuerier, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	const query = `UPDATE accounts SET balance = balance + $1 WHERE id = $2 RETURNING balance`

	var balance decimal.Decimal
	err := q.QueryRowContext(ctx, query, delta, accountID).Scan(&balance)
	if err == sql.ErrNoRows {
		return decimal.Zero, domain.ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("increment balance: %w", err)
	}
	return balance, nil
}

// InsertEntry implements store.EntryStore.
func (s *Store) InsertEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	return insertEntry(ctx, s.db, entry)
}

func insertEntry(ctx context.Context, q execQuerier, entry *domain.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries
	(id, user_id, account_id, direction, amount, delta, balance_after, ref_type, ref_id, remark, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), $11)`

	_, err := q.ExecContext(ctx, query,
		entry.ID, entry.UserID, entry.AccountID, string(entry.Direction),
		entry.Amount, entry.Delta, entry.BalanceAfter, string(entry.RefType),
		entry.RefID, entry.Remark, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetEntry implements store.EntryStore.
func (s *Store) GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	const query = `SELECT id, user_id, account_id, direction, amount, delta, balance_after,
	ref_type, COALESCE(ref_id, ''), COALESCE(remark, ''), created_at
	FROM ledger_entries WHERE id = $1`

	var (
		entry     domain.LedgerEntry
		direction string
		refType   string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&entry.ID, &entry.UserID, &entry.AccountID, &direction,
		&entry.Amount, &entry.Delta, &entry.BalanceAfter,
		&refType, &entry.RefID, &entry.Remark, &entry.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	entry.Direction = domain.Direction(direction)
	entry.RefType = domain.RefType(refType)
	return &entry, nil
}

// QueryEntries implements store.EntryStore: filtered, joined with the
// owning account, sorted by creation time descending with the entry ID as
// a stable tie-breaker.
func (s *Store) QueryEntries(ctx context.Context, filter store.EntryFilter) ([]store.EntryWithAccount, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if filter.UserID != "" {
		add("e.user_id = ?", filter.UserID)
	}
	if filter.AccountID != "" {
		add("e.account_id = ?", filter.AccountID)
	}
	if filter.From != nil {
		add("e.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		add("e.created_at <= ?", *filter.To)
	}

	query := `SELECT e.id, e.user_id, e.account_id, e.direction, e.amount, e.delta, e.balance_after,
	e.ref_type, COALESCE(e.ref_id, ''), COALESCE(e.remark, ''), e.created_at,
	COALESCE(a.name, ''), COALESCE(a.kind, '')
	FROM ledger_entries e LEFT JOIN accounts a ON a.id = e.account_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY e.created_at DESC, e.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	defer rows.Close()

	var result []store.EntryWithAccount
	for rows.Next() {
		var (
			row       store.EntryWithAccount
			direction string
			refType   string
			kind      string
		)
		if err := rows.Scan(&row.ID, &row.UserID, &row.AccountID, &direction,
			&row.Amount, &row.Delta, &row.BalanceAfter,
			&refType, &row.RefID, &row.Remark, &row.CreatedAt,
			&row.AccountName, &kind); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		row.Direction = domain.Direction(direction)
		row.RefType = domain.RefType(refType)
		row.AccountKind = domain.AccountKind(kind)
		result = append(result, row)
	}
	return result, rows.Err()
}

// PostEntry implements store.Store: the balance increment and the entry
// append run inside one database transaction. The UPDATE takes the
// account row lock, so concurrent posts against the same account
// serialize there; CreatedAt is assigned while the lock is held, keeping
// creation order identical to apply order.
func (s *Store) PostEntry(ctx context.Context, entry *domain.LedgerEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	balance, err := incrementBalance(ctx, tx, entry.AccountID, entry.Delta)
	if err != nil {
		return err
	}
	entry.BalanceAfter = balance
	entry.CreatedAt = time.Now().UTC()

	if err = insertEntry(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

var _ store.Store = (*Store)(nil)

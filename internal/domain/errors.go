package domain

import "errors"

var (
	// ErrAccountNotFound is returned when a balance mutation or read
	// targets an account that does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrEntryNotFound is returned when a ledger entry lookup misses.
	ErrEntryNotFound = errors.New("ledger entry not found")

	// ErrInvalidAmount is returned when a movement amount is zero or not
	// a usable number. Amounts are never silently clamped.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidDirection is returned for a direction other than credit
	// or debit.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrInvalidRefType is returned for an unknown reference type.
	ErrInvalidRefType = errors.New("invalid reference type")

	// ErrInvalidAccountKind is returned for an unknown account kind.
	ErrInvalidAccountKind = errors.New("invalid account kind")
)

// Package storage declares the error identities shared by every storage
// implementation so services can branch on them with errors.Is regardless of
// the backing store.
package storage

import "errors"

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrOrderNotFound     = errors.New("order not found")

	// ErrOrderNotOpen is returned by terminal transitions and cancellation
	// when the order already left the open state.
	ErrOrderNotOpen = errors.New("order is not open")

	// ErrNoMatch means no eligible counter-order exists. It is the expected
	// common outcome of a match attempt, not a failure.
	ErrNoMatch = errors.New("no eligible counter order")

	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrPriceNotFound means no last price is cached for a symbol, as opposed
	// to the cache being unreachable.
	ErrPriceNotFound = errors.New("price not found")

	// ErrLockUnderflow signals a release of more than is locked. It is a bug
	// in the caller, never a recoverable business error.
	ErrLockUnderflow = errors.New("locked amount underflow")

	// ErrAssetIntegrity signals that settlement found the seller's locked
	// asset balance short of the trade amount: upstream bookkeeping is
	// broken and the whole settlement aborts.
	ErrAssetIntegrity = errors.New("asset integrity violation")
)

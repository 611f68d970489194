package ledger

import "math/big"

// Store is the transactional persistence surface the engine needs: CRUD
// over accounts, tokens, balances and streams, plus nestable savepoints.
// The engine never opens a connection or begins a transaction itself — the
// host wraps one external action in one transaction and commits or rolls
// it back depending on whether the engine returned an error (§5). Store
// implementations only need to support one writer at a time.
type Store interface {
	// EnsureAccount idempotently creates an account row.
	EnsureAccount(account Address) error
	// EnsureToken idempotently creates a token (and its backing account)
	// with zero totals if it does not already exist.
	EnsureToken(token Address) error

	// GetShares returns the stored share balance for (account, token).
	// Absent rows read as zero.
	GetShares(account, token Address) (*big.Int, error)
	// SetShares writes the stored share balance for (account, token).
	SetShares(account, token Address, shares *big.Int) error

	// GetTokenTotals returns (total_assets, total_shares) for token.
	GetTokenTotals(token Address) (totalAssets, totalShares *big.Int, err error)
	// SetTokenTotals writes (total_assets, total_shares) for token.
	SetTokenTotals(token Address, totalAssets, totalShares *big.Int) error

	// InsertStream inserts a new stream and returns its assigned id.
	InsertStream(s *Stream) (int64, error)
	// UpdateStreamDurationAmount truncates a stream's duration/amount in
	// place (used by CancelStream).
	UpdateStreamDurationAmount(id int64, duration int64, amount *big.Int) error
	// SetStreamAccrued marks a stream accrued or not.
	SetStreamAccrued(id int64, accrued bool) error
	// DeleteStream removes a stream outright (cancellation before start).
	DeleteStream(id int64) error
	// GetStreamByID returns the stream with the given id, or (nil, nil) if
	// no such stream exists.
	GetStreamByID(id int64) (*Stream, error)

	// StreamsForAccount returns every stream (any accrual state) where
	// account is sender or receiver, for the given token.
	StreamsForAccount(account, token Address) ([]*Stream, error)
	// StreamsForBalance returns unaccrued streams where account is sender
	// or receiver, for the given token, with StartTS <= untilTS. Swap-
	// associated streams are included: only settlement excludes them.
	StreamsForBalance(account, token Address, untilTS int64) ([]*Stream, error)
	// MaturedUnaccruedStreams returns unaccrued, non-swap streams where
	// account is sender or receiver, for the given token, whose full
	// duration has elapsed by t (StartTS+Duration <= t).
	MaturedUnaccruedStreams(account, token Address, t int64) ([]*Stream, error)
	// MaxEndTimestamp returns MAX(start_ts+duration) over every stream
	// touching account, across all tokens. Zero if the account has none.
	MaxEndTimestamp(account Address) (int64, error)

	// Savepoint issues a new nestable named savepoint.
	Savepoint(name string) error
	// RollbackTo rolls back to a previously issued savepoint without
	// releasing it.
	RollbackTo(name string) error
	// Release releases a previously issued savepoint.
	Release(name string) error
	// NewSavepointName returns a fresh name for a nested savepoint.
	NewSavepointName() string
}

// withProjection takes a fresh savepoint, runs fn, and unconditionally
// rolls back — used by the future_* read projections (§4.4, §5), which
// invoke a mutating subroutine (the external hook) purely to compute a
// value and never persist the effect.
func withProjection[T any](store Store, fn func() (T, error)) (T, error) {
	name := store.NewSavepointName()
	var zero T
	if err := store.Savepoint(name); err != nil {
		return zero, err
	}
	result, err := fn()
	if rbErr := store.RollbackTo(name); rbErr != nil {
		return zero, rbErr
	}
	if relErr := store.Release(name); relErr != nil {
		return zero, relErr
	}
	return result, err
}

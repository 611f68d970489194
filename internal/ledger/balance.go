package ledger

import (
	"context"
	"math/big"
)

// storedBalance returns shares[account,token] converted to assets at the
// token's current (total_shares, total_assets) ratio.
func (t *Token) storedBalance(account Address) (*big.Int, error) {
	shares, err := t.store.GetShares(account, t.address)
	if err != nil {
		return nil, err
	}
	totalAssets, totalShares, err := t.store.GetTokenTotals(t.address)
	if err != nil {
		return nil, err
	}
	return SharesToAssets(shares, totalShares, totalAssets), nil
}

// balanceOf computes stored shares (as assets) plus the net contribution
// of every unaccrued stream touching account with start <= atTS (§4.4):
//
//	stored + Σ (+streamed_amt(tIn) if receiver, -streamed_amt(atTS) if sender)
//
// countReceived selects whether inbound streams are credited as of atTS
// (true) or only as of recipientUntilTS (false) — the asymmetry §4.4 uses
// to compute a solvency horizon: count the caller's outflows through a
// future horizon without crediting inflows that have not arrived yet.
func (t *Token) balanceOf(account Address, atTS int64, countReceived bool, recipientUntilTS int64) (*big.Int, error) {
	balance, err := t.storedBalance(account)
	if err != nil {
		return nil, err
	}

	streams, err := t.store.StreamsForBalance(account, t.address, atTS)
	if err != nil {
		return nil, err
	}

	inboundUntil := recipientUntilTS
	if countReceived {
		inboundUntil = atTS
	}

	for _, s := range streams {
		if s.To == account {
			balance.Add(balance, s.StreamedAmt(inboundUntil))
		}
		if s.From == account {
			balance.Sub(balance, s.StreamedAmt(atTS))
		}
	}

	return balance, nil
}

// GetStoredBalance returns the stored asset balance of wallet (no stream
// accrual applied): shares[wallet,token] converted via the current ratio.
func (t *Token) GetStoredBalance(wallet string) (*big.Int, error) {
	addr, err := NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	if err := t.store.EnsureAccount(addr); err != nil {
		return nil, err
	}
	return t.storedBalance(addr)
}

// GetStoredTotalSupply returns the token's total_assets.
func (t *Token) GetStoredTotalSupply() (*big.Int, error) {
	totalAssets, _, err := t.store.GetTokenTotals(t.address)
	return totalAssets, err
}

// BalanceOf implements the public balance_of(wallet, at_ts,
// count_received, recipient_until_ts) contract (§4.4, §6).
func (t *Token) BalanceOf(wallet string, atTS int64, countReceived bool, recipientUntilTS int64) (*big.Int, error) {
	addr, err := NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	if err := t.store.EnsureAccount(addr); err != nil {
		return nil, err
	}
	return t.balanceOf(addr, atTS, countReceived, recipientUntilTS)
}

// FutureBalanceOf computes the projected balance of wallet at futureTS (or
// the account's global MAX(start+duration) if futureTS is nil), invoking
// the external hook inside a savepoint that is always rolled back: a pure
// read with no persisted side effects (§4.4, §5). Settlement is not run.
func (t *Token) FutureBalanceOf(ctx context.Context, wallet string, futureTS *int64) (*big.Int, error) {
	addr, err := NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	if err := t.store.EnsureAccount(addr); err != nil {
		return nil, err
	}

	return withProjection(t.store, func() (*big.Int, error) {
		horizon, err := t.horizonFor(addr, futureTS)
		if err != nil {
			return nil, err
		}
		if _, err := t.hook(ctx, t.address, addr, horizon); err != nil {
			return nil, err
		}
		return t.balanceOf(addr, horizon, true, 0)
	})
}

// GetStreams returns every stream (any accrual state) touching wallet for
// this token (§6).
func (t *Token) GetStreams(wallet string) ([]*Stream, error) {
	addr, err := NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	if err := t.store.EnsureAccount(addr); err != nil {
		return nil, err
	}
	return t.store.StreamsForAccount(addr, t.address)
}

// FutureGetStreams returns GetStreams as it would read after the external
// hook runs for wallet at futureTS (or the account's global horizon), then
// rolls back: a pure read (§4.4, §5). Settlement is not run, so matured
// streams keep their stored accrued flag.
func (t *Token) FutureGetStreams(ctx context.Context, wallet string, futureTS *int64) ([]*Stream, error) {
	addr, err := NormalizeAddress(wallet)
	if err != nil {
		return nil, err
	}
	if err := t.store.EnsureAccount(addr); err != nil {
		return nil, err
	}

	return withProjection(t.store, func() ([]*Stream, error) {
		horizon, err := t.horizonFor(addr, futureTS)
		if err != nil {
			return nil, err
		}
		if _, err := t.hook(ctx, t.address, addr, horizon); err != nil {
			return nil, err
		}
		return t.store.StreamsForAccount(addr, t.address)
	})
}

// horizonFor resolves the explicit futureTS if given, else the account's
// global MAX(start+duration) across all tokens (zero if it has none).
func (t *Token) horizonFor(addr Address, futureTS *int64) (int64, error) {
	if futureTS != nil {
		return *futureTS, nil
	}
	return t.store.MaxEndTimestamp(addr)
}

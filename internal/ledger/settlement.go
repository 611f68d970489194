package ledger

import (
	"context"
	"math/big"
)

// processStreams accrues every matured, unaccrued, non-swap stream
// touching account for this token into stored shares, then invokes the
// external hook (§4.5). It runs before every mutating operation that
// takes (sender, current_timestamp) — the "pre-op settlement hook" of
// §4.7/§9, called explicitly rather than via a method decorator.
//
// TS/TA are snapshotted once and held fixed across the whole batch: each
// stream moves value between two accounts without changing total supply,
// and a stable conversion basis avoids compounding rounding error across
// a batch of accruals (§4.5).
func (t *Token) processStreams(ctx context.Context, account Address, now int64) error {
	matured, err := t.store.MaturedUnaccruedStreams(account, t.address, now)
	if err != nil {
		return err
	}

	balance, err := t.storedBalance(account)
	if err != nil {
		return err
	}
	totalAssets, totalShares, err := t.store.GetTokenTotals(t.address)
	if err != nil {
		return err
	}

	for _, s := range matured {
		if err := t.store.SetStreamAccrued(s.ID, true); err != nil {
			return err
		}
		delta := s.StreamedAmt(now)

		if s.From == account {
			balance.Sub(balance, delta)

			counterparty, err := t.storedBalance(s.To)
			if err != nil {
				return err
			}
			counterparty.Add(counterparty, delta)
			if err := t.setStoredBalance(s.To, counterparty, totalShares, totalAssets); err != nil {
				return err
			}
		}
		if s.To == account {
			balance.Add(balance, delta)

			counterparty, err := t.storedBalance(s.From)
			if err != nil {
				return err
			}
			counterparty.Sub(counterparty, delta)
			if err := t.setStoredBalance(s.From, counterparty, totalShares, totalAssets); err != nil {
				return err
			}
		}
	}

	if err := t.setStoredBalance(account, balance, totalShares, totalAssets); err != nil {
		return err
	}

	_, err = t.hook(ctx, t.address, account, now)
	return err
}

// setStoredBalance converts an asset balance back to shares at the given
// (totalShares, totalAssets) basis and persists it for account.
func (t *Token) setStoredBalance(account Address, assetBalance, totalShares, totalAssets *big.Int) error {
	shares := AssetsToShares(assetBalance, totalShares, totalAssets)
	return t.store.SetShares(account, t.address, shares)
}

package ledger

import (
	"context"
	"math/big"
)

// Token is the public contract of one rebase token, parameterized by a
// Store handle and the token's own address (§6). A Token is also an
// account: it carries total_assets/total_shares rows in the store.
type Token struct {
	store   Store
	hook    Hook
	address Address
}

// New returns a Token bound to tokenAddress, creating its account/token
// rows if they do not already exist (lazy creation, §3's lifecycle rule).
// A nil hook defaults to DefaultHook.
func New(store Store, hook Hook, tokenAddress string) (*Token, error) {
	addr, err := NormalizeAddress(tokenAddress)
	if err != nil {
		return nil, err
	}
	if hook == nil {
		hook = DefaultHook
	}
	if err := store.EnsureToken(addr); err != nil {
		return nil, err
	}
	return &Token{store: store, hook: hook, address: addr}, nil
}

// GetAddress returns the token's own address.
func (t *Token) GetAddress() Address {
	return t.address
}

// settleSender normalizes sender (failing on a malformed address), ensures
// its account row, and runs settlement for (sender, t); currentTS is used
// as given, without validation — the structural form
// of the "pre-op settlement hook" (§4.7, §9): every mutator that accepts
// (sender, current_timestamp) calls this first, explicitly, rather than
// through a decorator.
func (t *Token) settleSender(ctx context.Context, op, sender string, currentTS int64) (Address, error) {
	addr, err := NormalizeAddress(sender)
	if err != nil {
		return Address{}, err
	}
	if err := t.store.EnsureAccount(addr); err != nil {
		return Address{}, err
	}
	if err := t.processStreams(ctx, addr, currentTS); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// MintShares increases total_shares and wallet's stored shares by
// sharesAmount. TA is unchanged; used internally by MintAssets to
// bootstrap a token at a 1:1 share:asset ratio, and does not by itself
// invalidate (I1) because MintAssets always pairs it with a matching TA
// increment (§4.6).
func (t *Token) MintShares(sharesAmount *big.Int, wallet string) error {
	if sharesAmount.Sign() <= 0 {
		return validationErrorf("MintShares", wallet, "shares amount must be positive")
	}
	addr, err := NormalizeAddress(wallet)
	if err != nil {
		return err
	}
	if err := t.store.EnsureAccount(addr); err != nil {
		return err
	}

	totalAssets, totalShares, err := t.store.GetTokenTotals(t.address)
	if err != nil {
		return err
	}
	newTotalShares := new(big.Int).Add(totalShares, sharesAmount)
	if err := t.store.SetTokenTotals(t.address, totalAssets, newTotalShares); err != nil {
		return err
	}

	current, err := t.store.GetShares(addr, t.address)
	if err != nil {
		return err
	}
	return t.store.SetShares(addr, t.address, new(big.Int).Add(current, sharesAmount))
}

// MintAssets increases total_assets by assetsAmount and mints the
// corresponding shares: 1:1 if the token has no assets yet, otherwise
// assets_to_shares at the current ratio (§4.6).
func (t *Token) MintAssets(assetsAmount *big.Int, wallet string) error {
	if assetsAmount.Sign() <= 0 {
		return validationErrorf("MintAssets", wallet, "asset amount must be positive")
	}
	if _, err := NormalizeAddress(wallet); err != nil {
		return err
	}

	totalAssets, totalShares, err := t.store.GetTokenTotals(t.address)
	if err != nil {
		return err
	}

	var newShares *big.Int
	if totalAssets.Sign() == 0 {
		newShares = new(big.Int).Set(assetsAmount)
	} else {
		newShares = AssetsToShares(assetsAmount, totalShares, totalAssets)
	}

	newTotalAssets := new(big.Int).Add(totalAssets, assetsAmount)
	if err := t.store.SetTokenTotals(t.address, newTotalAssets, totalShares); err != nil {
		return err
	}

	return t.MintShares(newShares, wallet)
}

// Rebase sets total_assets := newTotalAssets. total_shares and every
// account's stored shares are unchanged; every stored asset balance
// scales proportionally since shares_to_assets reads the new ratio
// (§4.6). Admin-scoped externally; the core enforces only non-negativity.
func (t *Token) Rebase(newTotalAssets *big.Int) error {
	if newTotalAssets.Sign() < 0 {
		return validationErrorf("Rebase", "", "total assets must be non-negative")
	}
	_, totalShares, err := t.store.GetTokenTotals(t.address)
	if err != nil {
		return err
	}
	return t.store.SetTokenTotals(t.address, newTotalAssets, totalShares)
}

// BurnShares settles, then subtracts amount from sender's stored shares.
// Used by withdraw paths; adjusting total_assets/total_shares to match is
// the caller's responsibility (§4.6).
func (t *Token) BurnShares(ctx context.Context, amount *big.Int, sender string, currentTS int64) error {
	if amount.Sign() <= 0 {
		return validationErrorf("BurnShares", sender, "amount must be positive")
	}
	addr, err := t.settleSender(ctx, "BurnShares", sender, currentTS)
	if err != nil {
		return err
	}

	current, err := t.store.GetShares(addr, t.address)
	if err != nil {
		return err
	}
	return t.store.SetShares(addr, t.address, new(big.Int).Sub(current, amount))
}

// BurnAssets settles, then burns the shares equivalent to assetsAmount at
// the current ratio, decrementing total_assets and total_shares to match
// (§4.6). Fails with InsufficientBalance if sender does not hold enough
// shares.
func (t *Token) BurnAssets(ctx context.Context, assetsAmount *big.Int, sender string, currentTS int64) error {
	if assetsAmount.Sign() <= 0 {
		return validationErrorf("BurnAssets", sender, "asset amount must be positive")
	}
	addr, err := t.settleSender(ctx, "BurnAssets", sender, currentTS)
	if err != nil {
		return err
	}

	totalAssets, totalShares, err := t.store.GetTokenTotals(t.address)
	if err != nil {
		return err
	}
	userShares, err := t.store.GetShares(addr, t.address)
	if err != nil {
		return err
	}

	sharesToBurn := AssetsToShares(assetsAmount, totalShares, totalAssets)
	if sharesToBurn.Cmp(userShares) > 0 {
		return insufficientBalanceErrorf("BurnAssets", sender, "not enough shares to burn the requested assets")
	}

	if err := t.store.SetShares(addr, t.address, new(big.Int).Sub(userShares, sharesToBurn)); err != nil {
		return err
	}
	return t.store.SetTokenTotals(t.address,
		new(big.Int).Sub(totalAssets, assetsAmount),
		new(big.Int).Sub(totalShares, sharesToBurn),
	)
}

// Transfer settles, validates the request, checks solvency (§4.6's
// solvency horizon, (I4)), and opens a new stream from sender to receiver.
// startTS == 0 defaults to currentTS; it is otherwise required to be
// >= currentTS. Returns the new stream's id.
func (t *Token) Transfer(ctx context.Context, receiver string, amount *big.Int, duration, startTS int64, sender string, currentTS int64, swapID *string) (int64, error) {
	addr, err := t.settleSender(ctx, "Transfer", sender, currentTS)
	if err != nil {
		return 0, err
	}

	receiverAddr, err := NormalizeAddress(receiver)
	if err != nil {
		return 0, err
	}
	if err := t.store.EnsureAccount(receiverAddr); err != nil {
		return 0, err
	}

	if startTS == 0 {
		startTS = currentTS
	}
	if startTS < currentTS {
		return 0, validationErrorf("Transfer", sender, "start timestamp must not be in the past")
	}
	if duration < 0 {
		return 0, validationErrorf("Transfer", sender, "duration must be non-negative")
	}
	if addr == receiverAddr {
		return 0, validationErrorf("Transfer", sender, "sender and receiver must be different")
	}
	if amount.Sign() < 0 {
		return 0, validationErrorf("Transfer", sender, "amount must be non-negative")
	}

	maxEnd, err := t.store.MaxEndTimestamp(addr)
	if err != nil {
		return 0, err
	}
	horizon := startTS + duration
	if maxEnd > horizon {
		horizon = maxEnd
	}

	futureBalance, err := t.balanceOf(addr, horizon, false, currentTS)
	if err != nil {
		return 0, err
	}
	if futureBalance.Cmp(amount) < 0 {
		return 0, insufficientBalanceErrorf("Transfer", sender, "insufficient future balance to transfer, check your streams")
	}

	return t.store.InsertStream(&Stream{
		From:     addr,
		To:       receiverAddr,
		Token:    t.address,
		StartTS:  startTS,
		Duration: duration,
		Amount:   new(big.Int).Set(amount),
		Accrued:  false,
		SwapID:   swapID,
	})
}

// CancelStream settles, then cancels a stream sender owns: if it has not
// started yet, it is deleted outright; otherwise it is truncated in place
// to exactly what has streamed so far (duration := now-start, amount :=
// streamed_amt(now)) — the residual simply never transfers (§4.6). A
// stream whose end is already strictly in the past cannot be cancelled.
func (t *Token) CancelStream(ctx context.Context, streamID int64, sender string, currentTS int64) error {
	addr, err := t.settleSender(ctx, "CancelStream", sender, currentTS)
	if err != nil {
		return err
	}

	stream, err := t.store.GetStreamByID(streamID)
	if err != nil {
		return err
	}
	if stream == nil {
		return notFoundErrorf("CancelStream", "stream %d not found", streamID)
	}
	if stream.From != addr {
		return unauthorizedErrorf("CancelStream", sender, "sender is not the stream owner")
	}
	if stream.EndTS() < currentTS {
		return illegalStateErrorf("CancelStream", "stream %d is already completed", streamID)
	}

	if stream.StartTS > currentTS {
		return t.store.DeleteStream(streamID)
	}

	streamed := stream.StreamedAmt(currentTS)
	return t.store.UpdateStreamDurationAmount(streamID, currentTS-stream.StartTS, streamed)
}

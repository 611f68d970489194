package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/klingon-exchange/streamledger/internal/ledger"
)

// action is one line of a replayed newline-delimited JSON action log. Only
// the fields the named Kind uses are required; the rest are ignored.
type action struct {
	Kind      string  `json:"action"`
	Token     string  `json:"token"`
	CurrentTS int64   `json:"current_ts"`
	Wallet    string  `json:"wallet"`
	Sender    string  `json:"sender"`
	Receiver  string  `json:"receiver"`
	Amount    string  `json:"amount"`
	Duration  int64   `json:"duration"`
	StartTS   int64   `json:"start_ts"`
	StreamID  int64   `json:"stream_id"`
	SwapID    *string `json:"swap_id"`
}

// applyAction dispatches one decoded action against the token it names,
// lazily creating a Token handle per address seen.
func applyAction(ctx context.Context, store ledger.Store, tokens map[string]*ledger.Token, a action) error {
	token, err := tokenFor(store, tokens, a.Token)
	if err != nil {
		return err
	}

	switch a.Kind {
	case "mint_shares":
		return token.MintShares(parseAmount(a.Amount), a.Wallet)
	case "mint_assets":
		return token.MintAssets(parseAmount(a.Amount), a.Wallet)
	case "rebase":
		return token.Rebase(parseAmount(a.Amount))
	case "burn_shares":
		return token.BurnShares(ctx, parseAmount(a.Amount), a.Sender, a.CurrentTS)
	case "burn_assets":
		return token.BurnAssets(ctx, parseAmount(a.Amount), a.Sender, a.CurrentTS)
	case "transfer":
		_, err := token.Transfer(ctx, a.Receiver, parseAmount(a.Amount), a.Duration, a.StartTS, a.Sender, a.CurrentTS, a.SwapID)
		return err
	case "cancel_stream":
		return token.CancelStream(ctx, a.StreamID, a.Sender, a.CurrentTS)
	default:
		return fmt.Errorf("unknown action %q", a.Kind)
	}
}

func tokenFor(store ledger.Store, tokens map[string]*ledger.Token, address string) (*ledger.Token, error) {
	if t, ok := tokens[address]; ok {
		return t, nil
	}
	t, err := ledger.New(store, nil, address)
	if err != nil {
		return nil, err
	}
	tokens[address] = t
	return t, nil
}

func parseAmount(s string) *big.Int {
	return ledger.ParseDecimal(s)
}

// decodeActions reads newline-delimited JSON actions from r, skipping blank
// lines.
func decodeActions(r io.Reader) ([]action, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var actions []action
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var a action
		if err := json.Unmarshal(line, &a); err != nil {
			return nil, fmt.Errorf("malformed action line: %w", err)
		}
		actions = append(actions, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

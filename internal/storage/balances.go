package storage

import (
	"database/sql"
	"math/big"

	"github.com/klingon-exchange/streamledger/internal/ledger"
)

// GetShares returns the stored share balance for (account, token). Absent
// rows read as zero.
func (s *Storage) GetShares(account, token ledger.Address) (*big.Int, error) {
	var raw string
	err := s.db.QueryRow(
		`SELECT shares FROM balance WHERE account_address = ? AND token_address = ?`,
		account.String(), token.String(),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return ledger.ParseDecimal(raw), nil
}

// SetShares writes the stored share balance for (account, token).
func (s *Storage) SetShares(account, token ledger.Address, shares *big.Int) error {
	_, err := s.db.Exec(
		`INSERT INTO balance (account_address, token_address, shares) VALUES (?, ?, ?)
		 ON CONFLICT(account_address, token_address) DO UPDATE SET shares = excluded.shares`,
		account.String(), token.String(), ledger.FormatDecimal(shares),
	)
	return err
}

// GetTokenTotals returns (total_assets, total_shares) for token.
func (s *Storage) GetTokenTotals(token ledger.Address) (totalAssets, totalShares *big.Int, err error) {
	var rawAssets, rawShares string
	err = s.db.QueryRow(
		`SELECT total_assets, total_shares FROM token WHERE address = ?`,
		token.String(),
	).Scan(&rawAssets, &rawShares)
	if err == sql.ErrNoRows {
		return big.NewInt(0), big.NewInt(0), nil
	}
	if err != nil {
		return nil, nil, err
	}
	return ledger.ParseDecimal(rawAssets), ledger.ParseDecimal(rawShares), nil
}

// SetTokenTotals writes (total_assets, total_shares) for token.
func (s *Storage) SetTokenTotals(token ledger.Address, totalAssets, totalShares *big.Int) error {
	_, err := s.db.Exec(
		`UPDATE token SET total_assets = ?, total_shares = ? WHERE address = ?`,
		ledger.FormatDecimal(totalAssets), ledger.FormatDecimal(totalShares), token.String(),
	)
	return err
}

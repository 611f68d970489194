package storage

import "github.com/klingon-exchange/streamledger/internal/ledger"

// EnsureAccount idempotently creates an account row.
func (s *Storage) EnsureAccount(account ledger.Address) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO account (address) VALUES (?)`, account.String())
	return err
}

// EnsureToken idempotently creates a token (and its backing account) with
// zero totals if it does not already exist.
func (s *Storage) EnsureToken(token ledger.Address) error {
	if err := s.EnsureAccount(token); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO token (address, total_assets, total_shares) VALUES (?, '0', '0')`,
		token.String(),
	)
	return err
}

package storage

import (
	"database/sql"
	"math/big"

	"github.com/klingon-exchange/streamledger/internal/ledger"
)

// InsertStream inserts a new stream and returns its assigned id.
func (s *Storage) InsertStream(st *ledger.Stream) (int64, error) {
	if err := s.EnsureAccount(st.From); err != nil {
		return 0, err
	}
	if err := s.EnsureAccount(st.To); err != nil {
		return 0, err
	}
	res, err := s.db.Exec(
		`INSERT INTO stream (from_address, to_address, start_ts, duration, amount, token_address, accrued, swap_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.From.String(), st.To.String(), st.StartTS, st.Duration,
		ledger.FormatDecimal(st.Amount), st.Token.String(), boolToInt(st.Accrued), st.SwapID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateStreamDurationAmount truncates a stream's duration/amount in place
// (used by CancelStream).
func (s *Storage) UpdateStreamDurationAmount(id int64, duration int64, amount *big.Int) error {
	_, err := s.db.Exec(
		`UPDATE stream SET duration = ?, amount = ? WHERE id = ?`,
		duration, ledger.FormatDecimal(amount), id,
	)
	return err
}

// SetStreamAccrued marks a stream accrued or not.
func (s *Storage) SetStreamAccrued(id int64, accrued bool) error {
	_, err := s.db.Exec(`UPDATE stream SET accrued = ? WHERE id = ?`, boolToInt(accrued), id)
	return err
}

// DeleteStream removes a stream outright (cancellation before start).
func (s *Storage) DeleteStream(id int64) error {
	_, err := s.db.Exec(`DELETE FROM stream WHERE id = ?`, id)
	return err
}

// GetStreamByID returns the stream with the given id, or (nil, nil) if no
// such stream exists.
func (s *Storage) GetStreamByID(id int64) (*ledger.Stream, error) {
	row := s.db.QueryRow(
		`SELECT id, from_address, to_address, start_ts, duration, amount, token_address, accrued, swap_id
		 FROM stream WHERE id = ?`, id,
	)
	st, err := scanStream(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// StreamsForAccount returns every stream (any accrual state) where account
// is sender or receiver, for the given token.
func (s *Storage) StreamsForAccount(account, token ledger.Address) ([]*ledger.Stream, error) {
	rows, err := s.db.Query(
		`SELECT id, from_address, to_address, start_ts, duration, amount, token_address, accrued, swap_id
		 FROM stream
		 WHERE token_address = ? AND (from_address = ? OR to_address = ?)
		 ORDER BY id`,
		token.String(), account.String(), account.String(),
	)
	if err != nil {
		return nil, err
	}
	return scanStreams(rows)
}

// StreamsForBalance returns unaccrued streams where account is sender or
// receiver, for the given token, with StartTS <= untilTS. Swap-associated
// streams are included: only settlement excludes them.
func (s *Storage) StreamsForBalance(account, token ledger.Address, untilTS int64) ([]*ledger.Stream, error) {
	rows, err := s.db.Query(
		`SELECT id, from_address, to_address, start_ts, duration, amount, token_address, accrued, swap_id
		 FROM stream
		 WHERE token_address = ? AND accrued = 0 AND start_ts <= ?
		   AND (from_address = ? OR to_address = ?)
		 ORDER BY id`,
		token.String(), untilTS, account.String(), account.String(),
	)
	if err != nil {
		return nil, err
	}
	return scanStreams(rows)
}

// MaturedUnaccruedStreams returns unaccrued, non-swap streams where account
// is sender or receiver, for the given token, whose full duration has
// elapsed by t (StartTS+Duration <= t).
func (s *Storage) MaturedUnaccruedStreams(account, token ledger.Address, t int64) ([]*ledger.Stream, error) {
	rows, err := s.db.Query(
		`SELECT id, from_address, to_address, start_ts, duration, amount, token_address, accrued, swap_id
		 FROM stream
		 WHERE token_address = ? AND accrued = 0 AND swap_id IS NULL
		   AND start_ts + duration <= ?
		   AND (from_address = ? OR to_address = ?)
		 ORDER BY id`,
		token.String(), t, account.String(), account.String(),
	)
	if err != nil {
		return nil, err
	}
	return scanStreams(rows)
}

// MaxEndTimestamp returns MAX(start_ts+duration) over every stream touching
// account, across all tokens. Zero if the account has none.
func (s *Storage) MaxEndTimestamp(account ledger.Address) (int64, error) {
	var max sql.NullInt64
	err := s.db.QueryRow(
		`SELECT MAX(start_ts + duration) FROM stream WHERE from_address = ? OR to_address = ?`,
		account.String(), account.String(),
	).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return max.Int64, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStream(row rowScanner) (*ledger.Stream, error) {
	var (
		st                     ledger.Stream
		fromRaw, toRaw, tokRaw string
		amountRaw              string
		accruedInt             int
		swapID                 sql.NullString
	)
	if err := row.Scan(&st.ID, &fromRaw, &toRaw, &st.StartTS, &st.Duration, &amountRaw, &tokRaw, &accruedInt, &swapID); err != nil {
		return nil, err
	}
	from, err := ledger.NormalizeAddress(fromRaw)
	if err != nil {
		return nil, err
	}
	to, err := ledger.NormalizeAddress(toRaw)
	if err != nil {
		return nil, err
	}
	tok, err := ledger.NormalizeAddress(tokRaw)
	if err != nil {
		return nil, err
	}
	st.From = from
	st.To = to
	st.Token = tok
	st.Amount = ledger.ParseDecimal(amountRaw)
	st.Accrued = accruedInt != 0
	if swapID.Valid {
		v := swapID.String
		st.SwapID = &v
	}
	return &st, nil
}

func scanStreams(rows *sql.Rows) ([]*ledger.Stream, error) {
	defer rows.Close()
	var out []*ledger.Stream
	for rows.Next() {
		st, err := scanStream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package ledger

import "math/big"

// Stream is an immutable-by-design record of one time-vested transfer.
// It linearly delivers Amount over Duration starting at StartTS; mutation
// is permitted only through settlement (accrual) and cancellation.
type Stream struct {
	ID       int64
	From     Address
	To       Address
	Token    Address
	StartTS  int64
	Duration int64
	Amount   *big.Int
	Accrued  bool
	SwapID   *string
}

// HasStarted reports whether the stream has begun vesting by t.
func (s *Stream) HasStarted(t int64) bool {
	return t >= s.StartTS
}

// HasEnded reports whether the stream has fully vested by t.
func (s *Stream) HasEnded(t int64) bool {
	return t >= s.StartTS+s.Duration
}

// IsActive reports whether the stream is vesting (started, not ended) at t.
func (s *Stream) IsActive(t int64) bool {
	return s.HasStarted(t) && !s.HasEnded(t)
}

// StreamedAmt returns the amount vested by t: zero before StartTS, the full
// Amount once start+duration has passed, and a floor-divided linear
// interpolation in between. A zero-duration stream vests immediately at
// t == StartTS.
func (s *Stream) StreamedAmt(t int64) *big.Int {
	if !s.HasStarted(t) {
		return new(big.Int)
	}
	if s.HasEnded(t) {
		return new(big.Int).Set(s.Amount)
	}
	elapsed := big.NewInt(t - s.StartTS)
	n := new(big.Int).Mul(s.Amount, elapsed)
	return n.Div(n, big.NewInt(s.Duration))
}

// EndTS returns the timestamp at which the stream fully vests.
func (s *Stream) EndTS() int64 {
	return s.StartTS + s.Duration
}

// Package ledger implements the streaming rebase-token accounting engine:
// shares/assets reconciliation under rebase, time-vested transfer streams,
// and the settlement procedure that accrues matured streams into stored
// balances. The package is single-threaded and has no wall-clock or network
// dependency; every timestamp is caller-supplied.
package ledger

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers match with errors.Is; the core never
// catches or retries any of these, it returns them to the caller, which
// rolls back the enclosing transaction.
var (
	ErrValidation         = errors.New("validation error")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrIllegalState       = errors.New("illegal state")
)

// opError wraps a sentinel kind with the operation and subject that failed,
// so logs are precise without requiring the core to take a logger.
type opError struct {
	kind    error
	op      string
	account string
	detail  string
}

func (e *opError) Error() string {
	if e.account != "" {
		return fmt.Sprintf("%s: %s (account=%s): %s", e.op, e.kind, e.account, e.detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.op, e.kind, e.detail)
}

func (e *opError) Unwrap() error {
	return e.kind
}

func validationErrorf(op, account, format string, args ...any) error {
	return &opError{kind: ErrValidation, op: op, account: account, detail: fmt.Sprintf(format, args...)}
}

func insufficientBalanceErrorf(op, account, format string, args ...any) error {
	return &opError{kind: ErrInsufficientBalance, op: op, account: account, detail: fmt.Sprintf(format, args...)}
}

func notFoundErrorf(op, format string, args ...any) error {
	return &opError{kind: ErrNotFound, op: op, detail: fmt.Sprintf(format, args...)}
}

func unauthorizedErrorf(op, account, format string, args ...any) error {
	return &opError{kind: ErrUnauthorized, op: op, account: account, detail: fmt.Sprintf(format, args...)}
}

func illegalStateErrorf(op, format string, args ...any) error {
	return &opError{kind: ErrIllegalState, op: op, detail: fmt.Sprintf(format, args...)}
}

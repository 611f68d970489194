package ledger

import "context"

// Hook is the external extension point invoked at the end of settlement
// and inside the future_* read projections (§6). The core treats its
// result as an opaque boolean reserved for a future swap/pair settlement
// integration; it never branches on the value beyond propagating an
// error, and it must be safe to roll back (it always runs inside a
// savepoint or the caller's enclosing transaction).
type Hook func(ctx context.Context, token, account Address, t int64) (bool, error)

// DefaultHook is the no-op hook: it always succeeds. Grounded on the
// original implementation's hook.py, which is likewise an always-true
// placeholder reserved for swap/pair integration this spec does not
// implement.
func DefaultHook(_ context.Context, _, _ Address, _ int64) (bool, error) {
	return true, nil
}

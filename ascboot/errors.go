package ascboot

import "github.com/pkg/errors"

// Sentinel errors logged at the call sites that observe them, per §7's
// error kinds. These are not returned across the package boundary: every
// public operation's signature is fixed by §4.6/§6 (Start/Stop are
// idempotent with no return, Process is fire-and-forget), so the failure
// they name is recorded as log context instead.
var (
	ErrUnknownTag     = errors.New("ascboot: unknown tag id")
	ErrAlreadyStarted = errors.New("ascboot: service already started")
	ErrNotStarted     = errors.New("ascboot: service not started")
)

// assertInvariant panics when a programming invariant is violated. These are never
// recoverable conditions caused by external input; they indicate a bug in
// this package or a caller that has broken the documented contract.
func assertInvariant(cond bool, msg string, ctx ...interface{}) {
	if !cond {
		panic(assertionError{msg: msg, ctx: ctx})
	}
}

type assertionError struct {
	msg string
	ctx []interface{}
}

func (e assertionError) Error() string {
	return "ascboot: assertion failed: " + e.msg
}

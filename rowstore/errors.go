package rowstore

import "github.com/pkg/errors"

// ErrRestart signals that the caller's observed layout is stale: the
// positioning must be redone and the operation retried. It is a
// cooperative cancellation, not a transaction failure. The core never
// reports it as a warning or error; insertPublish emits only a
// verbosity-2 trace line when a stale level triggers it.
var ErrRestart = errors.New("rowstore: restart")

// ErrWriteConflict signals that the current version is invisible to,
// or locked by, another in-flight transaction. The caller must roll
// the transaction back.
var ErrWriteConflict = errors.New("rowstore: write conflict")

// IsRestart reports whether err is (or wraps) ErrRestart.
func IsRestart(err error) bool {
	return errors.Is(err, ErrRestart)
}

// IsWriteConflict reports whether err is (or wraps) ErrWriteConflict.
func IsWriteConflict(err error) bool {
	return errors.Is(err, ErrWriteConflict)
}

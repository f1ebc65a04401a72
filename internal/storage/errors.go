package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/mattn/go-sqlite3"
)

// ConnErrorKind classifies connection failures surfaced to callers.
type ConnErrorKind int

const (
	KindUnknown ConnErrorKind = iota
	KindLocked
	KindCorrupt
	KindDiskFull
	KindIO
	KindPermission
)

// String returns the display name for the kind.
func (k ConnErrorKind) String() string {
	switch k {
	case KindLocked:
		return "locked"
	case KindCorrupt:
		return "corrupt"
	case KindDiskFull:
		return "disk-full"
	case KindIO:
		return "io"
	case KindPermission:
		return "permission-denied"
	default:
		return "unknown"
	}
}

// ConnError wraps a storage-engine failure with its classified kind.
type ConnError struct {
	Kind ConnErrorKind
	Err  error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("storage connection failed (%s): %v", e.Kind, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// CircuitOpenError is returned when the shared circuit breaker is open.
// No connection attempt is made while it is pending.
type CircuitOpenError struct {
	ReopensAt time.Time
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("storage circuit open, retries resume at %s", e.ReopensAt.Format(time.RFC3339))
}

// Classify maps a raw driver or filesystem error onto a [ConnError].
// Already-classified errors pass through unchanged.
func Classify(err error) *ConnError {
	var cerr *ConnError
	if errors.As(err, &cerr) {
		return cerr
	}

	var serr sqlite3.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return &ConnError{Kind: KindLocked, Err: err}
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB:
			return &ConnError{Kind: KindCorrupt, Err: err}
		case sqlite3.ErrFull:
			return &ConnError{Kind: KindDiskFull, Err: err}
		case sqlite3.ErrIoErr:
			return &ConnError{Kind: KindIO, Err: err}
		case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
			return &ConnError{Kind: KindPermission, Err: err}
		case sqlite3.ErrCantOpen:
			return &ConnError{Kind: KindIO, Err: err}
		}
	}

	if errors.Is(err, fs.ErrPermission) {
		return &ConnError{Kind: KindPermission, Err: err}
	}

	return &ConnError{Kind: KindUnknown, Err: err}
}

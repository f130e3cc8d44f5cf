package hwcomp

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

var (
	// ErrDriverUnavailable marks failures to open or use the driver handle.
	// It is fatal to the display attach in progress.
	ErrDriverUnavailable = errors.New("compositor driver unavailable")

	// ErrQueryFailed matches every *QueryError.
	ErrQueryFailed = errors.New("capability query failed")

	// ErrSubmitFailed marks rejected display setups and composition requests.
	ErrSubmitFailed = errors.New("driver rejected request")
)

// NoDisplay is the display index of queries that are not display specific.
const NoDisplay = -1

// QueryError is a failed capability query.
type QueryError struct {
	Op      string
	Display int
	Errno   unix.Errno
}

func (e *QueryError) Error() string {
	if e.Display == NoDisplay {
		return fmt.Sprintf("%s: %v (errno %d)", e.Op, e.Errno, int(e.Errno))
	}
	return fmt.Sprintf("%s on display %d: %v (errno %d)", e.Op, e.Display, e.Errno, int(e.Errno))
}

func (e *QueryError) Is(target error) bool { return target == ErrQueryFailed }

func (e *QueryError) Unwrap() error { return e.Errno }

func errnoOf(err error) unix.Errno {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}

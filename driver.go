package hwcomp

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
	"golang.org/x/sys/unix"
)

const DevicePath = "/dev/dsscomp"

//go:generate mockgen -destination mocks/driver.go -package mocks github.com/NeowayLabs/hwcomp Driver

// Driver is the compositor driver as seen by the planner.
// Session is the implementation backed by the kernel device.
type Driver interface {
	PlatformLimits() (PlatformLimits, error)
	DisplayInfo(ix int) (DisplayInfo, error)
	ModeDatabase(ix int, maxEntries int) ([]VideoMode, error)
	SetupDisplay(ix int, mode VideoMode) error
	Submit(req *Request) error
	Close() error
}

// Session is an open handle on the compositor driver. Closing it
// invalidates every later call.
type Session struct {
	id     uuid.UUID
	path   string
	fd     int
	closed bool
	logger *slog.Logger
}

var _ Driver = (*Session)(nil)

// Available reports whether the compositor driver can be opened.
func Available() bool {
	s, err := Open(nil)
	if err != nil {
		return false
	}
	s.Close()
	return true
}

func Open(logger *slog.Logger) (*Session, error) {
	return OpenPath(logger, DevicePath)
}

// OpenPath opens the compositor driver at path. Failures are marked
// with ErrDriverUnavailable.
func OpenPath(logger *slog.Logger, path string) (*Session, error) {
	id := uuid.New()
	logger = LoggerOrNop(logger).With(slog.String("session", id.String()))

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		logger.Error("failed to open compositor driver",
			slog.String("path", path),
			slog.Int("errno", int(errnoOf(err))))
		return nil, errors.Mark(errors.Wrapf(err, "open %s", path), ErrDriverUnavailable)
	}

	logger.Debug("compositor driver opened", slog.String("path", path))
	return &Session{
		id:     id,
		path:   path,
		fd:     fd,
		logger: logger,
	}, nil
}

func (s *Session) ID() uuid.UUID { return s.id }
func (s *Session) Path() string  { return s.path }

func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := unix.Close(s.fd); err != nil {
		return errors.Wrapf(err, "close %s", s.path)
	}
	return nil
}

func (s *Session) handle() (uintptr, error) {
	if s.closed {
		return 0, errors.Mark(errors.Newf("session %s is closed", s.id), ErrDriverUnavailable)
	}
	return uintptr(s.fd), nil
}

func (s *Session) queryError(op string, display int, err error) error {
	qerr := &QueryError{Op: op, Display: display, Errno: errnoOf(err)}
	s.logger.Error("driver query failed",
		slog.String("op", op),
		slog.Int("display", display),
		slog.Int("errno", int(qerr.Errno)))
	return qerr
}

func (s *Session) submitError(op string, display int, err error) error {
	errno := errnoOf(err)
	s.logger.Error("driver request failed",
		slog.String("op", op),
		slog.Int("display", display),
		slog.Int("errno", int(errno)))
	return errors.Mark(errors.Wrapf(errno, "%s on display %d", op, display), ErrSubmitFailed)
}

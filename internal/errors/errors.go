package errors

import (
	"errors"
	"fmt"
	"io"

	"golang.org/x/sys/unix"
)

var (
	// ErrServerClosed is returned by Serve after Shutdown.
	ErrServerClosed = errors.New("echoloop: server closed")
	// ErrWriteAbandoned completes write requests still queued when their connection closes.
	ErrWriteAbandoned = errors.New("echoloop: write abandoned by close")
	// ErrUnsupported reports that the platform cannot provide a reactor.
	ErrUnsupported = errors.New("echoloop: reactor is not supported on this platform")
)

// Startup operations.
const (
	OpResolve = "resolve"
	OpBind    = "bind"
	OpListen  = "listen"
)

// StartupError is a fatal bootstrap failure: nothing has been served yet.
type StartupError struct {
	Op   string
	Port string
	Err  error
}

func (e *StartupError) Error() string {
	switch e.Op {
	case OpResolve:
		return fmt.Sprintf("unable to resolve given address on port %s -> %v", e.Port, e.Err)
	case OpListen:
		return fmt.Sprintf("unable to listen TCP server on port %s -> %v", e.Port, e.Err)
	default:
		return fmt.Sprintf("unable to %s TCP server on port %s -> %v", e.Op, e.Port, e.Err)
	}
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

func New(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// AsError converts a recovered panic value into an error.
func AsError(err interface{}) error {
	switch e := err.(type) {
	case error:
		return e
	default:
		return fmt.Errorf("%v", e)
	}
}

// IsEOF reports whether err is a graceful end-of-stream.
func IsEOF(err error) bool {
	return errors.Is(err, io.EOF)
}

// IsTemporary reports whether err means "not ready yet" on a non-blocking socket.
func IsTemporary(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// Is, As and Unwrap mirror the standard library so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

func Unwrap(err error) error { return errors.Unwrap(err) }

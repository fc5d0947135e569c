package errors

import (
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestStartupError(t *testing.T) {
	err := fmt.Errorf("boot: %w", &StartupError{Op: OpBind, Port: "8080", Err: unix.EADDRINUSE})

	var se *StartupError
	assert.True(t, As(err, &se))
	assert.Equal(t, "unable to bind TCP server on port 8080 -> address already in use", se.Error())
	assert.True(t, Is(err, unix.EADDRINUSE))

	resolve := &StartupError{Op: OpResolve, Port: "x", Err: io.ErrUnexpectedEOF}
	assert.Contains(t, resolve.Error(), "unable to resolve given address on port x")

	listen := &StartupError{Op: OpListen, Port: "1", Err: unix.EACCES}
	assert.Contains(t, listen.Error(), "unable to listen TCP server on port 1")
}

func TestIsEOF(t *testing.T) {
	assert.True(t, IsEOF(io.EOF))
	assert.True(t, IsEOF(os.NewSyscallError("read", io.EOF)))
	assert.False(t, IsEOF(unix.ECONNRESET))
}

func TestIsTemporary(t *testing.T) {
	assert.True(t, IsTemporary(unix.EAGAIN))
	assert.True(t, IsTemporary(os.NewSyscallError("accept", unix.EINTR)))
	assert.False(t, IsTemporary(unix.EPIPE))
}

func TestAsError(t *testing.T) {
	assert.Equal(t, io.EOF, AsError(io.EOF))
	assert.EqualError(t, AsError("fake panic"), "fake panic")
}

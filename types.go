package echoloop

import (
	"github.com/emove/echoloop/internal/conn"
	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/internal/stats"
)

type (
	// Conn is the view of a connection handed to hooks.
	Conn = conn.Conn
	// State is a connection lifecycle state.
	State = conn.State
	// Stats is a point-in-time copy of the engine counters.
	Stats = stats.Snapshot
	// StartupError reports which startup step failed and on which port.
	StartupError = errors.StartupError
)

const (
	Accepting = conn.Accepting
	Open      = conn.Open
	Closing   = conn.Closing
	Closed    = conn.Closed
)

var (
	// ErrServerClosed is returned by Serve and Listen after Shutdown.
	ErrServerClosed = errors.ErrServerClosed
	// ErrUnsupported is returned when the selected engine cannot run here.
	ErrUnsupported = errors.ErrUnsupported
)

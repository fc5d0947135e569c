package conn

import (
	"net"
)

// State is where a connection is in its lifecycle. It only moves forward:
// Accepting -> Open -> Closing -> Closed, and Accepting may skip to Closing.
type State int32

const (
	Accepting State = iota
	Open
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Accepting:
		return "accepting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the read-only view of an accepted connection handed to hooks.
// Hooks run on the event loop; they must not block.
type Conn interface {
	// ID is unique per engine for the life of the process.
	ID() uint64

	// RemoteAddr returns the peer address, same as net.Conn#RemoteAddr.
	RemoteAddr() net.Addr

	// State returns the current lifecycle state.
	State() State
}

type (
	// OnOpen is called once a peer has been accepted.
	OnOpen func(c Conn)
	// OnClose is called once the connection handle has been released.
	// err is the read error that ended it, nil for end-of-stream or shutdown.
	OnClose func(c Conn, err error)
)

// Hooks fans connection events out to the registered callbacks.
type Hooks struct {
	OnOpen  []OnOpen
	OnClose []OnClose
}

func (h *Hooks) FireOpen(c Conn) {
	for _, fn := range h.OnOpen {
		fn(c)
	}
}

func (h *Hooks) FireClose(c Conn, err error) {
	for _, fn := range h.OnClose {
		fn(c, err)
	}
}

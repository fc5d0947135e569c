// Package reactor is the readiness poller the event loop runs on. It is not
// safe for concurrent use except for Wake.
package reactor

import (
	"github.com/emove/echoloop/internal/errors"
)

// EventType is a set of readiness conditions.
type EventType uint32

const (
	EventRead EventType = 1 << iota
	EventWrite
	EventError
)

func (e EventType) String() string {
	s := ""
	if e&EventRead != 0 {
		s += "r"
	}
	if e&EventWrite != 0 {
		s += "w"
	}
	if e&EventError != 0 {
		s += "e"
	}
	if s == "" {
		return "-"
	}
	return s
}

// Handler is invoked on the polling goroutine when fd is ready.
type Handler func(fd int, ev EventType)

// Poller multiplexes readiness of many handles onto one goroutine.
type Poller interface {
	// Add registers fd for events. h receives every readiness notification.
	Add(fd int, events EventType, h Handler) error
	// Modify replaces the interest set of a registered fd.
	Modify(fd int, events EventType) error
	// Delete stops watching fd. It does not close it.
	Delete(fd int) error
	// Len is the number of registered handles.
	Len() int
	// Wait blocks for at most msec milliseconds (-1 blocks until an event or
	// Wake) and dispatches ready handlers. It returns how many it dispatched.
	Wait(msec int) (int, error)
	// Wake makes a blocked Wait return. Safe from any goroutine.
	Wake() error
	// Close releases the poller. Registered fds are left open.
	Close() error
}

// ErrUnsupported is returned by New where no poller implementation exists.
var ErrUnsupported = errors.ErrUnsupported

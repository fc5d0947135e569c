//go:build linux
// +build linux

package loop

import (
	"net"
	"strconv"

	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/internal/reactor"
	"github.com/emove/echoloop/internal/socket"
)

// Listener owns the listening socket and turns pending peers into
// Connections.
type Listener struct {
	loop    *EventLoop
	fd      int
	addr    *net.TCPAddr
	backlog int

	errReported bool
}

func newListener(el *EventLoop, addr string, backlog int) (*Listener, error) {
	fd, bound, err := socket.Listen(addr, backlog)
	if err != nil {
		return nil, err
	}
	ln := &Listener{loop: el, fd: fd, addr: bound, backlog: backlog}
	if err = el.poller.Add(fd, reactor.EventRead, ln.onConnectionReady); err != nil {
		_ = socket.Close(fd)
		return nil, &errors.StartupError{Op: errors.OpListen, Port: strconv.Itoa(bound.Port), Err: err}
	}
	return ln, nil
}

// onConnectionReady accepts every pending peer. A failed accept is logged
// and dropped; the listener itself keeps going. An error event is reported
// once until the next successful accept, then the queue is drained as usual.
func (ln *Listener) onConnectionReady(_ int, ev reactor.EventType) {
	el := ln.loop
	if ev&reactor.EventError != 0 {
		el.stats.AcceptErrors.Inc()
		if !ln.errReported {
			err := socket.SockError(ln.fd)
			if err == nil {
				err = errors.New("listener error event")
			}
			el.logger.Errorf("unable to accept TCP connection -> %v", err)
			ln.errReported = true
		}
	}

	for {
		fd, remote, err := socket.Accept(ln.fd)
		if err != nil {
			if errors.IsTemporary(err) {
				return
			}
			el.stats.AcceptErrors.Inc()
			el.logger.Errorf("unable to accept TCP connection -> %v", err)
			return
		}
		ln.errReported = false

		c := newConnection(el)
		c.open(fd, remote)
		if err = c.startRead(); err != nil {
			el.logger.Errorf("unable to start reading from TCP connection -> %v", err)
			c.close()
		}
	}
}

func (ln *Listener) close() {
	if err := ln.loop.poller.Delete(ln.fd); err != nil {
		ln.loop.logger.Debugf("listener unregister -> %v", err)
	}
	if err := socket.Close(ln.fd); err != nil {
		ln.loop.logger.Debugf("listener close -> %v", err)
	}
	ln.fd = -1
}

//go:build linux
// +build linux

package loop

import (
	"io"
	"net"

	"github.com/eapache/queue"

	"github.com/emove/echoloop/internal/buffer"
	"github.com/emove/echoloop/internal/conn"
	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/internal/outbound"
	"github.com/emove/echoloop/internal/reactor"
	"github.com/emove/echoloop/internal/socket"
)

var _ conn.Conn = (*Connection)(nil)

// Connection is one accepted peer. Every method runs on the loop goroutine.
type Connection struct {
	loop     *EventLoop
	id       uint64
	fd       int
	remote   net.Addr
	state    conn.State

	interest reactor.EventType
	writes   *queue.Queue // *outbound.Request, in submission order
	writeErr error
	cause    error
}

func newConnection(el *EventLoop) *Connection {
	return &Connection{
		loop:   el,
		fd:     -1,
		state:  conn.Accepting,
		writes: queue.New(),
	}
}

func (c *Connection) ID() uint64 {
	return c.id
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.remote
}

func (c *Connection) State() conn.State {
	return c.state
}

// Pending is the number of write requests queued on the socket.
func (c *Connection) Pending() int {
	return c.writes.Length()
}

// open takes ownership of an accepted fd and exposes the connection.
func (c *Connection) open(fd int, remote *net.TCPAddr) {
	el := c.loop
	el.nextID++
	c.id = el.nextID
	c.fd = fd
	c.remote = remote
	c.state = conn.Open

	el.conns[c.id] = c
	el.stats.Accepted.Inc()
	el.stats.Live.Inc()
	el.logger.Debugf("connection %d accepted from %s", c.id, remote)
	el.hooks.FireOpen(c)
}

func (c *Connection) startRead() error {
	if err := c.loop.poller.Add(c.fd, reactor.EventRead, c.onEvent); err != nil {
		return err
	}
	c.interest = reactor.EventRead
	return nil
}

func (c *Connection) onEvent(_ int, ev reactor.EventType) {
	if ev&(reactor.EventRead|reactor.EventError) != 0 {
		c.onReadable()
	}
	if ev&reactor.EventWrite != 0 && c.state == conn.Open {
		c.flush()
	}
}

// ====================================== read path ============================================ //

// onAllocate hands out the loop's scratch region whatever size is suggested.
// The region goes back to the loop when the read callback returns.
func (c *Connection) onAllocate(_ int) []byte {
	return c.loop.scratch.Checkout()
}

func (c *Connection) onReadable() {
	if c.state != conn.Open {
		return
	}
	p := c.onAllocate(c.loop.scratch.Cap())
	defer c.loop.scratch.Return()

	n, err := socket.Read(c.fd, p)
	switch {
	case err != nil && errors.IsTemporary(err):
		return
	case err != nil:
		c.onRead(nil, err)
	case n == 0:
		c.onRead(nil, io.EOF)
	default:
		c.onRead(p[:n], nil)
	}
}

// onRead handles one read result. p aliases the scratch region and is only
// valid until onRead returns.
func (c *Connection) onRead(p []byte, err error) {
	if err != nil {
		if !errors.IsEOF(err) {
			c.loop.stats.ReadErrors.Inc()
			c.loop.logger.Errorf("connection reading error -> %v", err)
			c.cause = err
		}
		c.close()
		return
	}
	c.onData(p)
}

func (c *Connection) onData(p []byte) {
	c.loop.stats.BytesIn.Add(int64(len(p)))
	c.submitWrite(buffer.From(p))
}

// ====================================== write path ============================================ //

// submitWrite queues buf for transmission behind any earlier writes.
func (c *Connection) submitWrite(buf *buffer.Buffer) {
	req := outbound.NewRequest(buf, c.onWriteComplete)
	c.loop.stats.WritesSubmitted.Inc()

	if c.writeErr != nil {
		err := c.writeErr
		c.loop.enqueue(func() { req.Complete(err) })
		return
	}
	c.writes.Add(req)
	if err := c.setInterest(reactor.EventRead | reactor.EventWrite); err != nil {
		c.failWrites(err)
	}
}

// onWriteComplete runs exactly once per request; the payload is already
// released. A failure is left for the read side to notice.
func (c *Connection) onWriteComplete(req *outbound.Request, err error) {
	c.loop.stats.WritesCompleted.Inc()
	if err != nil {
		c.loop.stats.WritesFailed.Inc()
		c.loop.logger.Debugf("connection %d write of %d bytes failed after %d -> %v", c.id, req.Size(), req.Written(), err)
	}
}

// writeQueued writes queued requests in order until the queue is empty or
// a write fails. A would-block failure is temporary.
func (c *Connection) writeQueued() error {
	for c.writes.Length() > 0 {
		req := c.writes.Peek().(*outbound.Request)
		n, err := socket.Write(c.fd, req.Remaining())
		if err != nil {
			return err
		}
		c.loop.stats.BytesOut.Add(int64(n))
		if req.Advance(n) {
			c.writes.Remove()
			req.Complete(nil)
		}
	}
	return nil
}

func (c *Connection) flush() {
	err := c.writeQueued()
	switch {
	case err == nil:
		if err = c.setInterest(reactor.EventRead); err != nil {
			c.loop.logger.Debugf("connection %d disarm write -> %v", c.id, err)
		}
	case errors.IsTemporary(err):
	default:
		c.failWrites(err)
	}
}

// failWrites completes every queued request with err and stops watching
// for writability. Later submissions complete with the same err.
func (c *Connection) failWrites(err error) {
	c.writeErr = err
	c.completeQueued(err)
	if c.state == conn.Open {
		_ = c.setInterest(reactor.EventRead)
	}
}

func (c *Connection) completeQueued(err error) {
	for c.writes.Length() > 0 {
		req := c.writes.Remove().(*outbound.Request)
		req.Complete(err)
	}
}

func (c *Connection) setInterest(ev reactor.EventType) error {
	if c.interest == ev {
		return nil
	}
	if err := c.loop.poller.Modify(c.fd, ev); err != nil {
		return err
	}
	c.interest = ev
	return nil
}

// ====================================== close path ============================================ //

// close requests the handle be released. Only the first call has an effect;
// the release itself happens in onClosed on a later iteration.
func (c *Connection) close() {
	if c.state == conn.Closing || c.state == conn.Closed {
		return
	}
	if c.interest != 0 {
		if err := c.loop.poller.Delete(c.fd); err != nil {
			c.loop.logger.Debugf("connection %d unregister -> %v", c.id, err)
		}
		c.interest = 0
	}
	c.state = conn.Closing
	c.loop.enqueue(c.onClosed)
}

// onClosed is the close completion: queued writes get one last chance to go
// out, whatever is left is abandoned, and the fd is closed.
func (c *Connection) onClosed() {
	if c.state != conn.Closing {
		return
	}
	if c.fd >= 0 {
		if c.writeErr == nil {
			if err := c.writeQueued(); err != nil && !errors.IsTemporary(err) {
				c.loop.logger.Debugf("connection %d final flush -> %v", c.id, err)
				c.completeQueued(err)
			}
		}
		if err := socket.Close(c.fd); err != nil {
			c.loop.logger.Debugf("connection %d close -> %v", c.id, err)
		}
		c.fd = -1
	}
	c.completeQueued(errors.ErrWriteAbandoned)
	c.state = conn.Closed

	el := c.loop
	delete(el.conns, c.id)
	el.stats.Live.Dec()
	el.stats.Closed.Inc()
	el.logger.Debugf("connection %d from %s closed", c.id, c.remote)
	el.hooks.FireClose(c, c.cause)
}

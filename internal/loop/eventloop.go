//go:build linux
// +build linux

// Package loop is the single-threaded echo reactor: one goroutine owns the
// poller, the listening socket and every connection, and each callback runs
// to completion before the next is dispatched.
package loop

import (
	"net"
	"sync/atomic"

	"github.com/eapache/queue"

	"github.com/emove/echoloop/internal/buffer"
	"github.com/emove/echoloop/internal/conn"
	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/internal/reactor"
	"github.com/emove/echoloop/internal/stats"
	"github.com/emove/echoloop/internal/utils/recovery"
	"github.com/emove/echoloop/log"
)

// DefaultBacklog is the accept queue depth requested from the kernel.
const DefaultBacklog = 1000

// Options configures an EventLoop.
type Options struct {
	// ScratchSize caps the bytes delivered by one read event.
	ScratchSize int
	// Logger receives diagnostics; nil uses the global logger.
	Logger log.Logger
	Hooks  conn.Hooks
}

// EventLoop owns the poller and the listener and drives every callback.
type EventLoop struct {
	poller   reactor.Poller
	scratch  *buffer.Scratch
	deferred *queue.Queue // func(), run after the current dispatch batch
	listener *Listener
	conns    map[uint64]*Connection
	nextID   uint64

	stats  *stats.Counters
	hooks  conn.Hooks
	logger log.FullLogger

	running  int32
	stopping int32
	stopped  bool
}

// New builds the reactor. An error means the platform cannot run the loop.
func New(opts Options) (*EventLoop, error) {
	poller, err := reactor.New()
	if err != nil {
		return nil, err
	}
	return &EventLoop{
		poller:   poller,
		scratch:  buffer.NewScratch(opts.ScratchSize),
		deferred: queue.New(),
		conns:    make(map[uint64]*Connection),
		stats:    &stats.Counters{},
		hooks:    opts.Hooks,
		logger:   log.NewFullLogger(opts.Logger),
	}, nil
}

// Listen binds addr and starts accepting with the given backlog. It returns
// a *errors.StartupError on failure.
func (el *EventLoop) Listen(addr string, backlog int) (net.Addr, error) {
	if el.listener != nil {
		return nil, errors.New("loop: already listening on %s", el.listener.addr)
	}
	ln, err := newListener(el, addr, backlog)
	if err != nil {
		return nil, err
	}
	el.listener = ln
	el.logger.Infof("listening on %s, backlog %d", ln.addr, backlog)
	return ln.addr, nil
}

// Run dispatches events until no handle is left: the listener is gone and
// every connection has closed. That only happens after Stop.
func (el *EventLoop) Run() error {
	if !atomic.CompareAndSwapInt32(&el.running, 0, 1) {
		return errors.New("loop: already running")
	}
	for el.alive() {
		timeout := -1
		if el.deferred.Length() > 0 {
			timeout = 0
		}
		if _, err := el.poller.Wait(timeout); err != nil {
			el.logger.Errorf("poller wait -> %v", err)
			return err
		}
		if !el.stopped && atomic.LoadInt32(&el.stopping) == 1 {
			el.shutdown()
		}
		el.runDeferred()
	}
	return el.poller.Close()
}

// Stop asks the loop to close the listener and every connection. Safe from
// any goroutine; Run returns once everything has been released.
func (el *EventLoop) Stop() {
	if atomic.CompareAndSwapInt32(&el.stopping, 0, 1) {
		if err := el.poller.Wake(); err != nil {
			el.logger.Errorf("wake loop -> %v", err)
		}
	}
}

// Close releases the listener and the poller of a loop that never ran.
func (el *EventLoop) Close() error {
	if atomic.LoadInt32(&el.running) == 1 {
		el.Stop()
		return nil
	}
	if el.listener != nil {
		el.listener.close()
		el.listener = nil
	}
	return el.poller.Close()
}

// Stats returns the current counters.
func (el *EventLoop) Stats() stats.Snapshot {
	return el.stats.Snapshot()
}

// Addr is the bound address, nil before Listen.
func (el *EventLoop) Addr() net.Addr {
	if el.listener == nil {
		return nil
	}
	return el.listener.addr
}

func (el *EventLoop) alive() bool {
	return el.listener != nil || len(el.conns) > 0 || el.deferred.Length() > 0
}

// enqueue defers fn to after the current dispatch batch.
func (el *EventLoop) enqueue(fn func()) {
	el.deferred.Add(fn)
}

// runDeferred runs what was queued before it started; work queued by those
// functions waits for the next iteration.
func (el *EventLoop) runDeferred() {
	for n := el.deferred.Length(); n > 0; n-- {
		fn := el.deferred.Remove().(func())
		el.invoke(fn)
	}
}

func (el *EventLoop) invoke(fn func()) {
	defer recovery.Recover(func(err error) {
		el.logger.Errorf("deferred operation -> %v", err)
	})
	fn()
}

func (el *EventLoop) shutdown() {
	el.stopped = true
	if el.listener != nil {
		el.listener.close()
		el.listener = nil
	}
	for _, c := range el.conns {
		c.close()
	}
	el.logger.Infof("loop stopping, %d connections closing", len(el.conns))
}

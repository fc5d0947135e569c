//go:build unix

// Package gnetloop runs the echo semantics on a single gnet event loop.
package gnetloop

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/gnet/v2"
	"github.com/panjf2000/gnet/v2/pkg/logging"
	"golang.org/x/sys/unix"

	"github.com/emove/echoloop/internal/buffer"
	"github.com/emove/echoloop/internal/conn"
	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/internal/outbound"
	"github.com/emove/echoloop/internal/stats"
	"github.com/emove/echoloop/log"
)

var _ logging.Logger = log.FullLogger(nil)

// Options mirrors loop.Options.
type Options struct {
	ScratchSize int
	Logger      log.Logger
	Hooks       conn.Hooks
}

// Engine is an echo server on gnet with one event loop. gnet picks the
// accept backlog itself.
type Engine struct {
	gnet.BuiltinEventEngine

	scratch int
	hooks   conn.Hooks
	logger  log.FullLogger
	stats   *stats.Counters
	nextID  uint64

	mu     sync.Mutex
	eng    gnet.Engine
	addr   *net.TCPAddr
	booted chan struct{}
	done   chan error
	result error

	started  int32
	stopping int32
}

func New(opts Options) *Engine {
	size := opts.ScratchSize
	if size <= 0 {
		size = buffer.DefaultScratchSize
	}
	return &Engine{
		scratch: size,
		hooks:   opts.Hooks,
		logger:  log.NewFullLogger(opts.Logger),
		stats:   &stats.Counters{},
		booted:  make(chan struct{}),
		done:    make(chan error, 1),
	}
}

// Listen starts gnet on addr and returns once it accepts connections. It
// returns a *errors.StartupError on failure.
func (e *Engine) Listen(addr string, _ int) (net.Addr, error) {
	if !atomic.CompareAndSwapInt32(&e.started, 0, 1) {
		return nil, errors.New("gnetloop: already listening")
	}
	port := portOf(addr)
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return nil, &errors.StartupError{Op: errors.OpResolve, Port: port, Err: err}
	}

	go func() {
		e.done <- gnet.Run(e, "tcp://"+addr,
			gnet.WithMulticore(false),
			gnet.WithNumEventLoop(1),
			gnet.WithReadBufferCap(e.scratch),
			gnet.WithReuseAddr(true),
			gnet.WithTCPNoDelay(gnet.TCPNoDelay),
			gnet.WithLogger(e.logger),
		)
	}()

	select {
	case <-e.booted:
		e.logger.Infof("listening on %s, gnet engine", e.addr)
		return e.addr, nil
	case err := <-e.done:
		if err == nil {
			err = errors.ErrServerClosed
		}
		e.mu.Lock()
		e.done, e.result = nil, err
		e.mu.Unlock()
		return nil, &errors.StartupError{Op: startupOp(err), Port: port, Err: err}
	}
}

// Run blocks until the engine has stopped.
func (e *Engine) Run() error {
	if atomic.LoadInt32(&e.started) == 0 {
		return errors.New("gnetloop: not listening")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done != nil {
		e.result = <-e.done
		e.done = nil
	}
	if atomic.LoadInt32(&e.stopping) == 1 {
		return nil
	}
	return e.result
}

// Stop shuts the engine down, closing every connection.
func (e *Engine) Stop() {
	if atomic.LoadInt32(&e.started) == 0 || !atomic.CompareAndSwapInt32(&e.stopping, 0, 1) {
		return
	}
	select {
	case <-e.booted:
	default:
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.eng.Stop(ctx); err != nil {
		e.logger.Errorf("stop gnet engine -> %v", err)
	}
}

// Close stops the engine and waits for it.
func (e *Engine) Close() error {
	if atomic.LoadInt32(&e.started) == 0 {
		return nil
	}
	e.Stop()
	return e.Run()
}

func (e *Engine) Stats() stats.Snapshot {
	return e.stats.Snapshot()
}

func (e *Engine) Addr() net.Addr {
	select {
	case <-e.booted:
		return e.addr
	default:
		return nil
	}
}

// ====================================== gnet callbacks ============================================ //

func (e *Engine) OnBoot(eng gnet.Engine) gnet.Action {
	e.eng = eng
	addr, err := listenerAddr(eng)
	if err != nil {
		e.logger.Errorf("unable to read bound address -> %v", err)
		return gnet.Shutdown
	}
	e.addr = addr
	close(e.booted)
	return gnet.None
}

func (e *Engine) OnShutdown(_ gnet.Engine) {
	e.logger.Infof("gnet engine stopping, %d connections open", e.stats.Live.Value())
}

func (e *Engine) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	e.nextID++
	gc := &connection{id: e.nextID, remote: c.RemoteAddr(), state: conn.Open}
	c.SetContext(gc)
	e.stats.Accepted.Inc()
	e.stats.Live.Inc()
	e.logger.Debugf("connection %d accepted from %s", gc.id, gc.remote)
	e.hooks.FireOpen(gc)
	return nil, gnet.None
}

func (e *Engine) OnTraffic(c gnet.Conn) gnet.Action {
	p, err := c.Next(-1)
	if err != nil {
		e.stats.ReadErrors.Inc()
		e.logger.Errorf("connection reading error -> %v", err)
		return gnet.Close
	}
	e.stats.BytesIn.Add(int64(len(p)))
	for len(p) > 0 {
		n := len(p)
		if n > e.scratch {
			n = e.scratch
		}
		e.write(c, buffer.From(p[:n]))
		p = p[n:]
	}
	return gnet.None
}

func (e *Engine) OnClose(c gnet.Conn, err error) gnet.Action {
	gc, ok := c.Context().(*connection)
	if !ok {
		return gnet.None
	}
	// gnet closes with io.EOF when the peer ends the stream
	var cause error
	if err != nil && !errors.IsEOF(err) {
		e.stats.ReadErrors.Inc()
		e.logger.Errorf("connection reading error -> %v", err)
		cause = err
	}
	gc.state = conn.Closed
	e.stats.Live.Dec()
	e.stats.Closed.Inc()
	e.logger.Debugf("connection %d from %s closed", gc.id, gc.remote)
	e.hooks.FireClose(gc, cause)
	return gnet.None
}

// write hands buf to gnet, which either sends it or keeps it in its own
// outbound buffer, so the request completes when Write returns.
func (e *Engine) write(c gnet.Conn, buf *buffer.Buffer) {
	req := outbound.NewRequest(buf, e.onWriteComplete)
	e.stats.WritesSubmitted.Inc()
	n, err := c.Write(req.Remaining())
	e.stats.BytesOut.Add(int64(n))
	req.Advance(n)
	req.Complete(err)
}

func (e *Engine) onWriteComplete(_ *outbound.Request, err error) {
	e.stats.WritesCompleted.Inc()
	if err != nil {
		e.stats.WritesFailed.Inc()
	}
}

// connection is the hook view of a gnet connection.
type connection struct {
	id     uint64
	remote net.Addr
	state  conn.State
}

func (c *connection) ID() uint64 {
	return c.id
}

func (c *connection) RemoteAddr() net.Addr {
	return c.remote
}

func (c *connection) State() conn.State {
	return c.state
}

func listenerAddr(eng gnet.Engine) (*net.TCPAddr, error) {
	fd, err := eng.Dup()
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, err
	}
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: append(net.IP(nil), sa.Addr[:]...), Port: sa.Port}, nil
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: append(net.IP(nil), sa.Addr[:]...), Port: sa.Port}, nil
	}
	return nil, errors.New("unexpected listener address %T", sa)
}

func startupOp(err error) string {
	switch {
	case errors.Is(err, unix.EADDRINUSE), errors.Is(err, unix.EACCES), errors.Is(err, unix.EADDRNOTAVAIL):
		return errors.OpBind
	default:
		return errors.OpListen
	}
}

func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return port
}

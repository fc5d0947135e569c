// Package echoloop is a single-threaded, event-driven TCP echo server:
// every byte a peer sends is written back to that peer, in order.
package echoloop

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/log"
)

// Server is an echo server bound to one address.
type Server struct {
	addr   string
	ops    serverOptions
	logger log.FullLogger

	mu     sync.Mutex
	engine engine
	served chan struct{}
	err    error
	closed bool
}

// NewServer creates an echo server. addr is host:port; a missing host
// listens on every interface and a missing port uses the default (8888).
func NewServer(addr string, op ...Option) *Server {
	ops := defaultServerOptions
	ops.hooks.OnOpen = append([]OnConnection(nil), defaultServerOptions.hooks.OnOpen...)
	ops.hooks.OnClose = append([]OnConnectionClosed(nil), defaultServerOptions.hooks.OnClose...)

	for _, o := range op {
		o(&ops)
	}

	srv := &Server{ops: ops, logger: log.NewFullLogger(ops.logger)}
	srv.addr = parseAddr(addr, &srv.ops)
	return srv
}

// Listen builds the engine and binds the address. Failures are
// *StartupError values naming the step and the port.
func (srv *Server) Listen() error {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return srv.listenLocked()
}

func (srv *Server) listenLocked() error {
	if srv.closed {
		return ErrServerClosed
	}
	if srv.engine != nil {
		return nil
	}
	eng, err := newEngine(srv.ops.engine, engineOptions{
		scratchSize: srv.ops.scratchSize,
		logger:      srv.ops.logger,
		hooks:       srv.ops.hooks,
	})
	if err != nil {
		return err
	}
	if _, err = eng.Listen(srv.addr, defaultBacklog); err != nil {
		_ = eng.Close()
		return err
	}
	srv.engine = eng
	return nil
}

// Serve runs the event loop until Shutdown. It listens first if Listen has
// not been called.
func (srv *Server) Serve() error {
	srv.mu.Lock()
	if err := srv.listenLocked(); err != nil {
		srv.mu.Unlock()
		return err
	}
	if srv.served != nil {
		srv.mu.Unlock()
		return errors.New("echoloop: server already serving")
	}
	served := make(chan struct{})
	srv.served = served
	eng := srv.engine
	srv.mu.Unlock()

	err := eng.Run()

	srv.mu.Lock()
	srv.err = err
	srv.mu.Unlock()
	close(served)
	if err != nil {
		return err
	}
	return ErrServerClosed
}

// ListenAndServe is Listen then Serve.
func (srv *Server) ListenAndServe() error {
	if err := srv.Listen(); err != nil {
		return err
	}
	return srv.Serve()
}

// Shutdown stops the engine, which closes the listener and every
// connection, waits for Serve to return and runs the shutdown hooks.
func (srv *Server) Shutdown(ctx context.Context) error {
	srv.mu.Lock()
	if srv.closed {
		srv.mu.Unlock()
		return nil
	}
	srv.closed = true
	eng, served := srv.engine, srv.served
	srv.mu.Unlock()

	var err error
	switch {
	case eng == nil:
	case served == nil:
		err = eng.Close()
	default:
		eng.Stop()
		select {
		case <-served:
			srv.mu.Lock()
			err = srv.err
			srv.mu.Unlock()
		case <-ctx.Done():
			err = ctx.Err()
		}
	}
	if err != nil {
		srv.logger.Errorf("shutdown %s -> %v", srv.addr, err)
	}
	for _, hook := range srv.ops.shutdownHooks {
		hook(ctx, err)
	}
	return err
}

// Addr is the bound address, nil until Listen succeeds.
func (srv *Server) Addr() net.Addr {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.engine == nil {
		return nil
	}
	return srv.engine.Addr()
}

// Stats returns the engine counters, zero before Listen.
func (srv *Server) Stats() Stats {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.engine == nil {
		return Stats{}
	}
	return srv.engine.Stats()
}

func parseAddr(addr string, ops *serverOptions) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil && !strings.Contains(addr, ":") {
		host, port = addr, ""
	}

	if len(host) == 0 {
		host = ops.addr
	}

	if len(port) == 0 {
		port = ops.port
	}

	return net.JoinHostPort(host, port)
}

func (srv *Server) String() string {
	return fmt.Sprintf("echoloop(%s, %s)", srv.addr, srv.ops.engine)
}

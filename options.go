package echoloop

import (
	"context"

	"github.com/emove/echoloop/internal/conn"
	"github.com/emove/echoloop/log"
)

type (
	// OnConnection is called on the event loop once a peer is accepted.
	OnConnection = conn.OnOpen
	// OnConnectionClosed is called on the event loop once a connection has
	// been released. err is the read error that ended it, if any.
	OnConnectionClosed = conn.OnClose
	// ShutdownHook runs after the engine has stopped; err is what Serve returned.
	ShutdownHook func(ctx context.Context, err error)
)

var defaultServerOptions = serverOptions{
	addr:   "0.0.0.0",
	port:   "8888",
	engine: EngineEpoll,
}

type serverOptions struct {
	addr          string
	port          string
	engine        Engine
	scratchSize   int
	logger        log.Logger
	hooks         conn.Hooks
	shutdownHooks []ShutdownHook
}

type Option func(options *serverOptions)

// WithEngine selects the event engine, EngineEpoll by default.
func WithEngine(engine Engine) Option {
	return func(ops *serverOptions) {
		ops.engine = engine
	}
}

// WithScratchSize sets the capacity of the shared read region, which caps
// the bytes echoed per write request. Non-positive means 65000.
func WithScratchSize(size int) Option {
	return func(ops *serverOptions) {
		ops.scratchSize = size
	}
}

// WithLogger sets the logger for diagnostics, the global logger by default.
func WithLogger(logger log.Logger) Option {
	return func(ops *serverOptions) {
		ops.logger = logger
	}
}

// WithDefaultPort sets the port used when the address has none.
func WithDefaultPort(port string) Option {
	return func(ops *serverOptions) {
		ops.port = port
	}
}

// WithOnConnection adds connection accepted hooks
func WithOnConnection(onConnection ...OnConnection) Option {
	return func(ops *serverOptions) {
		ops.hooks.OnOpen = append(ops.hooks.OnOpen, onConnection...)
	}
}

// WithOnConnectionClosed adds connection closed hooks
func WithOnConnectionClosed(onClosed ...OnConnectionClosed) Option {
	return func(ops *serverOptions) {
		ops.hooks.OnClose = append(ops.hooks.OnClose, onClosed...)
	}
}

func WithShutdownHooks(hooks ...ShutdownHook) Option {
	return func(ops *serverOptions) {
		ops.shutdownHooks = append(ops.shutdownHooks, hooks...)
	}
}

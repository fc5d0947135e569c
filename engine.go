package echoloop

import (
	"net"
	"strings"

	"github.com/emove/echoloop/internal/conn"
	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/internal/stats"
	"github.com/emove/echoloop/log"
)

// Engine names an event engine implementation.
type Engine string

const (
	// EngineEpoll is the built-in epoll reactor. Linux only.
	EngineEpoll Engine = "epoll"
	// EngineGnet runs on a single gnet event loop.
	EngineGnet Engine = "gnet"
)

// ParseEngine maps a name to an Engine, case-insensitively.
func ParseEngine(name string) (Engine, error) {
	switch e := Engine(strings.ToLower(name)); e {
	case EngineEpoll, EngineGnet:
		return e, nil
	}
	return "", errors.New("unknown engine %q, want %s or %s", name, EngineEpoll, EngineGnet)
}

// engine is what the server drives; loop.EventLoop and gnetloop.Engine.
type engine interface {
	Listen(addr string, backlog int) (net.Addr, error)
	Run() error
	Stop()
	Close() error
	Stats() stats.Snapshot
	Addr() net.Addr
}

type engineOptions struct {
	scratchSize int
	logger      log.Logger
	hooks       conn.Hooks
}

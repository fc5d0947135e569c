//go:build unix && !linux

package echoloop

import (
	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/internal/gnetloop"
)

const defaultBacklog = 1000

func newEngine(kind Engine, opts engineOptions) (engine, error) {
	if kind != EngineGnet {
		return nil, errors.ErrUnsupported
	}
	return gnetloop.New(gnetloop.Options{
		ScratchSize: opts.scratchSize,
		Logger:      opts.logger,
		Hooks:       opts.hooks,
	}), nil
}

//go:build linux

package echoloop

import (
	"github.com/emove/echoloop/internal/gnetloop"
	"github.com/emove/echoloop/internal/loop"
)

const defaultBacklog = loop.DefaultBacklog

func newEngine(kind Engine, opts engineOptions) (engine, error) {
	if kind == EngineGnet {
		return gnetloop.New(gnetloop.Options{
			ScratchSize: opts.scratchSize,
			Logger:      opts.logger,
			Hooks:       opts.hooks,
		}), nil
	}
	el, err := loop.New(loop.Options{
		ScratchSize: opts.scratchSize,
		Logger:      opts.logger,
		Hooks:       opts.hooks,
	})
	if err != nil {
		return nil, err
	}
	return el, nil
}

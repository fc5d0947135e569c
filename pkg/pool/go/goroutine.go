// Package _go is the process-wide goroutine pool, backed by ants.
package _go

import (
	"runtime/debug"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/emove/echoloop/log"
)

var (
	// DefaultAntsPoolSize sets up the capacity of worker pool, 256 * 1024.
	DefaultAntsPoolSize = 1 << 18
)

const (
	// ExpiryDuration is the interval time to clean up those expired workers.
	ExpiryDuration = 10 * time.Second

	// Nonblocking decides what to do when submitting a new task to a full worker pool: waiting for a available worker
	// or returning an error directly.
	Nonblocking = true
)

type logger struct {
}

func (*logger) Printf(format string, a ...interface{}) {
	log.Errorf(format, a...)
}

func init() {
	// It releases the default pool from ants.
	ants.Release()
}

// Pool is the alias of ants.Pool.
type Pool = ants.Pool

var global *Pool

// Init instantiates a non-blocking pool of the given capacity, replacing any
// previous one. size <= 0 uses DefaultAntsPoolSize.
func Init(size int) error {
	if size <= 0 {
		size = DefaultAntsPoolSize
	}
	options := ants.Options{
		ExpiryDuration: ExpiryDuration,
		Nonblocking:    Nonblocking,
		PanicHandler: func(err interface{}) {
			log.Errorf("panic on worker: %v,\n %s", err, string(debug.Stack()))
		},
		Logger: &logger{},
	}
	p, err := ants.NewPool(size, ants.WithOptions(options))
	if err != nil {
		return err
	}
	if global != nil {
		global.Release()
	}
	global = p
	return nil
}

// Submit runs task on the pool, or on a fresh goroutine when there is no
// pool or it is full.
func Submit(task func()) {
	if global != nil {
		err := global.Submit(task)
		if err == nil {
			return
		}
		log.Warnw("msg", "goroutine pool refused task", "err", err)
	}
	go task()
}

// Running is the number of busy workers.
func Running() int {
	if global == nil {
		return 0
	}
	return global.Running()
}

func Release() {
	if global != nil {
		global.Release()
		global = nil
	}
}

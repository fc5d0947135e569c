package recovery

import (
	"runtime/debug"

	"github.com/emove/echoloop/internal/errors"
)

// Do runs fn and turns a panic into an error carrying the stack.
func Do(fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.New("panic: %v\n stack: %s", errors.AsError(p), string(debug.Stack()))
		}
	}()

	return fn()
}

// Recover must be deferred directly. It hands a recovered panic to fn.
func Recover(fn func(err error)) {
	if p := recover(); p != nil {
		err := errors.New("panic error: %v\n stack: %s", errors.AsError(p), string(debug.Stack()))
		fn(err)
	}
}

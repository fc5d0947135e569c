package log

import (
	"context"
	"errors"
	"fmt"
	"os"
)

var (
	ErrKvsNotInPaired = errors.New("kvs must appear in pairs")
	ErrContextIsNil   = errors.New("context must be non-nil")
)

var (
	defaultLogger, _ = With(NewStdLogger(os.Stderr), "ts", DefaultTimestamp)
	DefaultMsgKey    = "msg"
)

// Logger defines logger interface
// inspired by https://github.com/go-kratos/kratos/blob/main/log
type Logger interface {
	Log(level Level, kvs ...interface{})
}

// FullLogger is a printf style view over a Logger.
// Its method set is also what gnet expects from a logger.
type FullLogger interface {
	Logger

	Debugf(format string, v ...interface{})
	Debugw(kvs ...interface{})

	Infof(format string, v ...interface{})
	Infow(kvs ...interface{})

	Warnf(format string, v ...interface{})
	Warnw(kvs ...interface{})

	Errorf(format string, v ...interface{})
	Errorw(kvs ...interface{})

	Fatalf(format string, v ...interface{})
}

var _ Logger = (*logger)(nil)

type logger struct {
	l              Logger
	ctx            context.Context
	prefixes       []interface{}
	containsValuer bool
}

// Log implements Logger
func (l *logger) Log(level Level, kvs ...interface{}) {
	if filtered(level) {
		return
	}
	keyvals := make([]interface{}, 0, len(l.prefixes)+len(kvs))
	keyvals = append(keyvals, l.prefixes...)
	if l.containsValuer {
		bindValues(l.ctx, keyvals)
	}
	keyvals = append(keyvals, kvs...)
	l.l.Log(level, keyvals...)
}

// With returns a Logger that prepends kvs to every entry.
func With(l Logger, kvs ...interface{}) (Logger, error) {
	if len(kvs)&1 != 0 {
		return l, ErrKvsNotInPaired
	}
	d, ok := l.(*logger)
	if !ok {
		return &logger{
			l:              l,
			ctx:            context.Background(),
			prefixes:       kvs,
			containsValuer: containsValuer(kvs),
		}, nil
	}

	prefix := make([]interface{}, 0, len(d.prefixes)+len(kvs))
	prefix = append(prefix, d.prefixes...)
	prefix = append(prefix, kvs...)

	return &logger{
		l:              d.l,
		ctx:            d.ctx,
		prefixes:       prefix,
		containsValuer: d.containsValuer || containsValuer(kvs),
	}, nil
}

// WithContext returns a shallow copy of l with its context changed
// to ctx. The provided ctx must be non-nil.
func WithContext(ctx context.Context, l Logger) (Logger, error) {
	if ctx == nil {
		return l, ErrContextIsNil
	}
	d, ok := l.(*logger)
	if !ok {
		return &logger{l: l, ctx: ctx}, nil
	}
	return &logger{
		l:              d.l,
		ctx:            ctx,
		prefixes:       d.prefixes,
		containsValuer: d.containsValuer,
	}, nil
}

// NewFullLogger wraps l. A nil l resolves to the global logger at call time.
func NewFullLogger(l Logger) FullLogger {
	if fl, ok := l.(FullLogger); ok {
		return fl
	}
	return &fullLogger{l: l}
}

var _ FullLogger = (*fullLogger)(nil)

type fullLogger struct {
	l Logger
}

func (l *fullLogger) logger() Logger {
	if l.l == nil {
		return global
	}
	return l.l
}

func (l *fullLogger) Log(level Level, kvs ...interface{}) {
	l.logger().Log(level, kvs...)
}

func (l *fullLogger) Debugf(format string, v ...interface{}) {
	l.logger().Log(LevelDebug, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func (l *fullLogger) Debugw(kvs ...interface{}) {
	l.logger().Log(LevelDebug, kvs...)
}

func (l *fullLogger) Infof(format string, v ...interface{}) {
	l.logger().Log(LevelInfo, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func (l *fullLogger) Infow(kvs ...interface{}) {
	l.logger().Log(LevelInfo, kvs...)
}

func (l *fullLogger) Warnf(format string, v ...interface{}) {
	l.logger().Log(LevelWarn, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func (l *fullLogger) Warnw(kvs ...interface{}) {
	l.logger().Log(LevelWarn, kvs...)
}

func (l *fullLogger) Errorf(format string, v ...interface{}) {
	l.logger().Log(LevelError, DefaultMsgKey, fmt.Sprintf(format, v...))
}

func (l *fullLogger) Errorw(kvs ...interface{}) {
	l.logger().Log(LevelError, kvs...)
}

func (l *fullLogger) Fatalf(format string, v ...interface{}) {
	l.logger().Log(LevelFatal, DefaultMsgKey, fmt.Sprintf(format, v...))
	exit(1)
}

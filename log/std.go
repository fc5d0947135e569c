package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

var _ Logger = (*stdLogger)(nil)

type stdLogger struct {
	mu   sync.Mutex
	w    io.Writer
	pool *sync.Pool
}

// NewStdLogger returns a Logger writing one "LEVEL k=v k=v" line per entry to w.
func NewStdLogger(w io.Writer) Logger {
	return &stdLogger{
		w: w,
		pool: &sync.Pool{
			New: func() interface{} {
				return new(bytes.Buffer)
			},
		},
	}
}

// Log prints the kv pairs. An odd trailing key is paired with "KEYVALS UNPAIRED".
func (l *stdLogger) Log(level Level, kvs ...interface{}) {
	if len(kvs) == 0 || filtered(level) {
		return
	}
	if (len(kvs) & 1) == 1 {
		kvs = append(kvs, "KEYVALS UNPAIRED")
	}
	buf := l.pool.Get().(*bytes.Buffer)
	buf.WriteString(level.String())
	for i := 0; i < len(kvs); i += 2 {
		_, _ = fmt.Fprintf(buf, " %s=%v", kvs[i], kvs[i+1])
	}
	buf.WriteByte('\n')

	l.mu.Lock()
	_, _ = l.w.Write(buf.Bytes())
	l.mu.Unlock()

	buf.Reset()
	l.pool.Put(buf)
}

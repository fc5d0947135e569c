//go:build unix

package gnetloop

import (
	"bytes"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emove/echoloop/internal/conn"
	"github.com/emove/echoloop/internal/errors"
	"github.com/emove/echoloop/log"
	"github.com/emove/echoloop/test/fake_client"
)

type discard struct{}

func (discard) Log(log.Level, ...interface{}) {}

type recorder struct {
	mu     sync.Mutex
	errors []string
}

func (r *recorder) Log(level log.Level, kvs ...interface{}) {
	if level < log.LevelError {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, strings.TrimSpace(fmt.Sprintln(kvs...)))
}

func (r *recorder) logged() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

type causes struct {
	mu     sync.Mutex
	closed int
	errs   []error
}

func (c *causes) hook(_ conn.Conn, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	if err != nil {
		c.errs = append(c.errs, err)
	}
}

func (c *causes) snapshot() (int, []error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, append([]error(nil), c.errs...)
}

func startEngine(t *testing.T, opts Options) (*Engine, string) {
	if opts.Logger == nil {
		opts.Logger = discard{}
	}
	e := New(opts)
	addr, err := e.Listen("127.0.0.1:0", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, addr.String()
}

func TestEngine_Echo(t *testing.T) {
	var mu sync.Mutex
	var causes []error
	closed := 0
	e, addr := startEngine(t, Options{Hooks: conn.Hooks{OnClose: []conn.OnClose{func(_ conn.Conn, err error) {
		mu.Lock()
		defer mu.Unlock()
		closed++
		if err != nil {
			causes = append(causes, err)
		}
	}}}})

	c, err := fake_client.Dial(addr)
	require.NoError(t, err)
	for _, s := range []string{"hello", "world"} {
		got, err := c.Echo([]byte(s))
		require.NoError(t, err)
		assert.Equal(t, s, string(got))
	}
	require.NoError(t, c.Close())

	require.Eventually(t, func() bool {
		return e.Stats().Closed == 1
	}, 5*time.Second, 10*time.Millisecond)
	mu.Lock()
	assert.Equal(t, 1, closed)
	assert.Empty(t, causes)
	mu.Unlock()
	assert.EqualValues(t, 10, e.Stats().BytesOut)
}

func TestEngine_SmallScratchSplitsWrites(t *testing.T) {
	e, addr := startEngine(t, Options{ScratchSize: 16})

	c, err := fake_client.Dial(addr)
	require.NoError(t, err)
	defer c.Close()
	payload := bytes.Repeat([]byte("0123456789"), 10)
	got, err := c.Echo(payload)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.GreaterOrEqual(t, e.Stats().WritesCompleted, int64(len(payload)/16))
}

func TestEngine_ConcurrentClients(t *testing.T) {
	_, addr := startEngine(t, Options{})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := fake_client.Dial(addr)
			if err != nil {
				errs <- err
				return
			}
			defer c.Close()
			payload := []byte(fmt.Sprintf("client-%03d", i))
			got, err := c.Echo(payload)
			if err == nil && !bytes.Equal(payload, got) {
				err = fmt.Errorf("client %d got %q", i, got)
			}
			if err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestEngine_StopClosesConnections(t *testing.T) {
	e := New(Options{Logger: discard{}})
	addr, err := e.Listen("127.0.0.1:0", 0)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- e.Run() }()

	c, err := fake_client.Dial(addr.String())
	require.NoError(t, err)
	defer c.Close()
	_, err = c.Echo([]byte("x"))
	require.NoError(t, err)

	e.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("engine did not stop")
	}
	assert.NoError(t, c.WaitEOF())
}

func TestEngine_PortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	e := New(Options{Logger: discard{}})
	_, err = e.Listen(ln.Addr().String(), 0)
	require.Error(t, err)
	var se *errors.StartupError
	require.True(t, errors.As(err, &se))
	_, port, _ := net.SplitHostPort(ln.Addr().String())
	assert.Equal(t, port, se.Port)
	assert.Contains(t, err.Error(), port)
	assert.Nil(t, e.Addr())
}

func TestEngine_UnresolvableAddress(t *testing.T) {
	e := New(Options{Logger: discard{}})
	_, err := e.Listen("127.0.0.1:notaport", 0)
	var se *errors.StartupError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, errors.OpResolve, se.Op)
}

func TestEngine_PeerCloseIsNotAnError(t *testing.T) {
	rec := &recorder{}
	cs := &causes{}
	e, addr := startEngine(t, Options{Logger: rec, Hooks: conn.Hooks{OnClose: []conn.OnClose{cs.hook}}})

	c, err := fake_client.Dial(addr)
	require.NoError(t, err)
	_, err = c.Echo([]byte("bye"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.Eventually(t, func() bool {
		return e.Stats().Closed == 1
	}, 5*time.Second, 10*time.Millisecond)
	closed, errs := cs.snapshot()
	assert.Equal(t, 1, closed)
	assert.Empty(t, errs)
	assert.EqualValues(t, 0, e.Stats().ReadErrors)
	assert.Empty(t, rec.logged())
}

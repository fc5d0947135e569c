// Command echobench loads an echo server: every connection sends the same
// file every 100ms and drains whatever comes back.
//
//	echobench [-duration d] <addr> <connections> <file>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/emove/echoloop/internal/stats"
	"github.com/emove/echoloop/log"
	_go "github.com/emove/echoloop/pkg/pool/go"
)

const (
	sendInterval = 100 * time.Millisecond
	drainSize    = 64000
)

type totals struct {
	connected stats.Counter
	failed    stats.Counter
	sent      stats.Counter
	received  stats.Counter
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("echobench", flag.ContinueOnError)
	fs.SetOutput(stderr)
	duration := fs.Duration("duration", 0, "stop after this long, 0 runs until interrupted")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: echobench [flags] <addr> <connections> <file>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 3 {
		fs.Usage()
		return 2
	}
	addr := fs.Arg(0)
	conns, err := strconv.Atoi(fs.Arg(1))
	if err != nil || conns <= 0 {
		fmt.Fprintf(stderr, "echobench: connections count should be a positive number, got %q\n", fs.Arg(1))
		return 2
	}
	payload, err := os.ReadFile(fs.Arg(2))
	if err != nil {
		fmt.Fprintf(stderr, "echobench: unable to read given file -> %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	if err = _go.Init(2 * conns); err != nil {
		fmt.Fprintf(stderr, "echobench: %v\n", err)
		return 1
	}
	defer _go.Release()

	t := bench(ctx, addr, conns, payload)
	fmt.Fprintf(stdout, "connections %d/%d, sent %d bytes, received %d bytes\n",
		t.connected.Value(), conns, t.sent.Value(), t.received.Value())
	if t.connected.Value() == 0 {
		return 1
	}
	return 0
}

// bench runs conns connections until ctx is done.
func bench(ctx context.Context, addr string, conns int, payload []byte) *totals {
	t := &totals{}
	var wg sync.WaitGroup
	for i := 0; i < conns; i++ {
		wg.Add(1)
		_go.Submit(func() {
			defer wg.Done()
			runConnection(ctx, addr, payload, t)
		})
	}
	wg.Wait()
	return t
}

func runConnection(ctx context.Context, addr string, payload []byte, t *totals) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		t.failed.Inc()
		log.Errorf("unable to connect to %s -> %v", addr, err)
		return
	}
	t.connected.Inc()

	drained := make(chan struct{})
	_go.Submit(func() {
		defer close(drained)
		buf := make([]byte, drainSize)
		for {
			n, err := conn.Read(buf)
			t.received.Add(int64(n))
			if err != nil {
				return
			}
		}
	})

	ticker := time.NewTicker(sendInterval)
	defer ticker.Stop()
	for {
		n, err := conn.Write(payload)
		t.sent.Add(int64(n))
		if err != nil {
			log.Errorf("write to %s -> %v", addr, err)
			break
		}
		select {
		case <-ctx.Done():
		case <-ticker.C:
			continue
		}
		break
	}

	// let the echoes of the last write arrive before hanging up
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.CloseWrite()
	}
	select {
	case <-drained:
	case <-time.After(time.Second):
	}
	_ = conn.Close()
	<-drained
}

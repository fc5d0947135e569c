// Command echod runs the echo server on a port until interrupted.
//
//	echod [-engine epoll|gnet] [-log-level debug|info|warn|error] <port>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/emove/echoloop"
	"github.com/emove/echoloop/log"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("echod", flag.ContinueOnError)
	fs.SetOutput(stderr)
	engineName := fs.String("engine", string(echoloop.EngineEpoll), "event engine: epoll or gnet")
	levelName := fs.String("log-level", "info", "minimum log level: debug, info, warn or error")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: echod [flags] <port>\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	port := fs.Arg(0)
	if p, err := strconv.Atoi(port); err != nil || p < 0 || p > 65535 {
		fmt.Fprintf(stderr, "echod: invalid port %q\n", port)
		fs.Usage()
		return 2
	}
	level, err := log.ParseLevel(*levelName)
	if err != nil {
		fmt.Fprintf(stderr, "echod: %v\n", err)
		return 2
	}
	engine, err := echoloop.ParseEngine(*engineName)
	if err != nil {
		fmt.Fprintf(stderr, "echod: %v\n", err)
		return 2
	}

	logger, err := log.With(log.NewStdLogger(stderr), "ts", log.DefaultTimestamp)
	if err != nil {
		fmt.Fprintf(stderr, "echod: %v\n", err)
		return 1
	}
	log.SetLogger(logger)
	log.SetLevel(level)

	srv := echoloop.NewServer(":"+port, echoloop.WithEngine(engine))
	if err = srv.Listen(); err != nil {
		log.Fatalf("%v", err)
		return 1
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		s, ok := <-sig
		if !ok {
			return
		}
		log.Infof("received %s, shutting down", s)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	if err = srv.Serve(); !errors.Is(err, echoloop.ErrServerClosed) {
		log.Errorf("serve on port %s -> %v", port, err)
		return 1
	}
	st := srv.Stats()
	log.Infof("served %d connections, %d bytes echoed", st.Accepted, st.BytesOut)
	return 0
}

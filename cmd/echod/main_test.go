//go:build linux

package main

import (
	"bytes"
	"net"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emove/echoloop/test/fake_client"
)

// TestHelperProcess is not a real test; it runs echod in a child process.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("ECHOD_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	os.Exit(run(args, os.Stderr))
}

func helper(args ...string) *exec.Cmd {
	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(), "ECHOD_HELPER_PROCESS=1")
	return cmd
}

func TestRun_Usage(t *testing.T) {
	cases := [][]string{
		nil,
		{"1", "2"},
		{"notaport"},
		{"70000"},
		{"-engine", "kqueue", "8888"},
		{"-log-level", "loud", "8888"},
		{"-nosuchflag", "8888"},
	}
	for _, args := range cases {
		var stderr bytes.Buffer
		assert.Equal(t, 2, run(args, &stderr), "%v", args)
		assert.NotEmpty(t, stderr.String(), "%v", args)
	}
}

func TestRun_PortInUseExitsOne(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	for _, engine := range []string{"epoll", "gnet"} {
		var stderr bytes.Buffer
		cmd := helper("-engine", engine, port)
		cmd.Stderr = &stderr
		err = cmd.Run()

		var exitErr *exec.ExitError
		require.ErrorAs(t, err, &exitErr, engine)
		assert.Equal(t, 1, exitErr.ExitCode(), engine)
		lines := strings.Split(strings.TrimSpace(stderr.String()), "\n")
		last := lines[len(lines)-1]
		assert.Contains(t, last, "FATAL", engine)
		assert.Contains(t, last, "port "+port, engine)
	}
}

func TestRun_ServesUntilSignalled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())

	var stderr bytes.Buffer
	cmd := helper("-log-level", "warn", port)
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Start())

	var c *fake_client.Client
	require.Eventually(t, func() bool {
		c, err = fake_client.Dial("127.0.0.1:"+port, fake_client.WithTimeout(time.Second))
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	got, err := c.Echo([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	require.NoError(t, c.Close())

	require.NoError(t, cmd.Process.Signal(syscall.SIGTERM))
	assert.NoError(t, cmd.Wait(), stderr.String())
}

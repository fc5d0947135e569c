//go:build linux
// +build linux

// Package socket creates and accepts non-blocking TCP sockets for the epoll
// loop.
package socket

import (
	"net"
	"os"

	"golang.org/x/sys/unix"

	"github.com/emove/echoloop/internal/errors"
)

// Listen resolves addr, binds a non-blocking socket to it and starts
// listening with the given backlog. On failure no socket is left open.
func Listen(addr string, backlog int) (fd int, bound *net.TCPAddr, err error) {
	port := portOf(addr)
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return -1, nil, &errors.StartupError{Op: errors.OpResolve, Port: port, Err: err}
	}

	family, sa := toSockaddr(tcpAddr)
	fd, err = unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return -1, nil, &errors.StartupError{Op: errors.OpBind, Port: port, Err: os.NewSyscallError("socket", err)}
	}
	defer func() {
		if err != nil {
			_ = unix.Close(fd)
			fd = -1
		}
	}()

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fd, nil, &errors.StartupError{Op: errors.OpBind, Port: port, Err: os.NewSyscallError("setsockopt", err)}
	}
	if err = unix.Bind(fd, sa); err != nil {
		return fd, nil, &errors.StartupError{Op: errors.OpBind, Port: port, Err: os.NewSyscallError("bind", err)}
	}
	if err = unix.Listen(fd, backlog); err != nil {
		return fd, nil, &errors.StartupError{Op: errors.OpListen, Port: port, Err: os.NewSyscallError("listen", err)}
	}

	local, err := unix.Getsockname(fd)
	if err != nil {
		return fd, nil, &errors.StartupError{Op: errors.OpListen, Port: port, Err: os.NewSyscallError("getsockname", err)}
	}
	return fd, SockaddrToTCPAddr(local), nil
}

// Accept takes one pending peer off the listening socket fd. The returned
// fd is non-blocking and close-on-exec.
func Accept(fd int) (int, *net.TCPAddr, error) {
	nfd, sa, err := unix.Accept4(fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if err != nil {
		return -1, nil, os.NewSyscallError("accept", err)
	}
	return nfd, SockaddrToTCPAddr(sa), nil
}

// SockError returns the pending SO_ERROR on fd, if any.
func SockError(fd int) error {
	v, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return os.NewSyscallError("getsockopt", err)
	}
	if v != 0 {
		return unix.Errno(v)
	}
	return nil
}

// Read and Write wrap the syscalls so callers see *os.SyscallError.
func Read(fd int, p []byte) (int, error) {
	n, err := unix.Read(fd, p)
	if err != nil {
		return 0, os.NewSyscallError("read", err)
	}
	return n, nil
}

func Write(fd int, p []byte) (int, error) {
	n, err := unix.Write(fd, p)
	if err != nil {
		return 0, os.NewSyscallError("write", err)
	}
	return n, nil
}

func Close(fd int) error {
	return os.NewSyscallError("close", unix.Close(fd))
}

// SockaddrToTCPAddr converts an IPv4/IPv6 sockaddr, nil otherwise.
func SockaddrToTCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		ip := make(net.IP, net.IPv4len)
		copy(ip, sa.Addr[:])
		return &net.TCPAddr{IP: ip, Port: sa.Port}
	case *unix.SockaddrInet6:
		ip := make(net.IP, net.IPv6len)
		copy(ip, sa.Addr[:])
		return &net.TCPAddr{IP: ip, Port: sa.Port}
	}
	return nil
}

func toSockaddr(addr *net.TCPAddr) (int, unix.Sockaddr) {
	if addr.IP == nil || addr.IP.To4() != nil {
		sa := &unix.SockaddrInet4{Port: addr.Port}
		if addr.IP != nil {
			copy(sa.Addr[:], addr.IP.To4())
		}
		return unix.AF_INET, sa
	}
	sa := &unix.SockaddrInet6{Port: addr.Port}
	copy(sa.Addr[:], addr.IP.To16())
	return unix.AF_INET6, sa
}

func portOf(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return port
}

//go:build linux
// +build linux

package reactor

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/emove/echoloop/internal/utils/recovery"
	"github.com/emove/echoloop/log"
)

const maxEvents = 128

type epoll struct {
	epfd     int
	wakefd   int
	events   []unix.EpollEvent
	handlers map[int]Handler
	wakeBuf  []byte
}

// New creates an epoll instance with an eventfd for Wake.
func New() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	wakefd, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("eventfd", err)
	}
	ev := &unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(wakefd)}
	if err = unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, wakefd, ev); err != nil {
		_ = unix.Close(wakefd)
		_ = unix.Close(epfd)
		return nil, os.NewSyscallError("epoll_ctl add", err)
	}
	return &epoll{
		epfd:     epfd,
		wakefd:   wakefd,
		events:   make([]unix.EpollEvent, maxEvents),
		handlers: make(map[int]Handler),
		wakeBuf:  make([]byte, 8),
	}, nil
}

func toEpoll(events EventType) uint32 {
	var ev uint32
	if events&EventRead != 0 {
		ev |= unix.EPOLLIN
	}
	if events&EventWrite != 0 {
		ev |= unix.EPOLLOUT
	}
	return ev
}

func fromEpoll(ev uint32) EventType {
	var events EventType
	if ev&unix.EPOLLIN != 0 {
		events |= EventRead
	}
	if ev&unix.EPOLLOUT != 0 {
		events |= EventWrite
	}
	if ev&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		events |= EventError
	}
	return events
}

func (p *epoll) Add(fd int, events EventType, h Handler) error {
	ev := &unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return os.NewSyscallError("epoll_ctl add", err)
	}
	p.handlers[fd] = h
	return nil
}

func (p *epoll) Modify(fd int, events EventType) error {
	ev := &unix.EpollEvent{Events: toEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, ev); err != nil {
		return os.NewSyscallError("epoll_ctl mod", err)
	}
	return nil
}

func (p *epoll) Delete(fd int) error {
	if _, ok := p.handlers[fd]; !ok {
		return fmt.Errorf("reactor: fd %d is not registered", fd)
	}
	delete(p.handlers, fd)
	if err := unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return os.NewSyscallError("epoll_ctl del", err)
	}
	return nil
}

func (p *epoll) Len() int {
	return len(p.handlers)
}

func (p *epoll) Wait(msec int) (int, error) {
	n, err := unix.EpollWait(p.epfd, p.events, msec)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, os.NewSyscallError("epoll_wait", err)
	}

	dispatched := 0
	for i := 0; i < n; i++ {
		fd := int(p.events[i].Fd)
		if fd == p.wakefd {
			for {
				if _, err := unix.Read(p.wakefd, p.wakeBuf); err != nil {
					break
				}
			}
			continue
		}
		// a handler earlier in this batch may have deleted fd
		h, ok := p.handlers[fd]
		if !ok {
			continue
		}
		p.dispatch(h, fd, fromEpoll(p.events[i].Events))
		dispatched++
	}
	return dispatched, nil
}

func (p *epoll) dispatch(h Handler, fd int, ev EventType) {
	defer recovery.Recover(func(err error) {
		log.Errorw("fd", fd, "events", ev.String(), "err", err)
	})
	h(fd, ev)
}

func (p *epoll) Wake() error {
	var one = []byte{1, 0, 0, 0, 0, 0, 0, 0}
	if _, err := unix.Write(p.wakefd, one); err != nil && err != unix.EAGAIN {
		return os.NewSyscallError("eventfd write", err)
	}
	return nil
}

func (p *epoll) Close() error {
	_ = unix.Close(p.wakefd)
	return unix.Close(p.epfd)
}

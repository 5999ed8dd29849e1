//go:build linux
// +build linux

package poller

import (
	"golang.org/x/sys/unix"
)

// EpollPoller is an epoll-based I/O multiplexer
type EpollPoller struct {
	epfd   int
	events []unix.EpollEvent
}

// NewPoller creates a new Poller (Linux)
func NewPoller() (Poller, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, err
	}

	return &EpollPoller{
		epfd:   epfd,
		events: make([]unix.EpollEvent, 1024),
	}, nil
}

const (
	readEvents  = uint32(unix.EPOLLIN) | uint32(unix.EPOLLRDHUP) | uint32(unix.EPOLLET)
	writeEvents = readEvents | uint32(unix.EPOLLOUT)
)

// The registration token rides in the event payload (Fd + Pad give us 64
// bits), so Wait can hand tokens back without a side table.
func packToken(ev *unix.EpollEvent, token uint64) {
	ev.Fd = int32(uint32(token))
	ev.Pad = int32(uint32(token >> 32))
}

func unpackToken(ev *unix.EpollEvent) uint64 {
	return uint64(uint32(ev.Fd)) | uint64(uint32(ev.Pad))<<32
}

// Add registers fd for read readiness under token (edge-triggered)
func (p *EpollPoller) Add(fd int, token uint64) error {
	ev := unix.EpollEvent{Events: readEvents}
	packToken(&ev, token)
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_ADD, fd, &ev)
}

// EnableWrite adds write-readiness interest for fd
func (p *EpollPoller) EnableWrite(fd int, token uint64) error {
	ev := unix.EpollEvent{Events: writeEvents}
	packToken(&ev, token)
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// DisableWrite drops write-readiness interest for fd
func (p *EpollPoller) DisableWrite(fd int, token uint64) error {
	ev := unix.EpollEvent{Events: readEvents}
	packToken(&ev, token)
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_MOD, fd, &ev)
}

// Remove removes a file descriptor from the watch list
func (p *EpollPoller) Remove(fd int) error {
	return unix.EpollCtl(p.epfd, unix.EPOLL_CTL_DEL, fd, nil)
}

// Wait waits for I/O events
func (p *EpollPoller) Wait(msec int) ([]Event, error) {
	n, err := unix.EpollWait(p.epfd, p.events, msec)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	if n <= 0 {
		return nil, nil
	}

	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		ev := &p.events[i]
		events = append(events, Event{
			Token: unpackToken(ev),
			// Hangups and errors surface as readable so the owner's
			// read loop observes EOF or the error directly.
			Readable: ev.Events&(uint32(unix.EPOLLIN)|uint32(unix.EPOLLRDHUP)|uint32(unix.EPOLLHUP)|uint32(unix.EPOLLERR)) != 0,
			Writable: ev.Events&uint32(unix.EPOLLOUT) != 0,
		})
	}

	return events, nil
}

// Close closes the Poller
func (p *EpollPoller) Close() error {
	return unix.Close(p.epfd)
}

// SetNonblock sets non-blocking mode
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

//go:build darwin
// +build darwin

package poller

import (
	"golang.org/x/sys/unix"
)

// KqueuePoller is a kqueue-based I/O multiplexer
type KqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t

	// kevent idents are plain fds, so registration tokens live here.
	tokens map[int]uint64
}

// NewPoller creates a new Poller (macOS)
func NewPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}

	return &KqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, 1024),
		tokens: make(map[int]uint64),
	}, nil
}

// Add registers fd for read readiness under token (edge-triggered)
func (p *KqueuePoller) Add(fd int, token uint64) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		// EV_CLEAR makes the filter edge-triggered
		Flags: unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR,
	}

	if _, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil); err != nil {
		return err
	}
	p.tokens[fd] = token
	return nil
}

// EnableWrite adds write-readiness interest for fd
func (p *KqueuePoller) EnableWrite(fd int, token uint64) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_WRITE,
		Flags:  unix.EV_ADD | unix.EV_ENABLE | unix.EV_CLEAR,
	}

	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// DisableWrite drops write-readiness interest for fd
func (p *KqueuePoller) DisableWrite(fd int, token uint64) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_WRITE,
		Flags:  unix.EV_DELETE,
	}

	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// Remove removes a file descriptor from the watch list
func (p *KqueuePoller) Remove(fd int) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_READ,
		Flags:  unix.EV_DELETE,
	}

	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	delete(p.tokens, fd)
	return err
}

// Wait waits for I/O events
func (p *KqueuePoller) Wait(msec int) ([]Event, error) {
	var ts *unix.Timespec
	if msec >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(msec / 1000),
			Nsec: int64((msec % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
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
		token, ok := p.tokens[int(ev.Ident)]
		if !ok {
			continue
		}
		events = append(events, Event{
			Token:    token,
			Readable: ev.Filter == unix.EVFILT_READ,
			Writable: ev.Filter == unix.EVFILT_WRITE,
		})
	}

	return events, nil
}

// Close closes the Poller
func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}

// SetNonblock sets non-blocking mode
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

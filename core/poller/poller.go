package poller

// Event is one readiness report. Token is the value the descriptor was
// registered under; a descriptor may be both readable and writable in the
// same wait.
type Event struct {
	Token    uint64
	Readable bool
	Writable bool
}

// Poller is the I/O multiplexing interface. Registrations are
// edge-triggered: readiness is reported once per transition to ready, so
// callers must drain reads/writes until EAGAIN before waiting again.
type Poller interface {
	// Add registers fd for read readiness under token.
	Add(fd int, token uint64) error
	// EnableWrite adds write-readiness interest for an already-added fd.
	EnableWrite(fd int, token uint64) error
	// DisableWrite drops write-readiness interest, keeping read interest.
	DisableWrite(fd int, token uint64) error
	// Remove removes a file descriptor from the watch list.
	Remove(fd int) error
	// Wait blocks up to msec milliseconds for events; msec < 0 blocks
	// until at least one event is available.
	Wait(msec int) ([]Event, error)
	// Close closes the poller.
	Close() error
}

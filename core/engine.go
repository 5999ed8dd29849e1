package core

import (
	"errors"
	"log"
	"net"

	"golang.org/x/sys/unix"

	"github.com/searchktools/chat-server/core/http"
	"github.com/searchktools/chat-server/core/metrics"
	"github.com/searchktools/chat-server/core/poller"
	"github.com/searchktools/chat-server/core/pools"
	"github.com/searchktools/chat-server/core/router"
)

// ReadBufferSize is the fixed per-connection read buffer capacity
const ReadBufferSize = 8192

// listenerToken is permanently reserved for the listening socket.
// Connection tokens count up from 1 and are never reused, so a late event
// for a closed connection can never name a newer one.
const listenerToken uint64 = 0

// Conn is one accepted connection, owned exclusively by the engine
type Conn struct {
	fd    int
	token uint64

	// buf[:off] holds bytes read but not yet parsed into a complete
	// message batch. The prefix survives across reads so a message split
	// over several reads completes once the rest arrives.
	buf []byte
	off int

	// pending holds response bytes the socket would not take. While it
	// is non-empty the engine stops reading this connection and waits
	// for write readiness instead.
	pending []byte
}

// Reset implements pools.Poolable
func (c *Conn) Reset() {
	c.fd = -1
	c.token = 0
	c.buf = nil
	c.off = 0
	c.pending = nil
}

// Engine is the single-threaded readiness reactor. It owns the listening
// socket, every accepted connection and the dispatcher; all I/O is
// non-blocking and driven from poller events. The only blocking call
// anywhere is the poller wait itself.
type Engine struct {
	disp      *router.Dispatcher
	poller    poller.Poller
	conns     map[uint64]*Conn
	nextToken uint64
	lfd       int

	bytePool *pools.BytePool
	connPool *pools.ConnPool
}

// NewEngine creates an engine bound to a dispatcher
func NewEngine(disp *router.Dispatcher) *Engine {
	return &Engine{
		disp:      disp,
		conns:     make(map[uint64]*Conn),
		nextToken: listenerToken + 1,
		bytePool:  pools.NewBytePool(),
		connPool:  pools.NewConnPool(func() any { return &Conn{fd: -1} }),
	}
}

// Run binds the listen address and drives the event loop forever. Errors
// inside the loop are logged and the loop continues; only setup errors
// are returned.
func (e *Engine) Run(addr string) error {
	laddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return err
	}

	ln, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		return err
	}
	defer ln.Close()

	lnFile, err := ln.File()
	if err != nil {
		return err
	}
	defer lnFile.Close()
	lfd := int(lnFile.Fd())

	if err := unix.SetNonblock(lfd, true); err != nil {
		return err
	}

	e.poller, err = poller.NewPoller()
	if err != nil {
		return err
	}
	defer e.poller.Close()

	if err := e.poller.Add(lfd, listenerToken); err != nil {
		return err
	}
	e.lfd = lfd

	log.Printf("chat server listening on %s", addr)

	for {
		// Block until at least one readiness event exists
		events, err := e.poller.Wait(-1)
		if err != nil {
			log.Printf("poller wait error: %v", err)
			continue
		}

		for _, ev := range events {
			e.handleEvent(ev)
		}
	}
}

// handleEvent services one readiness report
func (e *Engine) handleEvent(ev poller.Event) {
	if ev.Token == listenerToken {
		e.acceptConnections()
		return
	}

	conn, ok := e.conns[ev.Token]
	if !ok {
		// Stale event for an already-closed connection
		return
	}

	if ev.Writable && len(conn.pending) > 0 {
		if !e.flushPending(conn) {
			return
		}
		if len(conn.pending) == 0 {
			// Reading was suspended while responses were queued. Any
			// bytes that arrived meanwhile already consumed their read
			// edge, so waiting for another one would strand them.
			e.handleRead(conn)
			return
		}
	}
	if ev.Readable {
		e.handleRead(conn)
	}
}

// acceptConnections drains the accept queue. Edge-triggered readiness is
// reported once per transition, so a single accept per event would strand
// queued connections.
func (e *Engine) acceptConnections() {
	for {
		nfd, _, err := unix.Accept(e.lfd)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			log.Printf("accept error: %v", err)
			return
		}

		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}
		unix.SetsockoptInt(nfd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)

		if _, err := e.registerConn(nfd); err != nil {
			log.Printf("register fd %d: %v", nfd, err)
			unix.Close(nfd)
		}
	}
}

// registerConn wraps a non-blocking socket in a pooled Conn under a fresh
// token and registers it for read readiness.
func (e *Engine) registerConn(fd int) (*Conn, error) {
	token := e.nextToken
	e.nextToken++

	conn := e.connPool.Get().(*Conn)
	conn.fd = fd
	conn.token = token
	conn.buf = e.bytePool.Get(ReadBufferSize)
	conn.off = 0
	conn.pending = nil

	if err := e.poller.Add(fd, token); err != nil {
		e.bytePool.Put(conn.buf)
		e.connPool.Put(conn)
		return nil, err
	}

	e.conns[token] = conn
	metrics.ConnectionsAccepted.Inc()
	metrics.ConnectionsActive.Inc()
	return conn, nil
}

// handleRead drains one readable edge: read until EAGAIN, parsing and
// dispatching every complete pipelined message along the way. Responses
// go back on the same socket in arrival order before the next request is
// touched.
func (e *Engine) handleRead(conn *Conn) {
	for {
		if len(conn.pending) > 0 {
			// Backpressure: unsent response bytes are queued; reading
			// resumes once they drain.
			return
		}

		n, err := unix.Read(conn.fd, conn.buf[conn.off:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			log.Printf("read error on conn %d: %v", conn.token, err)
			e.closeConnection(conn)
			return
		}
		if n == 0 {
			// Peer closed
			e.closeConnection(conn)
			return
		}
		conn.off += n
		metrics.BytesRead.Add(float64(n))

		requests, err := http.ParseBuffer(conn.buf[:conn.off])
		if err != nil {
			if errors.Is(err, http.ErrIncomplete) {
				if conn.off == len(conn.buf) {
					// The message can never complete inside the fixed
					// buffer
					e.sendError(conn, http.Text(http.StatusBadRequest, "Request too large."))
					e.closeConnection(conn)
					return
				}
				// Keep the bytes; retry with the full accumulated
				// buffer when more data arrives
				continue
			}
			log.Printf("parse error on conn %d: %v", conn.token, err)
			metrics.ParseErrors.Inc()
			conn.off = 0
			return
		}
		conn.off = 0

		for _, req := range requests {
			resp := e.disp.Dispatch(req)
			if !e.writeResponse(conn, resp) {
				return
			}
		}
	}
}

// writeResponse serializes resp through a pooled buffer and writes it.
// Returns false if the connection was closed by a write error.
func (e *Engine) writeResponse(conn *Conn, resp *http.Response) bool {
	buf := e.bytePool.Get(2048)[:0]
	buf = resp.AppendWire(buf)
	ok := e.writeConn(conn, buf)
	e.bytePool.Put(buf)
	return ok
}

// writeConn writes data, queueing whatever the socket will not take and
// enabling write-readiness interest for the remainder.
func (e *Engine) writeConn(conn *Conn, data []byte) bool {
	if len(conn.pending) > 0 {
		// Earlier bytes are still queued; preserve order
		conn.pending = append(conn.pending, data...)
		return true
	}

	written := 0
	for written < len(data) {
		n, err := unix.Write(conn.fd, data[written:])
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				conn.pending = append(conn.pending, data[written:]...)
				if perr := e.poller.EnableWrite(conn.fd, conn.token); perr != nil {
					log.Printf("enable write on conn %d: %v", conn.token, perr)
					e.closeConnection(conn)
					return false
				}
				return true
			}
			log.Printf("write error on conn %d: %v", conn.token, err)
			e.closeConnection(conn)
			return false
		}
		written += n
		metrics.BytesWritten.Add(float64(n))
	}
	return true
}

// flushPending drains the backpressure queue on a writable edge. Returns
// false if the connection was closed.
func (e *Engine) flushPending(conn *Conn) bool {
	for len(conn.pending) > 0 {
		n, err := unix.Write(conn.fd, conn.pending)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return true
			}
			log.Printf("write error on conn %d: %v", conn.token, err)
			e.closeConnection(conn)
			return false
		}
		conn.pending = conn.pending[n:]
		metrics.BytesWritten.Add(float64(n))
	}

	conn.pending = nil
	if err := e.poller.DisableWrite(conn.fd, conn.token); err != nil {
		log.Printf("disable write on conn %d: %v", conn.token, err)
	}
	return true
}

// sendError writes a response directly, best effort; used just before a
// close when the normal write path no longer applies.
func (e *Engine) sendError(conn *Conn, resp *http.Response) {
	unix.Write(conn.fd, resp.Serialize())
}

// closeConnection deregisters the connection, releases its pooled
// resources and closes the socket. Its token is never reassigned.
func (e *Engine) closeConnection(conn *Conn) {
	if _, ok := e.conns[conn.token]; !ok {
		return
	}
	delete(e.conns, conn.token)

	e.poller.Remove(conn.fd)
	if conn.buf != nil {
		e.bytePool.Put(conn.buf)
	}
	unix.Close(conn.fd)
	e.connPool.Put(conn)
	metrics.ConnectionsActive.Dec()
}

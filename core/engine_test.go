//go:build linux
// +build linux

package core

import (
	"strings"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/searchktools/chat-server/chat"
	"github.com/searchktools/chat-server/core/http"
	"github.com/searchktools/chat-server/core/poller"
	"github.com/searchktools/chat-server/core/router"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	svc := chat.NewService(chat.Contacts{1: {2}, 2: {1}})
	disp := router.NewBuilder().
		Register(http.MethodGet, "/ping",
			func(_ *chat.Service, _ router.Params, _ router.Values, _ *http.Request) *http.Response {
				return http.Text(http.StatusOK, "pong")
			}).
		Register(http.MethodPost, "/echo",
			func(_ *chat.Service, _ router.Params, _ router.Values, req *http.Request) *http.Response {
				return http.Text(http.StatusOK, string(req.Body))
			}).
		Build(svc)

	e := NewEngine(disp)
	p, err := poller.NewPoller()
	if err != nil {
		t.Fatalf("NewPoller failed: %v", err)
	}
	e.poller = p
	t.Cleanup(func() { p.Close() })
	return e
}

// newTestConn registers one half of a non-blocking socketpair with the
// engine and hands back the peer fd for the test to talk through.
func newTestConn(t *testing.T, e *Engine) (*Conn, int) {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("Socketpair failed: %v", err)
	}
	unix.SetNonblock(fds[0], true)
	unix.SetNonblock(fds[1], true)

	conn, err := e.registerConn(fds[0])
	if err != nil {
		t.Fatalf("registerConn failed: %v", err)
	}

	t.Cleanup(func() {
		unix.Close(fds[0])
		unix.Close(fds[1])
	})
	return conn, fds[1]
}

func writeAll(t *testing.T, fd int, data string) {
	t.Helper()
	if _, err := unix.Write(fd, []byte(data)); err != nil {
		t.Fatalf("peer write failed: %v", err)
	}
}

func readAvailable(t *testing.T, fd int) string {
	t.Helper()
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(fd, buf)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return string(out)
		}
		if err != nil {
			t.Fatalf("peer read failed: %v", err)
		}
		if n == 0 {
			return string(out)
		}
		out = append(out, buf[:n]...)
	}
}

// TestEngineServesPipelinedRequests writes two requests in one burst and
// expects two in-order responses from one readable edge
func TestEngineServesPipelinedRequests(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	writeAll(t, peer,
		"GET /ping HTTP/1.1\r\n\r\n"+
			"POST /echo HTTP/1.1\r\nContent-Length: 5\r\n\r\nhello")
	e.handleRead(conn)

	got := readAvailable(t, peer)
	if n := strings.Count(got, "HTTP/1.1 200 OK\r\n"); n != 2 {
		t.Fatalf("Expected 2 responses, got %d in %q", n, got)
	}
	pong := strings.Index(got, "pong")
	hello := strings.Index(got, "hello")
	if pong == -1 || hello == -1 || hello < pong {
		t.Errorf("Responses out of order: %q", got)
	}
	if conn.off != 0 {
		t.Errorf("Expected an empty accumulation buffer, off=%d", conn.off)
	}
}

// TestEnginePartialRequestAccumulates holds a split message across two
// readable edges and answers once it completes
func TestEnginePartialRequestAccumulates(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	writeAll(t, peer, "POST /echo HTTP/1.1\r\nContent-Len")
	e.handleRead(conn)

	if got := readAvailable(t, peer); got != "" {
		t.Fatalf("Expected no response for a partial message, got %q", got)
	}
	if conn.off == 0 {
		t.Fatal("Expected accumulated bytes after a partial read")
	}

	writeAll(t, peer, "gth: 5\r\n\r\nhello")
	e.handleRead(conn)

	got := readAvailable(t, peer)
	if !strings.Contains(got, "HTTP/1.1 200 OK\r\n") || !strings.Contains(got, "hello") {
		t.Errorf("Expected the completed response, got %q", got)
	}
	if conn.off != 0 {
		t.Errorf("Expected the buffer to drain after completion, off=%d", conn.off)
	}
}

// TestEngineTokensMonotonic never reuses tokens and reserves 0 for the
// listener
func TestEngineTokensMonotonic(t *testing.T) {
	e := newTestEngine(t)

	first, _ := newTestConn(t, e)
	second, _ := newTestConn(t, e)

	if first.token == listenerToken || second.token == listenerToken {
		t.Error("Connection tokens must not collide with the listener token")
	}
	if second.token != first.token+1 {
		t.Errorf("Expected monotonic tokens, got %d then %d", first.token, second.token)
	}

	// Closing a connection must not free its token for reuse
	e.closeConnection(second)
	third, _ := newTestConn(t, e)
	if third.token <= second.token {
		t.Errorf("Token %d reused after close of %d", third.token, second.token)
	}
}

// TestEnginePeerCloseRemovesConnection drops the connection on a
// zero-length read
func TestEnginePeerCloseRemovesConnection(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	unix.Close(peer)
	e.handleRead(conn)

	if _, ok := e.conns[conn.token]; ok {
		t.Error("Expected the connection to be removed after peer close")
	}
}

// TestEngineMalformedAbandonsBytes aborts the read cycle but keeps the
// connection registered
func TestEngineMalformedAbandonsBytes(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	writeAll(t, peer, "DELETE /chats HTTP/1.1\r\n\r\n")
	e.handleRead(conn)

	if got := readAvailable(t, peer); got != "" {
		t.Errorf("Expected no response for malformed input, got %q", got)
	}
	if conn.off != 0 {
		t.Errorf("Expected abandoned bytes, off=%d", conn.off)
	}
	if _, ok := e.conns[conn.token]; !ok {
		t.Error("Expected the connection to stay registered after a parse error")
	}

	// The connection still serves well-formed requests afterwards
	writeAll(t, peer, "GET /ping HTTP/1.1\r\n\r\n")
	e.handleRead(conn)
	if got := readAvailable(t, peer); !strings.Contains(got, "pong") {
		t.Errorf("Expected the connection to recover, got %q", got)
	}
}

// TestEngineUnknownRouteGets404 round-trips the dispatcher's not-found
// path through the socket
func TestEngineUnknownRouteGets404(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	writeAll(t, peer, "GET /nope?x=1 HTTP/1.1\r\n\r\n")
	e.handleRead(conn)

	got := readAvailable(t, peer)
	if !strings.HasPrefix(got, "HTTP/1.1 404 Not Found\r\n") {
		t.Errorf("Expected a 404 response, got %q", got)
	}
}

// TestEngineWriteQueueOrder appends behind already-queued bytes and
// drains them in order on a writable edge
func TestEngineWriteQueueOrder(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	conn.pending = append(conn.pending, "first."...)
	if !e.writeConn(conn, []byte("second.")) {
		t.Fatal("writeConn closed the connection unexpectedly")
	}
	if string(conn.pending) != "first.second." {
		t.Fatalf("Queue out of order: %q", conn.pending)
	}

	if !e.flushPending(conn) {
		t.Fatal("flushPending closed the connection unexpectedly")
	}
	if len(conn.pending) != 0 {
		t.Errorf("Expected a drained queue, still holding %q", conn.pending)
	}
	if got := readAvailable(t, peer); got != "first.second." {
		t.Errorf("Peer saw %q", got)
	}
}

// TestEngineReadResumesAfterDrain delivers a request while responses are
// queued. Its read edge fires into the backpressure early-return, so the
// writable edge that drains the queue must also resume reading, without
// waiting for another read event.
func TestEngineReadResumesAfterDrain(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	conn.pending = append(conn.pending, "queued."...)
	writeAll(t, peer, "GET /ping HTTP/1.1\r\n\r\n")

	// The read edge arrives while bytes are queued and is consumed
	// without parsing anything
	e.handleRead(conn)
	if got := readAvailable(t, peer); got != "" {
		t.Fatalf("Expected reads suspended under backpressure, got %q", got)
	}

	e.handleEvent(poller.Event{Token: conn.token, Writable: true})

	got := readAvailable(t, peer)
	if !strings.HasPrefix(got, "queued.") {
		t.Fatalf("Expected queued bytes first, got %q", got)
	}
	if !strings.Contains(got, "pong") {
		t.Errorf("Expected the buffered request answered after the drain, got %q", got)
	}
	if len(conn.pending) != 0 {
		t.Errorf("Expected an empty queue, still holding %q", conn.pending)
	}
}

// TestEngineOversizedRequestClosed fills the fixed read buffer with a
// message that can never complete inside it
func TestEngineOversizedRequestClosed(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	writeAll(t, peer,
		"POST /echo HTTP/1.1\r\nContent-Length: 20000\r\n\r\n"+
			strings.Repeat("a", 9000))
	e.handleRead(conn)

	if _, ok := e.conns[conn.token]; ok {
		t.Error("Expected the connection closed for an oversized request")
	}
	got := readAvailable(t, peer)
	if !strings.HasPrefix(got, "HTTP/1.1 400 Bad Request\r\n") {
		t.Errorf("Expected a 400 response, got %q", got)
	}
	if !strings.Contains(got, "Request too large.") {
		t.Errorf("Expected the size rejection body, got %q", got)
	}
}

// TestEngineShortWriteQueuesAndResumes forces a genuine partial write by
// shrinking the socket send buffer, then drains the remainder through
// writable edges from the real poller
func TestEngineShortWriteQueuesAndResumes(t *testing.T) {
	e := newTestEngine(t)
	conn, peer := newTestConn(t, e)

	// Clamp the send buffer to the kernel minimum so an 8000-byte
	// response cannot be written in one call
	if err := unix.SetsockoptInt(conn.fd, unix.SOL_SOCKET, unix.SO_SNDBUF, 1); err != nil {
		t.Fatalf("SetsockoptInt failed: %v", err)
	}

	body := strings.Repeat("x", 8000)
	writeAll(t, peer, "POST /echo HTTP/1.1\r\nContent-Length: 8000\r\n\r\n"+body)
	e.handleRead(conn)

	if len(conn.pending) == 0 {
		t.Fatal("Expected the short write to queue the remainder")
	}
	if _, ok := e.conns[conn.token]; !ok {
		t.Fatal("Expected the connection to stay registered while draining")
	}

	var got strings.Builder
	got.WriteString(readAvailable(t, peer))
	for i := 0; i < 50 && len(conn.pending) > 0; i++ {
		events, err := e.poller.Wait(1000)
		if err != nil {
			t.Fatalf("poller wait failed: %v", err)
		}
		for _, ev := range events {
			e.handleEvent(ev)
		}
		got.WriteString(readAvailable(t, peer))
	}

	if len(conn.pending) != 0 {
		t.Fatalf("Queue never drained, %d bytes left", len(conn.pending))
	}
	if !strings.HasPrefix(got.String(), "HTTP/1.1 200 OK\r\n") {
		t.Error("Expected a 200 response ahead of the echoed body")
	}
	if !strings.Contains(got.String(), body) {
		t.Error("Echoed body did not arrive intact after the drain")
	}
}

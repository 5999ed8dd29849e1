package http

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Proto11 is the only protocol version the parser accepts.
const Proto11 = "HTTP/1.1"

var (
	// ErrIncomplete reports that the buffer ends in the middle of a
	// message. The caller should keep the bytes and retry with the full
	// accumulated buffer once more data arrives.
	ErrIncomplete = errors.New("incomplete request")

	ErrUnsupportedMethod  = errors.New("unsupported method")
	ErrMalformedStartLine = errors.New("malformed start line")
	ErrMalformedHeader    = errors.New("malformed header line")
)

var crlf = []byte("\r\n")

// ParseBuffer decodes as many complete pipelined messages as data holds,
// in order. The call is all-or-nothing: a malformed message or a truncated
// final message fails the whole call, and no partial request list is
// returned alongside an error.
func ParseBuffer(data []byte) ([]*Request, error) {
	var requests []*Request

	rest := data
	for len(rest) > 0 {
		req, n, err := parseRequest(rest)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
		rest = rest[n:]
	}

	return requests, nil
}

// parseRequest decodes a single message from the front of data and returns
// it together with the number of bytes consumed.
func parseRequest(data []byte) (*Request, int, error) {
	lineEnd := bytes.Index(data, crlf)
	if lineEnd == -1 {
		return nil, 0, fmt.Errorf("%w: start line not terminated", ErrIncomplete)
	}
	line := data[:lineEnd]

	var method string
	switch {
	case bytes.HasPrefix(line, []byte(MethodGet+" ")):
		method = MethodGet
	case bytes.HasPrefix(line, []byte(MethodPost+" ")):
		method = MethodPost
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnsupportedMethod, firstWord(line))
	}

	// TARGET is whatever sits between the method and the literal "HTTP",
	// trimmed. Anything after "HTTP/1.1" up to the CRLF is discarded.
	rest := line[len(method):]
	httpIdx := bytes.Index(rest, []byte("HTTP"))
	if httpIdx == -1 {
		return nil, 0, fmt.Errorf("%w: missing version", ErrMalformedStartLine)
	}
	if !bytes.HasPrefix(rest[httpIdx:], []byte(Proto11)) {
		return nil, 0, fmt.Errorf("%w: version %q", ErrMalformedStartLine, firstWord(rest[httpIdx:]))
	}

	req := &Request{
		Method: method,
		Target: string(bytes.TrimSpace(rest[:httpIdx])),
		Proto:  Proto11,
	}

	// Header block: NAME:VALUE lines until a bare CRLF. The terminator
	// check happens at every line boundary.
	pos := lineEnd + 2
	contentLength := 0
	for {
		if pos+2 > len(data) {
			return nil, 0, fmt.Errorf("%w: header block not terminated", ErrIncomplete)
		}
		if data[pos] == '\r' && data[pos+1] == '\n' {
			pos += 2
			break
		}

		lineEnd := bytes.Index(data[pos:], crlf)
		if lineEnd == -1 {
			return nil, 0, fmt.Errorf("%w: header line not terminated", ErrIncomplete)
		}
		line := data[pos : pos+lineEnd]

		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			return nil, 0, fmt.Errorf("%w: %q", ErrMalformedHeader, line)
		}
		name := string(bytes.TrimSpace(line[:colon]))
		value := string(bytes.TrimSpace(line[colon+1:]))

		// Exact, case-sensitive name match. An unparsable value leaves
		// the default of zero in place.
		if name == HeaderContentLength {
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				contentLength = n
			}
		}

		req.Headers = append(req.Headers, Header{Name: name, Value: value})
		pos += lineEnd + 2
	}

	if len(data)-pos < contentLength {
		return nil, 0, fmt.Errorf("%w: body declares %d bytes, %d available",
			ErrIncomplete, contentLength, len(data)-pos)
	}
	if contentLength > 0 {
		req.Body = append([]byte(nil), data[pos:pos+contentLength]...)
	}

	return req, pos + contentLength, nil
}

func firstWord(b []byte) []byte {
	if sp := bytes.IndexByte(b, ' '); sp != -1 {
		return b[:sp]
	}
	return b
}

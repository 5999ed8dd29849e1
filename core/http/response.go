package http

import (
	"log"
)

// Response statuses used by the server
const (
	StatusOK          = 200
	StatusBadRequest  = 400
	StatusNotFound    = 404
	StatusServerError = 500
)

// Response carries a status code, ordered headers and an owned body.
// Responses are newly constructed, never views into a read buffer.
type Response struct {
	Status  int
	Headers []Header
	Body    []byte
}

// NewResponse creates a response with a single Content-Type header
func NewResponse(status int, contentType string, body []byte) *Response {
	return &Response{
		Status:  status,
		Headers: []Header{{HeaderContentType, contentType}},
		Body:    body,
	}
}

// Text creates a plain-text response
func Text(status int, msg string) *Response {
	return NewResponse(status, "text/plain", []byte(msg))
}

// JSON creates an application/json response from pre-encoded bytes
func JSON(status int, body []byte) *Response {
	return NewResponse(status, "application/json", body)
}

// OK is the empty success response
func OK() *Response {
	return Text(StatusOK, "")
}

// NotFound is the standard not-found response
func NotFound() *Response {
	return Text(StatusNotFound, "Not found.")
}

// ServerError logs the error and wraps it into a 500 response
func ServerError(msg string) *Response {
	log.Printf("ERROR 500: %s", msg)
	return Text(StatusServerError, msg)
}

// Serialize renders the wire form: status line, each header joined by
// CRLF, a Content-Length computed from the body, a blank line, the body.
func (r *Response) Serialize() []byte {
	return r.AppendWire(nil)
}

// AppendWire appends the serialized response to buf and returns it
func (r *Response) AppendWire(buf []byte) []byte {
	buf = append(buf, "HTTP/1.1 "...)
	buf = appendInt(buf, r.Status)
	buf = append(buf, ' ')
	buf = append(buf, statusText(r.Status)...)
	buf = append(buf, crlf...)
	for _, h := range r.Headers {
		buf = append(buf, h.Name...)
		buf = append(buf, ": "...)
		buf = append(buf, h.Value...)
		buf = append(buf, crlf...)
	}
	buf = append(buf, "Content-Length: "...)
	buf = appendInt(buf, len(r.Body))
	buf = append(buf, "\r\n\r\n"...)
	buf = append(buf, r.Body...)
	return buf
}

func statusText(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusNotFound:
		return "Not Found"
	case StatusServerError:
		return "Internal Server Error"
	default:
		return "Unknown"
	}
}

// appendInt appends the decimal form of i to b without allocating
func appendInt(b []byte, i int) []byte {
	if i == 0 {
		return append(b, '0')
	}

	if i < 0 {
		b = append(b, '-')
		i = -i
	}

	var digits [20]byte
	n := 0
	for i > 0 {
		digits[n] = byte('0' + i%10)
		i /= 10
		n++
	}

	for n > 0 {
		n--
		b = append(b, digits[n])
	}

	return b
}

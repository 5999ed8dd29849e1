package http

// Supported methods. Anything else on the wire is a parse error.
const (
	MethodGet  = "GET"
	MethodPost = "POST"
)

// Common header names
const (
	HeaderContentType   = "Content-Type"
	HeaderContentLength = "Content-Length"
)

// Header is one name/value pair. Order and duplicate names are preserved
// exactly as they appeared on the wire.
type Header struct {
	Name  string
	Value string
}

// Request is one fully decoded wire message. Every field is a copy: a
// Request never aliases the connection buffer it was parsed from, so it
// stays valid after the buffer is reused for the next read.
type Request struct {
	Method  string
	Target  string // path plus optional ?query, as sent by the client
	Proto   string
	Headers []Header
	Body    []byte
}

// Header returns the value of the first header with the given name, or ""
func (r *Request) Header(name string) string {
	for _, h := range r.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

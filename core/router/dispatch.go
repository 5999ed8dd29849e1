package router

import (
	"log"
	"strconv"
	"strings"

	"github.com/searchktools/chat-server/chat"
	"github.com/searchktools/chat-server/core/http"
	"github.com/searchktools/chat-server/core/metrics"
)

// Values holds decoded query-string pairs. Percent-decoding is left to
// the handlers that care.
type Values map[string]string

// Handler produces a response for one decoded request. Application state
// is passed explicitly; query is nil when the target has no query
// component.
type Handler func(svc *chat.Service, params Params, query Values, req *http.Request) *http.Response

// Builder is the open registration phase of the route table. Routes must
// all be registered before Build; the table is immutable afterwards.
type Builder struct {
	trees map[string]*tree
}

// NewBuilder creates an empty builder with one tree per supported method
func NewBuilder() *Builder {
	return &Builder{trees: map[string]*tree{
		http.MethodGet:  newTree(),
		http.MethodPost: newTree(),
	}}
}

// Register adds a route. Registering a duplicate (method, pattern) pair
// or a malformed pattern is a programming error and panics.
func (b *Builder) Register(method, pattern string, h Handler) *Builder {
	t, ok := b.trees[method]
	if !ok {
		panic("router: unsupported method " + method)
	}
	t.add(pattern, h)
	return b
}

// Build freezes the route table and binds it to the application state
func (b *Builder) Build(svc *chat.Service) *Dispatcher {
	return &Dispatcher{trees: b.trees, svc: svc}
}

// Dispatcher turns one decoded request into one response. The trees are
// read-only after Build and the service handle is touched only from the
// reactor thread, so no synchronization anywhere.
type Dispatcher struct {
	trees map[string]*tree
	svc   *chat.Service
}

// Dispatch resolves the route for the request, decodes the query string
// if one is present, and invokes the matched handler. The handler's
// response is returned unchanged.
func (d *Dispatcher) Dispatch(req *http.Request) *http.Response {
	path := req.Target
	var query Values
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		query = parseQuery(path[idx+1:])
		path = path[:idx]
	}

	var resp *http.Response
	if t := d.trees[req.Method]; t == nil {
		resp = http.NotFound()
	} else if h, params := t.find(path); h == nil {
		log.Printf("unknown route %s %s", req.Method, path)
		resp = http.NotFound()
	} else {
		resp = h(d.svc, params, query, req)
	}

	if resp.Status != http.StatusOK {
		log.Printf("%s %s -> %d %s", req.Method, req.Target, resp.Status, resp.Body)
	}
	metrics.RequestsTotal.WithLabelValues(req.Method, strconv.Itoa(resp.Status)).Inc()

	return resp
}

// parseQuery splits ampersand-separated, optionally equals-separated
// pairs; values stay raw.
func parseQuery(q string) Values {
	values := make(Values)
	for _, pair := range strings.Split(q, "&") {
		if pair == "" {
			continue
		}
		if eq := strings.IndexByte(pair, '='); eq != -1 {
			values[pair[:eq]] = pair[eq+1:]
		} else {
			values[pair] = ""
		}
	}
	return values
}

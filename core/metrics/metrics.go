// Package metrics exposes the server's Prometheus collectors. The reactor
// does not host net/http handlers, so exposition is rendered to bytes and
// served through a regular route.
package metrics

import (
	"bytes"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "chatserver"

// ContentType is the text exposition content type
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

var (
	// ConnectionsAccepted counts connections accepted by the reactor
	ConnectionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_accepted_total",
		Help:      "Connections accepted by the reactor.",
	})

	// ConnectionsActive tracks currently open connections
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Currently open client connections.",
	})

	// ParseErrors counts read cycles aborted by a malformed message
	ParseErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_errors_total",
		Help:      "Read cycles aborted by a malformed wire message.",
	})

	// RequestsTotal counts dispatched requests by method and status
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Dispatched requests by method and response status.",
	}, []string{"method", "status"})

	// BytesRead counts payload bytes read off client sockets
	BytesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_read_total",
		Help:      "Bytes read from client sockets.",
	})

	// BytesWritten counts response bytes written to client sockets
	BytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bytes_written_total",
		Help:      "Bytes written to client sockets.",
	})
)

// Render encodes the default registry in the Prometheus text format
func Render() ([]byte, error) {
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

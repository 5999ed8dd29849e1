package metrics

import (
	"strings"
	"testing"
)

// TestRenderContainsCollectors renders the registered families in the
// text exposition format
func TestRenderContainsCollectors(t *testing.T) {
	ConnectionsAccepted.Inc()
	ParseErrors.Inc()
	RequestsTotal.WithLabelValues("GET", "200").Inc()

	out, err := Render()
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(out)
	for _, name := range []string{
		"chatserver_connections_accepted_total",
		"chatserver_connections_active",
		"chatserver_parse_errors_total",
		"chatserver_requests_total",
		"chatserver_bytes_read_total",
		"chatserver_bytes_written_total",
	} {
		if !strings.Contains(text, name) {
			t.Errorf("Exposition missing %s", name)
		}
	}

	if !strings.Contains(text, `method="GET"`) || !strings.Contains(text, `status="200"`) {
		t.Error("Exposition missing request labels")
	}
}

// TestContentType pins the text exposition content type served on
// /metrics
func TestContentType(t *testing.T) {
	if !strings.HasPrefix(ContentType, "text/plain; version=0.0.4") {
		t.Errorf("Unexpected content type %q", ContentType)
	}
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestObserveOnNilReceiverIsSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("GET", "/api/v1/phones", 200, time.Millisecond)
}

func TestObserveRegistersSamples(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("GET", "/api/v1/phones", 200, 5*time.Millisecond)
	m.Observe("POST", "/api/v1/cart/items", 503, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(families) != 2 {
		t.Fatalf("expected 2 metric families, got %d", len(families))
	}
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 302: "3xx", 404: "4xx", 500: "5xx"}
	for status, expected := range cases {
		if got := statusClass(status); got != expected {
			t.Fatalf("status %d: expected %s got %s", status, expected, got)
		}
	}
}

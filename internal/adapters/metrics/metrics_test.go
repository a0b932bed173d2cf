package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atvirokodosprendimai/mongoschema/internal/adapters/metrics"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metric:
		for _, m := range family.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metric
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestObserveOperation(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveOperation("ensure_collection", "created")
	m.ObserveOperation("ensure_collection", "created")
	m.ObserveOperation("update_validator", "not_found")

	if got := counterValue(t, reg, "mongoschema_schema_operations_total", map[string]string{"operation": "ensure_collection", "outcome": "created"}); got != 2 {
		t.Fatalf("created count = %v, want 2", got)
	}
	if got := counterValue(t, reg, "mongoschema_schema_operations_total", map[string]string{"operation": "update_validator", "outcome": "not_found"}); got != 1 {
		t.Fatalf("not_found count = %v, want 1", got)
	}
}

func TestObserveDispatch(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	m.ObserveDispatch("succeeded")
	m.ObserveDispatch("dead")

	if got := counterValue(t, reg, "mongoschema_outbox_dispatch_total", map[string]string{"result": "dead"}); got != 1 {
		t.Fatalf("dead count = %v, want 1", got)
	}
}

func TestHandlerServesTextFormat(t *testing.T) {
	m := metrics.New()
	m.ObserveOperation("ensure_collection", "already_exists")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `mongoschema_schema_operations_total{operation="ensure_collection",outcome="already_exists"} 1`) {
		t.Fatalf("metric missing from output:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Fatal("expected runtime collector output")
	}
}

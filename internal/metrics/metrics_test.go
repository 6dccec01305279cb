package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestRPCClientRecords(t *testing.T) {
	m := NewRPCClient()
	start := time.Now().Add(-200 * time.Millisecond)

	if inc := delta(t, rpcRequestsTotal.WithLabelValues("getblock", "success"), func() {
		m.Observe("getblock", nil, start)
	}); inc != 1 {
		t.Fatalf("expected rpc call counter increment, got %v", inc)
	}

	m.Observe("getblock", errors.New("boom"), start)
}

func TestOrchestratorRecords(t *testing.T) {
	m := NewOrchestrator()
	start := time.Now().Add(-time.Second)

	if inc := delta(t, syncTotal.WithLabelValues("success"), func() {
		m.ObserveSync(nil, start)
	}); inc != 1 {
		t.Fatalf("expected sync counter increment, got %v", inc)
	}

	if inc := delta(t, chunkTotal.WithLabelValues("error"), func() {
		m.ObserveChunk(errors.New("fail"), 50, start)
	}); inc != 1 {
		t.Fatalf("expected chunk error counter increment, got %v", inc)
	}
}

func TestStoreRecords(t *testing.T) {
	m := NewStore()
	start := time.Now().Add(-time.Millisecond)

	if inc := delta(t, storeRequestsTotal.WithLabelValues("persist_chunk", "success"), func() {
		m.Observe("persist_chunk", nil, start)
	}); inc != 1 {
		t.Fatalf("expected store counter increment, got %v", inc)
	}
}

package observability

import (
	"testing"
	"time"
)

func TestMetricsNilReceiver(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/x", "GET", 200, time.Millisecond)
	m.RecordTransition("assign", true)
	if snap := m.Snapshot(); snap.Requests != nil {
		t.Fatalf("nil metrics produced counters: %+v", snap)
	}
}

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/health/live", "GET", 200, 2*time.Millisecond)
	m.RecordRequest("/health/live", "GET", 200, 4*time.Millisecond)
	m.RecordRequest("/repair-orders", "POST", 201, 0)
	m.RecordError("/repair-orders", "POST", "VALIDATION_FAILED")
	m.RecordTransition("assign", true)
	m.RecordTransition("assign", false)
	m.RecordTransition("assign", false)

	snap := m.Snapshot()
	if snap.Requests["/health/live|GET|200"] != 2 {
		t.Fatalf("requests = %v", snap.Requests)
	}
	if snap.Errors["/repair-orders|POST|VALIDATION_FAILED"] != 1 {
		t.Fatalf("errors = %v", snap.Errors)
	}
	if snap.Transitions["assign"] != 1 || snap.RejectedTransitions["assign"] != 2 {
		t.Fatalf("transitions = %v rejected = %v", snap.Transitions, snap.RejectedTransitions)
	}
	if snap.AverageLatencyMillis != 2 {
		t.Fatalf("average latency = %v", snap.AverageLatencyMillis)
	}
	top := snap.TopRequests(1)
	if len(top) != 1 || top[0] != "/health/live|GET|200" {
		t.Fatalf("top = %v", top)
	}

	snap.Requests["tamper"] = 1
	if _, ok := m.Snapshot().Requests["tamper"]; ok {
		t.Fatalf("snapshot shares map with metrics")
	}
}

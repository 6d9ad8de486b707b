package observability

import (
	"sort"
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu              sync.Mutex
	startedAt       time.Time
	requestCount    map[string]int64
	errorCount      map[string]int64
	transitionCount map[string]int64
	rejectedCount   map[string]int64
	totalLatency    time.Duration
	requests        int64
}

// MetricsSnapshot is a point-in-time copy of the counters.
type MetricsSnapshot struct {
	UptimeSeconds        int64            `json:"uptimeSeconds"`
	Requests             map[string]int64 `json:"requests"`
	Errors               map[string]int64 `json:"errors"`
	Transitions          map[string]int64 `json:"transitions"`
	RejectedTransitions  map[string]int64 `json:"rejectedTransitions"`
	AverageLatencyMillis float64          `json:"averageLatencyMs"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		startedAt:       time.Now(),
		requestCount:    make(map[string]int64),
		errorCount:      make(map[string]int64),
		transitionCount: make(map[string]int64),
		rejectedCount:   make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
	m.requests++
	m.totalLatency += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordTransition counts a lifecycle action, split by whether the engine accepted it.
func (m *Metrics) RecordTransition(action string, accepted bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if accepted {
		m.transitionCount[action]++
		return
	}
	m.rejectedCount[action]++
}

// Snapshot copies the current counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := MetricsSnapshot{
		UptimeSeconds:       int64(time.Since(m.startedAt).Seconds()),
		Requests:            copyCounts(m.requestCount),
		Errors:              copyCounts(m.errorCount),
		Transitions:         copyCounts(m.transitionCount),
		RejectedTransitions: copyCounts(m.rejectedCount),
	}
	if m.requests > 0 {
		snap.AverageLatencyMillis = float64(m.totalLatency.Microseconds()) / float64(m.requests) / 1000
	}
	return snap
}

// TopRequests returns request keys ordered by count, most frequent first.
func (s MetricsSnapshot) TopRequests(n int) []string {
	keys := make([]string, 0, len(s.Requests))
	for key := range s.Requests {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if s.Requests[keys[i]] != s.Requests[keys[j]] {
			return s.Requests[keys[i]] > s.Requests[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if n > 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

func copyCounts(in map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}

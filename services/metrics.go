package services

import (
	"sort"
	"strings"
	"sync"
)

type timing struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Max   float64 `json:"max"`
}

// Metrics is an in-process counter set exposed on /metrics. It implements
// ratelimit.MetricsRecorder.
type Metrics struct {
	mu       sync.Mutex
	counters map[string]float64
	timings  map[string]*timing
}

func NewMetrics() *Metrics {
	return &Metrics{
		counters: make(map[string]float64),
		timings:  make(map[string]*timing),
	}
}

func (m *Metrics) Add(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[metricKey(name, tags)] += value
}

func (m *Metrics) Observe(name string, value float64, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := metricKey(name, tags)
	t, ok := m.timings[key]
	if !ok {
		t = &timing{}
		m.timings[key] = t
	}
	t.Count++
	t.Sum += value
	if value > t.Max {
		t.Max = value
	}
}

func (m *Metrics) Counter(name string, tags map[string]string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[metricKey(name, tags)]
}

func (m *Metrics) Snapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	counters := make(map[string]float64, len(m.counters))
	for k, v := range m.counters {
		counters[k] = v
	}
	timings := make(map[string]timing, len(m.timings))
	for k, v := range m.timings {
		timings[k] = *v
	}
	return map[string]any{"counters": counters, "timings": timings}
}

// metricKey renders name{k=v,...} with tags sorted by key.
func metricKey(name string, tags map[string]string) string {
	if len(tags) == 0 {
		return name
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k + "=" + tags[k])
	}
	b.WriteByte('}')
	return b.String()
}

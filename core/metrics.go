package core

import (
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitEvent is one observation of the service rate limiting a request.
type RateLimitEvent struct {
	// Timestamp is when the event was recorded.
	Timestamp time.Time `json:"timestamp"`

	// Endpoint is the request path that was limited.
	Endpoint string `json:"endpoint"`

	// StatusCode is the HTTP status, typically 429.
	StatusCode int `json:"status_code"`

	// RetryAfter is the server's Retry-After hint in seconds, if present.
	RetryAfter *int `json:"retry_after"`

	// RequestCount is the number of requests this event accounts for.
	RequestCount int `json:"request_count"`

	// RemainingRequests is the X-RateLimit-Remaining estimate, if present.
	RemainingRequests *int `json:"remaining_requests"`

	// Method is the HTTP method of the limited request.
	Method string `json:"method"`
}

// RateLimitSummary aggregates the retained events.
type RateLimitSummary struct {
	TotalEvents      int            `json:"total_events"`
	EventsByEndpoint map[string]int `json:"events_by_endpoint"`
	EventsByStatus   map[int]int    `json:"events_by_status"`
	AvgRetryAfter    float64        `json:"avg_retry_after"`
	FirstEventAt     time.Time      `json:"first_event_at"`
	LastEventAt      time.Time      `json:"last_event_at"`
	UniqueEndpoints  int            `json:"unique_endpoints"`
}

// RateLimitMetrics records rate-limit events into a bounded ring buffer.
// All methods are safe for concurrent use; reads take a snapshot under the
// same lock that guards writes, so any query observing an event also
// observes every event recorded before it.
type RateLimitMetrics struct {
	mu        sync.Mutex
	buf       []RateLimitEvent
	head      int // index of the oldest retained event
	count     int
	retention int
	now       func() time.Time
}

// NewRateLimitMetrics returns a recorder retaining at most retention events,
// evicting the oldest first. A non-positive retention uses the default.
func NewRateLimitMetrics(retention int) *RateLimitMetrics {
	if retention <= 0 {
		retention = DefaultMetricsRetention
	}
	return &RateLimitMetrics{
		buf:       make([]RateLimitEvent, retention),
		retention: retention,
		now:       time.Now,
	}
}

// Record appends an event, evicting the oldest when the retention bound is
// exceeded. A zero Timestamp is filled with the current time.
func (m *RateLimitMetrics) Record(event RateLimitEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now()
	}
	if event.RequestCount == 0 {
		event.RequestCount = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.count < m.retention {
		m.buf[(m.head+m.count)%m.retention] = event
		m.count++
		return
	}
	m.buf[m.head] = event
	m.head = (m.head + 1) % m.retention
}

// snapshotLocked copies the retained events in insertion order.
func (m *RateLimitMetrics) snapshotLocked() []RateLimitEvent {
	out := make([]RateLimitEvent, m.count)
	for i := 0; i < m.count; i++ {
		out[i] = m.buf[(m.head+i)%m.retention]
	}
	return out
}

// Events returns all retained events in insertion order.
func (m *RateLimitMetrics) Events() []RateLimitEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// EventsFor returns retained events filtered by endpoint and an inclusive
// time window, in insertion order. An empty endpoint matches all endpoints;
// zero times leave that bound open.
func (m *RateLimitMetrics) EventsFor(endpoint string, since, until time.Time) []RateLimitEvent {
	events := m.Events()
	out := events[:0:0]
	for _, e := range events {
		if endpoint != "" && e.Endpoint != endpoint {
			continue
		}
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && e.Timestamp.After(until) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Summary aggregates the retained events. AvgRetryAfter averages only the
// events that carried a Retry-After hint.
func (m *RateLimitMetrics) Summary() RateLimitSummary {
	events := m.Events()

	summary := RateLimitSummary{
		TotalEvents:      len(events),
		EventsByEndpoint: make(map[string]int),
		EventsByStatus:   make(map[int]int),
	}
	if len(events) == 0 {
		return summary
	}

	var retrySum, retryCount int
	for _, e := range events {
		summary.EventsByEndpoint[e.Endpoint]++
		summary.EventsByStatus[e.StatusCode]++
		if e.RetryAfter != nil {
			retrySum += *e.RetryAfter
			retryCount++
		}
	}
	if retryCount > 0 {
		summary.AvgRetryAfter = float64(retrySum) / float64(retryCount)
	}
	summary.FirstEventAt = events[0].Timestamp
	summary.LastEventAt = events[len(events)-1].Timestamp
	summary.UniqueEndpoints = len(summary.EventsByEndpoint)
	return summary
}

// ExportJSON renders the retained events as a JSON array in insertion order.
func (m *RateLimitMetrics) ExportJSON() (string, error) {
	data, err := json.MarshalIndent(m.Events(), "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ExportCSV renders the retained events as CSV: a header line followed by
// one row per event in insertion order. Absent optional fields are empty.
func (m *RateLimitMetrics) ExportCSV() string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	_ = w.Write([]string{
		"timestamp", "endpoint", "status_code", "retry_after",
		"request_count", "remaining_requests", "method",
	})
	for _, e := range m.Events() {
		retryAfter := ""
		if e.RetryAfter != nil {
			retryAfter = strconv.Itoa(*e.RetryAfter)
		}
		remaining := ""
		if e.RemainingRequests != nil {
			remaining = strconv.Itoa(*e.RemainingRequests)
		}
		_ = w.Write([]string{
			e.Timestamp.Format(time.RFC3339Nano),
			e.Endpoint,
			strconv.Itoa(e.StatusCode),
			retryAfter,
			strconv.Itoa(e.RequestCount),
			remaining,
			e.Method,
		})
	}
	w.Flush()
	return sb.String()
}

// Reset empties the buffer.
func (m *RateLimitMetrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = 0
	m.count = 0
}

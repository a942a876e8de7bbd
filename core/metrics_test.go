package core

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMetricsRecordAndSummary(t *testing.T) {
	m := NewRateLimitMetrics(100)

	// Three 429 events: retry_after 1, 3, 5 on endpoints A, A, B.
	m.Record(RateLimitEvent{Endpoint: "A", StatusCode: 429, RetryAfter: intPtr(1), Method: "GET"})
	m.Record(RateLimitEvent{Endpoint: "A", StatusCode: 429, RetryAfter: intPtr(3), Method: "GET"})
	m.Record(RateLimitEvent{Endpoint: "B", StatusCode: 429, RetryAfter: intPtr(5), Method: "POST"})

	s := m.Summary()
	if s.TotalEvents != 3 {
		t.Errorf("TotalEvents = %d, want 3", s.TotalEvents)
	}
	if s.EventsByEndpoint["A"] != 2 || s.EventsByEndpoint["B"] != 1 {
		t.Errorf("EventsByEndpoint = %v", s.EventsByEndpoint)
	}
	if s.EventsByStatus[429] != 3 {
		t.Errorf("EventsByStatus = %v", s.EventsByStatus)
	}
	if s.AvgRetryAfter != 3.0 {
		t.Errorf("AvgRetryAfter = %v, want 3.0", s.AvgRetryAfter)
	}
	if s.UniqueEndpoints != 2 {
		t.Errorf("UniqueEndpoints = %d, want 2", s.UniqueEndpoints)
	}
	if s.FirstEventAt.After(s.LastEventAt) {
		t.Error("FirstEventAt after LastEventAt")
	}
}

func TestMetricsRetention(t *testing.T) {
	const retention = 10
	const total = 25
	m := NewRateLimitMetrics(retention)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < total; i++ {
		m.Record(RateLimitEvent{
			Timestamp:  base.Add(time.Duration(i) * time.Second),
			Endpoint:   "models",
			StatusCode: 429,
		})
	}

	events := m.Events()
	if len(events) != retention {
		t.Fatalf("len(events) = %d, want %d", len(events), retention)
	}
	// The oldest retained event is the (total-retention+1)-th recorded.
	wantFirst := base.Add(time.Duration(total-retention) * time.Second)
	if !events[0].Timestamp.Equal(wantFirst) {
		t.Errorf("oldest = %v, want %v", events[0].Timestamp, wantFirst)
	}
	if s := m.Summary(); s.TotalEvents != retention {
		t.Errorf("Summary.TotalEvents = %d, want %d", s.TotalEvents, retention)
	}
}

func TestMetricsEventsForFilters(t *testing.T) {
	m := NewRateLimitMetrics(100)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	m.Record(RateLimitEvent{Timestamp: base, Endpoint: "A", StatusCode: 429})
	m.Record(RateLimitEvent{Timestamp: base.Add(time.Minute), Endpoint: "B", StatusCode: 429})
	m.Record(RateLimitEvent{Timestamp: base.Add(2 * time.Minute), Endpoint: "A", StatusCode: 429})

	t.Run("by endpoint", func(t *testing.T) {
		got := m.EventsFor("A", time.Time{}, time.Time{})
		if len(got) != 2 {
			t.Fatalf("len = %d, want 2", len(got))
		}
		if !got[0].Timestamp.Before(got[1].Timestamp) {
			t.Error("events out of insertion order")
		}
	})

	t.Run("window inclusive", func(t *testing.T) {
		got := m.EventsFor("", base, base.Add(time.Minute))
		if len(got) != 2 {
			t.Errorf("len = %d, want 2 (bounds inclusive)", len(got))
		}
	})

	t.Run("no match", func(t *testing.T) {
		if got := m.EventsFor("C", time.Time{}, time.Time{}); len(got) != 0 {
			t.Errorf("len = %d, want 0", len(got))
		}
	})
}

func TestMetricsExportCSV(t *testing.T) {
	m := NewRateLimitMetrics(100)
	m.Record(RateLimitEvent{Endpoint: "A", StatusCode: 429, RetryAfter: intPtr(1), Method: "GET"})
	m.Record(RateLimitEvent{Endpoint: "A", StatusCode: 429, RetryAfter: intPtr(3), Method: "GET"})
	m.Record(RateLimitEvent{Endpoint: "B", StatusCode: 429, RetryAfter: intPtr(5), Method: "POST"})

	out := m.ExportCSV()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("CSV lines = %d, want header + 3 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "timestamp,endpoint,status_code") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], ",A,429,1,") {
		t.Errorf("row 1 = %q", lines[1])
	}
	if !strings.Contains(lines[3], ",B,429,5,") {
		t.Errorf("row 3 = %q", lines[3])
	}
}

func TestMetricsExportJSON(t *testing.T) {
	m := NewRateLimitMetrics(100)
	m.Record(RateLimitEvent{Endpoint: "models", StatusCode: 429})

	out, err := m.ExportJSON()
	if err != nil {
		t.Fatal(err)
	}
	var decoded []RateLimitEvent
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(decoded) != 1 || decoded[0].Endpoint != "models" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewRateLimitMetrics(100)
	m.Record(RateLimitEvent{Endpoint: "A", StatusCode: 429})
	m.Reset()
	if s := m.Summary(); s.TotalEvents != 0 {
		t.Errorf("TotalEvents after Reset = %d, want 0", s.TotalEvents)
	}
	if len(m.Events()) != 0 {
		t.Error("Events() not empty after Reset")
	}
}

// Concurrent writers never lose events below the retention bound.
func TestMetricsConcurrentRecord(t *testing.T) {
	const writers = 8
	const perWriter = 200
	m := NewRateLimitMetrics(writers * perWriter)

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				m.Record(RateLimitEvent{Endpoint: "ep", StatusCode: 429})
			}
		}(w)
	}
	wg.Wait()

	if s := m.Summary(); s.TotalEvents != writers*perWriter {
		t.Errorf("TotalEvents = %d, want %d", s.TotalEvents, writers*perWriter)
	}
}

func TestMetricsDefaultRetention(t *testing.T) {
	m := NewRateLimitMetrics(0)
	if m.retention != DefaultMetricsRetention {
		t.Errorf("retention = %d, want %d", m.retention, DefaultMetricsRetention)
	}
}

package core

import "time"

// TelemetryHook receives notifications about the transport request
// lifecycle. Implementations can use this for logging, metrics, or tracing.
//
// Event types never include sensitive data: no API keys, no request bodies,
// no response payloads. Only operational metadata (method, path, status,
// timing) is exposed, so telemetry can be exported safely.
type TelemetryHook interface {
	// OnRequestStart is called once per logical call, before the first attempt.
	OnRequestStart(e RequestStartEvent)

	// OnRequestEnd is called once per logical call, after the final attempt.
	OnRequestEnd(e RequestEndEvent)

	// OnRetry is called before each retry sleep.
	OnRetry(e RetryEvent)

	// OnRateLimit is called for every 429 response observed.
	OnRateLimit(e RateLimitEvent)
}

// RequestStartEvent contains metadata about a starting call.
type RequestStartEvent struct {
	Method string
	Path   string
	Start  time.Time
}

// RequestEndEvent contains metadata about a completed call.
type RequestEndEvent struct {
	Method   string
	Path     string
	Status   int // 0 when no response was received
	Attempts int
	Start    time.Time
	End      time.Time
	Err      error
}

// Duration returns the elapsed wall-clock time across all attempts.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// RetryEvent contains metadata about an upcoming retry.
type RetryEvent struct {
	Method  string
	Path    string
	Attempt int // the attempt that just failed, 1-indexed
	Status  int // 0 for transport errors
	Delay   time.Duration
}

// NoopTelemetryHook is the default hook; it drops every event.
type NoopTelemetryHook struct{}

func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent)     {}
func (NoopTelemetryHook) OnRetry(RetryEvent)               {}
func (NoopTelemetryHook) OnRateLimit(RateLimitEvent)       {}

var _ TelemetryHook = NoopTelemetryHook{}

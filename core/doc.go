// Package core implements the transport layer shared by every Venice API
// surface: configuration resolution, the pooled HTTP engine with retry and
// rate-limit accounting, the server-sent-event decoder, and the credential
// file API used by the CLI.
//
// # Client
//
// The primary entry point is [Client], which owns a pooled HTTP transport and
// exposes the five request primitives that endpoint packages build on:
//
//	cfg, err := core.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	client := core.NewClient(cfg)
//	raw, err := client.Get(ctx, "models", nil)
//
// [Client.Get], [Client.Post] and [Client.Delete] return decoded JSON bodies as
// json.RawMessage. [Client.PostRaw] returns the response body as a byte stream
// for binary payloads such as synthesized audio. [Client.Stream] returns an
// [SSEStream] over a text/event-stream response.
//
// All calls routed through the engine are assumed idempotent: POST requests are
// retried on 5xx and transport errors under the same policy as GETs. Callers
// issuing POSTs with side effects (key creation, video queueing) inherit that
// assumption.
//
// # Configuration
//
// [LoadConfig] merges explicit overrides, process environment, a local .env
// file and (when VENICE_USE_GLOBAL_CONFIG is truthy) a global .env under the
// platform config directory, in that precedence order. See [ResolveConfig] for
// the underlying source pipeline.
//
// # Error Handling
//
// Failures surface as *[APIError] values wrapping one of the package
// sentinels:
//   - [ErrConfig]: invalid or incomplete configuration
//   - [ErrConnection]: transport failure before any HTTP response
//   - [ErrUnauthorized]: HTTP 401
//   - [ErrRateLimited]: HTTP 429, with Retry-After in the error context
//   - [ErrNotFound], [ErrModelNotFound], [ErrCharacterNotFound]: HTTP 404
//   - [ErrInvalidRequest]: other 4xx
//   - [ErrServer]: 5xx after retries are exhausted
//   - [ErrTimeout]: an async wait exceeded its budget (matches [ErrServer])
//   - [ErrDecode]: a body that had to be JSON was not
//
// Use errors.Is to classify:
//
//	if errors.Is(err, core.ErrRateLimited) {
//	    // back off
//	}
//
// # Thread Safety
//
// [Client] and [RateLimitMetrics] are safe for concurrent use. An [SSEStream]
// is owned by a single consumer.
package core

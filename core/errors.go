package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

// Sentinel errors for classification. Every error surfaced by the engine
// wraps exactly one of these, so callers can dispatch with errors.Is.
var (
	ErrConfig         = errors.New("configuration error")
	ErrConnection     = errors.New("connection error")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrRateLimited    = errors.New("rate limited")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("not found")
	ErrServer         = errors.New("server error")
	ErrDecode         = errors.New("decode error")
)

// Sub-kind sentinels. These match both themselves and their parent kind:
// errors.Is(err, ErrModelNotFound) implies errors.Is(err, ErrNotFound).
var (
	ErrModelNotFound     = subKind("model not found", ErrNotFound)
	ErrCharacterNotFound = subKind("character not found", ErrNotFound)
	ErrTimeout           = subKind("timeout", ErrServer)
)

// subKindError is a sentinel that also matches its parent kind.
type subKindError struct {
	msg    string
	parent error
}

func subKind(msg string, parent error) error {
	return &subKindError{msg: msg, parent: parent}
}

func (e *subKindError) Error() string { return e.msg }
func (e *subKindError) Unwrap() error { return e.parent }

// Canonical error codes returned by the service in the body's error.code
// field. The 404 codes select the not-found sub-kind.
const (
	CodeModelNotFound     = "MODEL_NOT_FOUND"
	CodeCharacterNotFound = "CHARACTER_NOT_FOUND"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
)

// APIError is the single rich error type surfaced by the transport. It
// carries the canonical code and HTTP status when known, a context map with
// request identity (method, path, request id, retry_after), and both the
// sentinel kind and the underlying cause in its unwrap chain.
type APIError struct {
	// Status is the HTTP status code, or 0 for failures before any response.
	Status int

	// Code is the canonical error code from the body's error.code field,
	// empty when the service did not provide one.
	Code string

	// Message is the human-readable error message.
	Message string

	// RequestID is the x-request-id response header, if present.
	RequestID string

	// RetryAfter is the parsed Retry-After header in seconds. Nil when the
	// header was absent or not in delta-seconds form.
	RetryAfter *int

	// Context carries request identity: method, path, request_id, retry_after.
	Context map[string]string

	// Kind is the sentinel this error matches (ErrRateLimited, ErrServer, ...).
	Kind error

	// Cause is the underlying error, preserved for diagnostics.
	Cause error
}

// Error renders the form "[CODE] message (HTTP S; Context: k=v, ...)".
// Code and status are omitted when unknown; context keys print sorted.
func (e *APIError) Error() string {
	var sb strings.Builder
	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("] ")
	}
	sb.WriteString(e.Message)

	var parts []string
	if e.Status != 0 {
		parts = append(parts, "HTTP "+strconv.Itoa(e.Status))
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+e.Context[k])
		}
		parts = append(parts, "Context: "+strings.Join(pairs, ", "))
	}
	if len(parts) > 0 {
		sb.WriteString(" (")
		sb.WriteString(strings.Join(parts, "; "))
		sb.WriteString(")")
	}
	return sb.String()
}

// Unwrap exposes both the sentinel kind and the underlying cause, so
// errors.Is works against either chain.
func (e *APIError) Unwrap() []error {
	var chain []error
	if e.Kind != nil {
		chain = append(chain, e.Kind)
	}
	if e.Cause != nil {
		chain = append(chain, e.Cause)
	}
	return chain
}

// errorBody is the service's error envelope. The error field may also be a
// bare string; parseErrorBody handles that form.
type errorBody struct {
	Error struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		RetryAfter *int   `json:"retry_after"`
	} `json:"error"`
}

// parseErrorBody extracts the canonical code and message from a response
// body. Bodies that are not JSON, or JSON with a string error field, fall
// back to the raw text.
func parseErrorBody(body []byte) (code, message string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Code, eb.Error.Message
	}
	var stringForm struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &stringForm); err == nil && stringForm.Error != "" {
		return "", stringForm.Error
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return "", text
	}
	return "", ""
}

// kindForStatus maps an HTTP status and canonical code to a sentinel.
func kindForStatus(status int, code string) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusNotFound:
		switch code {
		case CodeModelNotFound:
			return ErrModelNotFound
		case CodeCharacterNotFound:
			return ErrCharacterNotFound
		default:
			return ErrNotFound
		}
	case status >= 400 && status < 500:
		return ErrInvalidRequest
	default:
		return ErrServer
	}
}

// retryAfterSeconds parses a Retry-After header in delta-seconds form.
// HTTP-date forms are ignored.
func retryAfterSeconds(header http.Header) *int {
	raw := header.Get("Retry-After")
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return nil
	}
	return &n
}

// newStatusError builds the APIError for a non-2xx response.
func newStatusError(status int, body []byte, header http.Header, method, path string) *APIError {
	code, message := parseErrorBody(body)
	if message == "" {
		message = http.StatusText(status)
	}

	apiErr := &APIError{
		Status:  status,
		Code:    code,
		Message: message,
		Kind:    kindForStatus(status, code),
		Context: map[string]string{
			"method": method,
			"path":   path,
		},
	}

	if id := header.Get("x-request-id"); id != "" {
		apiErr.RequestID = id
		apiErr.Context["request_id"] = id
	}
	if ra := retryAfterSeconds(header); ra != nil {
		apiErr.RetryAfter = ra
		apiErr.Context["retry_after"] = strconv.Itoa(*ra)
	}
	return apiErr
}

// newConnectionError wraps a transport failure that happened before any HTTP
// response was received.
func newConnectionError(cause error, method, path string, context map[string]string) *APIError {
	ctx := map[string]string{
		"method": method,
		"path":   path,
	}
	for k, v := range context {
		ctx[k] = v
	}
	return &APIError{
		Message: "request failed: " + cause.Error(),
		Kind:    ErrConnection,
		Cause:   cause,
		Context: ctx,
	}
}

// decodePreviewLimit bounds how many offending bytes a decode error carries.
const decodePreviewLimit = 256

// newDecodeError wraps a JSON or SSE framing failure, attaching a bounded
// preview of the offending bytes.
func newDecodeError(cause error, payload []byte) *APIError {
	preview := payload
	if len(preview) > decodePreviewLimit {
		preview = preview[:decodePreviewLimit]
	}
	return &APIError{
		Message: "failed to decode response: " + cause.Error(),
		Kind:    ErrDecode,
		Cause:   cause,
		Context: map[string]string{"preview": string(preview)},
	}
}

// newConfigError reports an invalid or missing configuration value.
func newConfigError(message string, cause error) *APIError {
	return &APIError{
		Message: message,
		Kind:    ErrConfig,
		Cause:   cause,
	}
}

// configValueError reports a value that failed coercion, naming the key.
func configValueError(key, value string, cause error) *APIError {
	return newConfigError(fmt.Sprintf("invalid value for %s: %q", key, value), cause)
}

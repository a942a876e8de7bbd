package venice

import (
	"testing"

	"github.com/venice-ai/venice-go/core"
)

// newTestClient builds a client against a test server with retries tuned
// for fast tests.
func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg, err := core.ResolveConfig(core.MapSource{
		core.EnvAPIKey:             "test-key",
		core.EnvBaseURL:            serverURL,
		core.EnvRetryBackoffFactor: "0.001",
	})
	if err != nil {
		t.Fatalf("ResolveConfig() error = %v", err)
	}
	return NewWithConfig(cfg)
}

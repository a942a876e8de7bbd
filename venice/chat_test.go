package venice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChatComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Stream {
			t.Error("Complete must not set stream")
		}
		if req.Model != "venice-uncensored" {
			t.Errorf("model = %q", req.Model)
		}
		fmt.Fprint(w, `{
			"id": "chatcmpl-1",
			"model": "venice-uncensored",
			"choices": [{"index":0,"message":{"role":"assistant","content":"Hi there"},"finish_reason":"stop"}],
			"usage": {"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}
		}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	resp, err := c.Chat.Complete(context.Background(), &ChatRequest{
		Model:    "venice-uncensored",
		Messages: []Message{{Role: RoleUser, Content: "Hello"}},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got := resp.Text(); got != "Hi there" {
		t.Errorf("Text() = %q", got)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d", resp.Usage.TotalTokens)
	}
}

// Two content deltas followed by [DONE] yield two chunks and "Hello".
func TestChatStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if !req.Stream {
			t.Error("Stream must set stream=true")
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	stream, err := c.Chat.Stream(context.Background(), &ChatRequest{
		Model:    "venice-uncensored",
		Messages: []Message{{Role: RoleUser, Content: "Say hello"}},
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	defer stream.Close()

	var deltas []string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv() error = %v", err)
		}
		deltas = append(deltas, chunk.Delta())
	}

	if len(deltas) != 2 {
		t.Fatalf("chunks = %d, want 2", len(deltas))
	}
	if got := deltas[0] + deltas[1]; got != "Hello" {
		t.Errorf("concatenated = %q, want Hello", got)
	}
}

func TestChatStreamCollect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"He\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"llo\"}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	stream, err := c.Chat.Stream(context.Background(), &ChatRequest{
		Model:    "venice-uncensored",
		Messages: []Message{{Role: RoleUser, Content: "Say hello"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	got, err := stream.Collect()
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got != "Hello" {
		t.Errorf("Collect() = %q, want Hello", got)
	}
}

func TestChatStreamToolCallDeltas(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"tool_calls\":[{\"id\":\"call_1\",\"type\":\"function\",\"function\":{\"name\":\"get_weather\",\"arguments\":\"{}\"}}]}}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	stream, err := c.Chat.Stream(context.Background(), &ChatRequest{
		Model:    "venice-uncensored",
		Messages: []Message{{Role: RoleUser, Content: "Weather?"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()

	chunk, err := stream.Recv()
	if err != nil {
		t.Fatal(err)
	}
	calls := chunk.Choices[0].Delta.ToolCalls
	if len(calls) != 1 || calls[0].Function.Name != "get_weather" {
		t.Errorf("tool calls = %+v", calls)
	}
}

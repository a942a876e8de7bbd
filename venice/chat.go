package venice

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/venice-ai/venice-go/core"
)

// chatCompletionsPath is the API endpoint for chat completions.
const chatCompletionsPath = "chat/completions"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction describes a callable function's name and JSON-schema
// parameters.
type ToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ToolCall is a model-issued function invocation.
type ToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatRequest is the chat completions payload. Optional fields the caller
// leaves zero are omitted from the wire body; Model and Messages are always
// sent.
type ChatRequest struct {
	Model            string         `json:"model"`
	Messages         []Message      `json:"messages"`
	Temperature      *float64       `json:"temperature,omitempty"`
	MaxTokens        *int           `json:"max_completion_tokens,omitempty"`
	TopP             *float64       `json:"top_p,omitempty"`
	Stop             []string       `json:"stop,omitempty"`
	Tools            []Tool         `json:"tools,omitempty"`
	ToolChoice       any            `json:"tool_choice,omitempty"`
	Stream           bool           `json:"stream,omitempty"`
	VeniceParameters map[string]any `json:"venice_parameters,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is a non-streaming completion result.
type ChatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Created int64        `json:"created"`
	Choices []ChatChoice `json:"choices"`
	Usage   Usage        `json:"usage"`
}

// Text returns the first choice's content, or an empty string.
func (r *ChatResponse) Text() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// ChatService issues chat completions.
type ChatService struct {
	client *core.Client
}

// Complete sends a non-streaming chat request.
func (s *ChatService) Complete(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	body := *req
	body.Stream = false

	raw, err := s.client.Post(ctx, chatCompletionsPath, &body)
	if err != nil {
		return nil, err
	}
	var resp ChatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stream sends a streaming chat request and returns an iterator of deltas.
// The returned stream is owned by a single consumer and must be closed.
func (s *ChatService) Stream(ctx context.Context, req *ChatRequest) (*ChatStream, error) {
	body := *req
	body.Stream = true

	stream, err := s.client.Stream(ctx, chatCompletionsPath, &body)
	if err != nil {
		return nil, err
	}
	return &ChatStream{stream: stream}, nil
}

// ChatChunk is one streamed completion delta.
type ChatChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index int `json:"index"`
		Delta struct {
			Role      Role       `json:"role"`
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Delta returns the chunk's first-choice content delta.
func (c *ChatChunk) Delta() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

// ChatStream iterates parsed completion chunks over a server-sent-event
// response. Recv returns io.EOF after the terminating [DONE] payload.
type ChatStream struct {
	stream *core.SSEStream
}

// Recv returns the next parsed chunk.
func (s *ChatStream) Recv() (*ChatChunk, error) {
	raw, err := s.stream.Recv()
	if err != nil {
		return nil, err
	}
	var chunk ChatChunk
	if err := json.Unmarshal(raw, &chunk); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// Collect drains the stream and concatenates the content deltas.
func (s *ChatStream) Collect() (string, error) {
	var sb strings.Builder
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk.Delta())
	}
}

// Close releases the underlying response body.
func (s *ChatStream) Close() error {
	return s.stream.Close()
}

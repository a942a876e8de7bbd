package venice

import (
	"context"
	"encoding/json"

	"github.com/venice-ai/venice-go/core"
)

// embeddingsPath is the API endpoint for embedding generation.
const embeddingsPath = "embeddings/generate"

// EmbeddingsRequest is the embedding generation payload. Input accepts a
// single string or a list of strings.
type EmbeddingsRequest struct {
	Model          string `json:"model"`
	Input          any    `json:"input"`
	EncodingFormat string `json:"encoding_format,omitempty"`
	Dimensions     *int   `json:"dimensions,omitempty"`
}

// Embedding is one embedded input.
type Embedding struct {
	Index     int       `json:"index"`
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
}

// EmbeddingsResponse carries the embeddings in input order.
type EmbeddingsResponse struct {
	Object string      `json:"object"`
	Model  string      `json:"model"`
	Data   []Embedding `json:"data"`
	Usage  Usage       `json:"usage"`
}

// EmbeddingsService generates embeddings.
type EmbeddingsService struct {
	client *core.Client
}

// Generate embeds one or more inputs.
func (s *EmbeddingsService) Generate(ctx context.Context, req *EmbeddingsRequest) (*EmbeddingsResponse, error) {
	raw, err := s.client.Post(ctx, embeddingsPath, req)
	if err != nil {
		return nil, err
	}
	var resp EmbeddingsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

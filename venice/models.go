package venice

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/venice-ai/venice-go/core"
)

// Model describes one available model.
type Model struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Object    string    `json:"object"`
	CreatedAt int64     `json:"created"`
	OwnedBy   string    `json:"owned_by"`
	Spec      ModelSpec `json:"model_spec"`
}

// ModelSpec carries the service's capability metadata for a model.
type ModelSpec struct {
	AvailableContextTokens int            `json:"availableContextTokens"`
	Capabilities           map[string]any `json:"capabilities"`
	Traits                 []string       `json:"traits"`
}

// ModelsService exposes model discovery.
type ModelsService struct {
	client *core.Client
}

// List returns the available models, optionally filtered by type
// ("text", "image", ...). An empty modelType lists everything.
func (s *ModelsService) List(ctx context.Context, modelType string) ([]Model, error) {
	var q url.Values
	if modelType != "" {
		q = url.Values{"type": []string{modelType}}
	}

	raw, err := s.client.Get(ctx, "models", q)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []Model `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Traits returns the trait-to-model mapping ("most_intelligent",
// "fastest", ...).
func (s *ModelsService) Traits(ctx context.Context) (map[string]string, error) {
	raw, err := s.client.Get(ctx, "models/traits", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CompatibilityMapping returns the OpenAI-name-to-Venice-model mapping.
func (s *ModelsService) CompatibilityMapping(ctx context.Context) (map[string]string, error) {
	raw, err := s.client.Get(ctx, "models/compatibility_mapping", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Validate reports whether id names an available model.
func (s *ModelsService) Validate(ctx context.Context, id string) (bool, error) {
	models, err := s.List(ctx, "")
	if err != nil {
		return false, err
	}
	for _, m := range models {
		if m.ID == id {
			return true, nil
		}
	}
	return false, nil
}

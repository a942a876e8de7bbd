package venice

import (
	"context"
	"encoding/json"

	"github.com/venice-ai/venice-go/core"
)

// charactersPath is the API endpoint for character retrieval.
const charactersPath = "characters"

// Character is a retrievable persona usable in chat via venice_parameters.
type Character struct {
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Adult       bool     `json:"adult"`
	WebEnabled  bool     `json:"webEnabled"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

// CharactersService retrieves characters.
type CharactersService struct {
	client *core.Client
}

// List returns every public character.
func (s *CharactersService) List(ctx context.Context) ([]Character, error) {
	raw, err := s.client.Get(ctx, charactersPath, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []Character `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Get returns one character by slug. A 404 with the CHARACTER_NOT_FOUND
// code surfaces as core.ErrCharacterNotFound.
func (s *CharactersService) Get(ctx context.Context, slug string) (*Character, error) {
	raw, err := s.client.Get(ctx, charactersPath+"/"+slug, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data Character `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if resp.Data.Slug == "" {
		// Some deployments return the character at the top level.
		var flat Character
		if err := json.Unmarshal(raw, &flat); err == nil && flat.Slug != "" {
			return &flat, nil
		}
	}
	return &resp.Data, nil
}

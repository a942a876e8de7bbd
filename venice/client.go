package venice

import (
	"github.com/venice-ai/venice-go/core"
)

// Version is the SDK release version.
const Version = core.Version

// Client is the top-level entry point, grouping one service namespace per
// API surface around a shared transport. Client is safe for concurrent use.
type Client struct {
	transport *core.Client

	// Chat exposes chat completions, streaming included.
	Chat *ChatService

	// Models exposes model discovery.
	Models *ModelsService

	// Images exposes generation, editing, upscaling and style discovery.
	Images *ImagesService

	// Audio exposes text-to-speech.
	Audio *AudioService

	// Video exposes the async generation queue.
	Video *VideoService

	// Embeddings exposes embedding generation.
	Embeddings *EmbeddingsService

	// Characters exposes character retrieval.
	Characters *CharactersService

	// Account exposes API key administration and billing.
	Account *AccountService
}

// New builds a client from the standard configuration chain (explicit
// overrides, environment, local dotenv, gated global dotenv).
func New(overrides ...core.Override) (*Client, error) {
	cfg, err := core.LoadConfig(overrides...)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg), nil
}

// NewWithConfig builds a client from an already-resolved Config.
func NewWithConfig(cfg core.Config, opts ...core.ClientOption) *Client {
	return newClient(core.NewClient(cfg, opts...))
}

func newClient(transport *core.Client) *Client {
	c := &Client{transport: transport}
	c.Chat = &ChatService{client: transport}
	c.Models = &ModelsService{client: transport}
	c.Images = &ImagesService{client: transport}
	c.Audio = &AudioService{client: transport}
	c.Video = &VideoService{client: transport, sleep: core.SleepContext, now: timeNow}
	c.Embeddings = &EmbeddingsService{client: transport}
	c.Characters = &CharactersService{client: transport}
	c.Account = &AccountService{client: transport}
	return c
}

// Transport returns the underlying engine, for callers that need the raw
// primitives.
func (c *Client) Transport() *core.Client {
	return c.transport
}

// Metrics returns the rate-limit recorder owned by this client's transport.
func (c *Client) Metrics() *core.RateLimitMetrics {
	return c.transport.Metrics()
}

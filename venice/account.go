package venice

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/venice-ai/venice-go/core"
)

// Account API endpoints.
const (
	apiKeysPath       = "api_keys"
	web3KeyPath       = "api_keys/generate_web3_key"
	rateLimitsPath    = "api_keys/rate_limits"
	rateLimitLogPath  = "api_keys/rate_limits/log"
	billingUsagePath  = "billing/usage"
)

// APIKey is one credential on the account. The secret is only present in
// the creation response.
type APIKey struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	KeyType     string `json:"apiKeyType"`
	Last6Chars  string `json:"last6Chars"`
	CreatedAt   string `json:"createdAt"`
	ExpiresAt   string `json:"expiresAt"`
	Key         string `json:"apiKey,omitempty"`
}

// CreateKeyRequest creates a new API key.
type CreateKeyRequest struct {
	Description string `json:"description"`
	KeyType     string `json:"apiKeyType,omitempty"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// RateLimit is the standing limit for one model or endpoint class.
type RateLimit struct {
	ModelID  string  `json:"modelId"`
	Requests float64 `json:"requests"`
	Interval string  `json:"interval"`
}

// RateLimitLogEntry is one recorded 429 on the account side.
type RateLimitLogEntry struct {
	ModelID     string `json:"modelId"`
	RateLimitTier string `json:"rateLimitTier"`
	Timestamp   string `json:"timestamp"`
}

// BillingUsageEntry is one metered charge.
type BillingUsageEntry struct {
	Amount    float64        `json:"amount"`
	Currency  string         `json:"currency"`
	InferenceDetails map[string]any `json:"inferenceDetails"`
	SKU       string         `json:"sku"`
	Timestamp string         `json:"timestamp"`
}

// AccountService administers API keys and reads billing data.
type AccountService struct {
	client *core.Client
}

// ListKeys returns the account's API keys.
func (s *AccountService) ListKeys(ctx context.Context) ([]APIKey, error) {
	raw, err := s.client.Get(ctx, apiKeysPath, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []APIKey `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// CreateKey provisions a new API key. The returned Key field is the only
// time the secret is visible.
func (s *AccountService) CreateKey(ctx context.Context, req *CreateKeyRequest) (*APIKey, error) {
	raw, err := s.client.Post(ctx, apiKeysPath, req)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data APIKey `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// DeleteKey revokes an API key by id.
func (s *AccountService) DeleteKey(ctx context.Context, id string) error {
	_, err := s.client.Delete(ctx, apiKeysPath+"/"+url.PathEscape(id))
	return err
}

// GenerateWeb3Key creates a wallet-bound key.
func (s *AccountService) GenerateWeb3Key(ctx context.Context, body map[string]any) (*APIKey, error) {
	raw, err := s.client.Post(ctx, web3KeyPath, body)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data APIKey `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// RateLimits returns the account's standing rate limits.
func (s *AccountService) RateLimits(ctx context.Context) ([]RateLimit, error) {
	raw, err := s.client.Get(ctx, rateLimitsPath, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data struct {
			RateLimits []RateLimit `json:"rateLimits"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data.RateLimits, nil
}

// RateLimitLog returns the account-side log of recent 429s.
func (s *AccountService) RateLimitLog(ctx context.Context) ([]RateLimitLogEntry, error) {
	raw, err := s.client.Get(ctx, rateLimitLogPath, nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []RateLimitLogEntry `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// BillingUsage returns metered usage, optionally bounded by RFC 3339
// startDate/endDate.
func (s *AccountService) BillingUsage(ctx context.Context, startDate, endDate string) ([]BillingUsageEntry, error) {
	var q url.Values
	if startDate != "" || endDate != "" {
		q = url.Values{}
		if startDate != "" {
			q.Set("startDate", startDate)
		}
		if endDate != "" {
			q.Set("endDate", endDate)
		}
	}

	raw, err := s.client.Get(ctx, billingUsagePath, q)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []BillingUsageEntry `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

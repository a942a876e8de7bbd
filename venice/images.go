package venice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/venice-ai/venice-go/core"
)

// Image API endpoints.
const (
	imageGeneratePath = "image/generate"
	imageEditPath     = "image/edit"
	imageUpscalePath  = "image/upscale"
	imageStylesPath   = "image/styles"
)

// ImageGenerateRequest is the image generation payload.
type ImageGenerateRequest struct {
	Model          string   `json:"model"`
	Prompt         string   `json:"prompt"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Width          int      `json:"width,omitempty"`
	Height         int      `json:"height,omitempty"`
	Steps          int      `json:"steps,omitempty"`
	Seed           *int64   `json:"seed,omitempty"`
	StylePreset    string   `json:"style_preset,omitempty"`
	CfgScale       *float64 `json:"cfg_scale,omitempty"`
	// Format selects the output encoding ("webp", "png").
	Format string `json:"format,omitempty"`
	// ReturnBinary asks for raw bytes instead of base64 in JSON.
	ReturnBinary bool `json:"return_binary,omitempty"`
	SafeMode     *bool `json:"safe_mode,omitempty"`
	HideWatermark bool `json:"hide_watermark,omitempty"`
}

// ImageEditRequest edits an existing image under a prompt.
type ImageEditRequest struct {
	Model  string `json:"model,omitempty"`
	Prompt string `json:"prompt"`
	// Image is the base64-encoded source image or a data URI.
	Image string `json:"image"`
	Mask  string `json:"mask,omitempty"`
}

// ImageUpscaleRequest upscales an image by an integer factor.
type ImageUpscaleRequest struct {
	// Image is the base64-encoded source image or a data URI.
	Image    string   `json:"image"`
	Scale    int      `json:"scale,omitempty"`
	Enhance  bool     `json:"enhance,omitempty"`
	Strength *float64 `json:"enhance_strength,omitempty"`
}

// ImageResponse is the JSON form of an image result: one or more base64
// payloads or URLs depending on the requested format.
type ImageResponse struct {
	ID      string         `json:"id"`
	Images  []string       `json:"images"`
	Request map[string]any `json:"request"`
	Timing  map[string]any `json:"timing"`
}

// DecodeImage base64-decodes the i-th image payload.
func (r *ImageResponse) DecodeImage(i int) ([]byte, error) {
	if i < 0 || i >= len(r.Images) {
		return nil, fmt.Errorf("image index %d out of range (%d images)", i, len(r.Images))
	}
	return base64.StdEncoding.DecodeString(r.Images[i])
}

// ImageStyle is one selectable style preset.
type ImageStyle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImagesService exposes generation, editing, upscaling and styles.
type ImagesService struct {
	client *core.Client
}

// Generate renders images from a prompt.
func (s *ImagesService) Generate(ctx context.Context, req *ImageGenerateRequest) (*ImageResponse, error) {
	raw, err := s.client.Post(ctx, imageGeneratePath, req)
	if err != nil {
		return nil, err
	}
	var resp ImageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Edit applies a prompt-guided edit to an existing image.
func (s *ImagesService) Edit(ctx context.Context, req *ImageEditRequest) (*ImageResponse, error) {
	raw, err := s.client.Post(ctx, imageEditPath, req)
	if err != nil {
		return nil, err
	}
	var resp ImageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Upscale enlarges an image, optionally enhancing it.
func (s *ImagesService) Upscale(ctx context.Context, req *ImageUpscaleRequest) (*ImageResponse, error) {
	raw, err := s.client.Post(ctx, imageUpscalePath, req)
	if err != nil {
		return nil, err
	}
	var resp ImageResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Styles lists the available style presets. The endpoint returns either
// bare style ids or id/name objects; both forms are accepted.
func (s *ImagesService) Styles(ctx context.Context) ([]ImageStyle, error) {
	raw, err := s.client.Get(ctx, imageStylesPath, nil)
	if err != nil {
		return nil, err
	}

	var objForm struct {
		Data []ImageStyle `json:"data"`
	}
	if err := json.Unmarshal(raw, &objForm); err == nil && len(objForm.Data) > 0 {
		return objForm.Data, nil
	}

	var idForm struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(raw, &idForm); err != nil {
		return nil, err
	}
	styles := make([]ImageStyle, len(idForm.Data))
	for i, id := range idForm.Data {
		styles[i] = ImageStyle{ID: id, Name: id}
	}
	return styles, nil
}

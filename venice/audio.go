package venice

import (
	"context"
	"io"
	"os"

	"github.com/venice-ai/venice-go/core"
)

// speechPath is the API endpoint for text-to-speech.
const speechPath = "audio/speech"

// SpeechRequest is the text-to-speech payload.
type SpeechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
	// ResponseFormat selects the container ("mp3", "opus", "aac", "flac",
	// "wav", "pcm").
	ResponseFormat string   `json:"response_format,omitempty"`
	Speed          *float64 `json:"speed,omitempty"`
	StreamingMode  bool     `json:"streaming,omitempty"`
}

// AudioService synthesizes speech.
type AudioService struct {
	client *core.Client
}

// Speech synthesizes the input and returns the audio bytes.
func (s *AudioService) Speech(ctx context.Context, req *SpeechRequest) ([]byte, error) {
	resp, err := s.client.PostRaw(ctx, speechPath, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// SpeechToFile synthesizes the input and streams the audio into path.
func (s *AudioService) SpeechToFile(ctx context.Context, req *SpeechRequest, path string) error {
	resp, err := s.client.PostRaw(ctx, speechPath, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return err
	}
	return f.Sync()
}

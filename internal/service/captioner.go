package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ayase/picvault/internal/config"
	"github.com/go-resty/resty/v2"
)

const captionPrompt = "Describe this image in one concise sentence suitable as a gallery caption."

// CaptionerService calls an OpenAI-compatible vision endpoint to produce
// a caption. Disabled unless explicitly configured.
type CaptionerService struct {
	client  *resty.Client
	model   string
	enabled bool
}

// NewCaptionerService creates a captioner client from configuration.
func NewCaptionerService(cfg *config.CaptionConfig) *CaptionerService {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &CaptionerService{
		client:  client,
		model:   cfg.Model,
		enabled: cfg.Enabled && cfg.APIKey != "",
	}
}

// IsEnabled reports whether captioning is configured.
func (s *CaptionerService) IsEnabled() bool {
	return s.enabled
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []chatContent `json:"content"`
}

type chatContent struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Caption produces a one-sentence caption for the image. Returns an
// empty caption when the service is disabled.
func (s *CaptionerService) Caption(ctx context.Context, imageData []byte) (string, error) {
	if !s.enabled {
		return "", nil
	}

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)
	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []chatContent{
					{Type: "text", Text: captionPrompt},
					{Type: "image_url", ImageURL: &chatImageURL{URL: dataURL}},
				},
			},
		},
	}

	var resp chatResponse
	var apiErr chatError
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("failed to call captioner: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("captioner error: %s", apiErr.Error.Message)
		}
		return "", fmt.Errorf("captioner error: status %d", httpResp.StatusCode())
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("captioner returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

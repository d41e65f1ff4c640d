package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ayase/picvault/internal/config"
	"github.com/go-resty/resty/v2"
)

// EmbedderService calls an external CLIP-style feature extractor.
type EmbedderService struct {
	client     *resty.Client
	model      string
	dimensions int
}

// NewEmbedderService creates an embedder client from configuration.
func NewEmbedderService(cfg *config.EmbedderConfig) *EmbedderService {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &EmbedderService{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// GetModel returns the model name being used.
func (s *EmbedderService) GetModel() string {
	return s.model
}

// Dimensions returns the vector dimensionality the server produces.
func (s *EmbedderService) Dimensions() int {
	return s.dimensions
}

type embedRequest struct {
	Model string `json:"model"`
	Image string `json:"image"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbedImage extracts the feature vector for an image.
func (s *EmbedderService) EmbedImage(ctx context.Context, imageData []byte) ([]float32, error) {
	req := embedRequest{
		Model: s.model,
		Image: base64.StdEncoding.EncodeToString(imageData),
	}

	var resp embedResponse
	var apiErr modelError
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post("/embed")
	if err != nil {
		return nil, fmt.Errorf("failed to call embedder: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if apiErr.Detail != "" {
			return nil, fmt.Errorf("embedder error: %s", apiErr.Detail)
		}
		return nil, fmt.Errorf("embedder error: status %d", httpResp.StatusCode())
	}
	if len(resp.Embedding) != s.dimensions {
		return nil, fmt.Errorf("unexpected embedding size: got %d, expected %d",
			len(resp.Embedding), s.dimensions)
	}
	return resp.Embedding, nil
}

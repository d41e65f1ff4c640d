package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ayase/picvault/internal/config"
	"github.com/go-resty/resty/v2"
)

// ScorerService calls an external aesthetic-scoring model server.
type ScorerService struct {
	client  *resty.Client
	model   string
	enabled bool
}

// NewScorerService creates a scorer client from configuration.
func NewScorerService(cfg *config.ScorerConfig) *ScorerService {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &ScorerService{
		client:  client,
		model:   cfg.Model,
		enabled: cfg.Enabled,
	}
}

// IsEnabled reports whether aesthetic scoring is configured.
func (s *ScorerService) IsEnabled() bool {
	return s.enabled
}

type scoreRequest struct {
	Model string `json:"model"`
	Image string `json:"image"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// ScoreImage predicts the aesthetic score for an image.
func (s *ScorerService) ScoreImage(ctx context.Context, imageData []byte) (float64, error) {
	req := scoreRequest{
		Model: s.model,
		Image: base64.StdEncoding.EncodeToString(imageData),
	}

	var resp scoreResponse
	var apiErr modelError
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post("/score")
	if err != nil {
		return 0, fmt.Errorf("failed to call scorer: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if apiErr.Detail != "" {
			return 0, fmt.Errorf("scorer error: %s", apiErr.Detail)
		}
		return 0, fmt.Errorf("scorer error: status %d", httpResp.StatusCode())
	}
	return resp.Score, nil
}

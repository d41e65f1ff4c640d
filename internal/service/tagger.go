package service

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/ayase/picvault/internal/config"
	"github.com/go-resty/resty/v2"
)

// TaggerService calls an external wd-tagger style model server over HTTP.
type TaggerService struct {
	client *resty.Client
	model  string
}

// NewTaggerService creates a tagger client from configuration.
func NewTaggerService(cfg *config.TaggerConfig) *TaggerService {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return &TaggerService{
		client: client,
		model:  cfg.Model,
	}
}

// GetModel returns the model name being used.
func (s *TaggerService) GetModel() string {
	return s.model
}

type taggerRequest struct {
	Model string `json:"model"`
	Image string `json:"image"` // base64-encoded bytes
}

type taggerResponse struct {
	Rating        string   `json:"rating"`
	GeneralTags   []string `json:"general_tags"`
	CharacterTags []string `json:"character_tags"`
}

// Tag classifies an image, adapting the server response into a TagResult.
func (s *TaggerService) Tag(ctx context.Context, imageData []byte) (*TagResult, error) {
	req := taggerRequest{
		Model: s.model,
		Image: base64.StdEncoding.EncodeToString(imageData),
	}

	var resp taggerResponse
	var apiErr modelError
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&apiErr).
		Post("/tag")
	if err != nil {
		return nil, fmt.Errorf("failed to call tagger: %w", err)
	}
	if httpResp.StatusCode() != 200 {
		if apiErr.Detail != "" {
			return nil, fmt.Errorf("tagger error: %s", apiErr.Detail)
		}
		return nil, fmt.Errorf("tagger error: status %d", httpResp.StatusCode())
	}

	return &TagResult{
		Rating:        resp.Rating,
		GeneralTags:   resp.GeneralTags,
		CharacterTags: resp.CharacterTags,
	}, nil
}

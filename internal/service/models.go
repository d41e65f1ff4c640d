package service

import "context"

// modelError is the FastAPI-style error body the model servers return on
// non-2xx responses.
type modelError struct {
	Detail string `json:"detail"`
}

// TagResult is the typed result of one auto-tagger call. The raw model
// response is adapted into this shape at the client boundary so the
// pipeline never sees the model library's native output.
type TagResult struct {
	// Rating is the tagger's content rating label: general, sensitive,
	// questionable or explicit.
	Rating string

	GeneralTags   []string
	CharacterTags []string
}

// Tagger classifies an image into a rating and candidate tags.
type Tagger interface {
	Tag(ctx context.Context, imageData []byte) (*TagResult, error)
}

// Embedder extracts a fixed-length feature vector from an image.
type Embedder interface {
	EmbedImage(ctx context.Context, imageData []byte) ([]float32, error)
	Dimensions() int
}

// Scorer predicts an aesthetic score for an image.
type Scorer interface {
	ScoreImage(ctx context.Context, imageData []byte) (float64, error)
}

// Captioner produces a free-text caption for an image. Optional; a
// disabled captioner returns an empty caption without calling out.
type Captioner interface {
	Caption(ctx context.Context, imageData []byte) (string, error)
	IsEnabled() bool
}

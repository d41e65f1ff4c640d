// Package media implements the image-processing side of enrichment:
// decoding, thumbnail generation, and color analysis.
package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedExtensions is the set of file extensions (without dot, lower
// case) the enricher will attempt to decode. Files with other extensions
// are catalogued but never enriched.
var SupportedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"gif":  {},
	"webp": {},
	"bmp":  {},
	"tiff": {},
}

// IsSupportedExtension reports whether ext (without dot) is decodable.
func IsSupportedExtension(ext string) bool {
	_, ok := SupportedExtensions[strings.ToLower(ext)]
	return ok
}

// Decode decodes image bytes into an in-memory image.
func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// DecodeConfig reads only the image header, returning dimensions.
func DecodeConfig(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image config: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// Thumbnail bounds the image to maxSize on its longest side, preserving
// the aspect ratio. Images already within bounds are returned unchanged.
func Thumbnail(img image.Image, maxSize int) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxSize && h <= maxSize {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxSize, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxSize, imaging.Lanczos)
}

// SaveThumbnail writes a bounded thumbnail to outPath, creating parent
// directories as needed. Formats imaging cannot encode (webp) are
// written as PNG under the same mirrored path.
func SaveThumbnail(img image.Image, outPath string, maxSize int) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("failed to create thumbnail directory: %w", err)
	}
	thumb := Thumbnail(img, maxSize)

	format, err := imaging.FormatFromFilename(outPath)
	if err != nil {
		format = imaging.PNG
	}

	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer f.Close()

	if err := imaging.Encode(f, thumb, format, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return nil
}

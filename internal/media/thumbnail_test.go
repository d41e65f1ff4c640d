package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestIsSupportedExtension(t *testing.T) {
	for _, ext := range []string{"jpg", "jpeg", "png", "gif", "webp", "bmp", "tiff", "JPG", "PNG"} {
		if !IsSupportedExtension(ext) {
			t.Errorf("IsSupportedExtension(%q) = false, want true", ext)
		}
	}
	for _, ext := range []string{"", "txt", "mp4", "avif", "jpg.bak"} {
		if IsSupportedExtension(ext) {
			t.Errorf("IsSupportedExtension(%q) = true, want false", ext)
		}
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestDecode(t *testing.T) {
	data := encodePNG(t, image.NewRGBA(image.Rect(0, 0, 3, 2)))

	img, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 2 {
		t.Errorf("decoded bounds = %v, want 3x2", img.Bounds())
	}

	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("Decode() of junk bytes should fail")
	}

	w, h, err := DecodeConfig(data)
	if err != nil {
		t.Fatalf("DecodeConfig() failed: %v", err)
	}
	if w != 3 || h != 2 {
		t.Errorf("DecodeConfig() = %dx%d, want 3x2", w, h)
	}
}

func TestThumbnailBounds(t *testing.T) {
	testCases := []struct {
		name         string
		w, h         int
		maxSize      int
		wantW, wantH int
	}{
		{"wide image scaled by width", 800, 400, 400, 400, 200},
		{"tall image scaled by height", 300, 900, 300, 100, 300},
		{"within bounds untouched", 200, 100, 400, 200, 100},
		{"exactly at bound untouched", 400, 400, 400, 400, 400},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tc.w, tc.h))
			thumb := Thumbnail(src, tc.maxSize)
			if thumb.Bounds().Dx() != tc.wantW || thumb.Bounds().Dy() != tc.wantH {
				t.Errorf("Thumbnail(%dx%d, %d) = %dx%d, want %dx%d",
					tc.w, tc.h, tc.maxSize,
					thumb.Bounds().Dx(), thumb.Bounds().Dy(), tc.wantW, tc.wantH)
			}
		})
	}
}

func TestSaveThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 800, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 800; x++ {
			src.SetRGBA(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 50, A: 255})
		}
	}

	out := filepath.Join(t.TempDir(), "nested", "dir", "thumb.png")
	if err := SaveThumbnail(src, out, 400); err != nil {
		t.Fatalf("SaveThumbnail() failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading thumbnail failed: %v", err)
	}
	img, err := Decode(data)
	if err != nil {
		t.Fatalf("decoding thumbnail failed: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Errorf("thumbnail bounds = %v, want 400x300", img.Bounds())
	}
}

package media

import (
	"image"
	"image/color"
	"math"
	"testing"
)

func almostEqual(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestRGBToLab(t *testing.T) {
	testCases := []struct {
		name    string
		r, g, b uint8
		want    Lab
	}{
		{"white", 255, 255, 255, Lab{L: 100, A: 0, B: 0}},
		{"black", 0, 0, 0, Lab{L: 0, A: 0, B: 0}},
		{"red", 255, 0, 0, Lab{L: 53.24, A: 80.09, B: 67.20}},
		{"green", 0, 255, 0, Lab{L: 87.73, A: -86.18, B: 83.18}},
		{"blue", 0, 0, 255, Lab{L: 32.30, A: 79.19, B: -107.86}},
		{"mid gray", 119, 119, 119, Lab{L: 50.03, A: 0, B: 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := RGBToLab(tc.r, tc.g, tc.b)
			if !almostEqual(got.L, tc.want.L, 0.1) ||
				!almostEqual(got.A, tc.want.A, 0.1) ||
				!almostEqual(got.B, tc.want.B, 0.1) {
				t.Errorf("RGBToLab(%d,%d,%d) = %+v, want %+v", tc.r, tc.g, tc.b, got, tc.want)
			}
		})
	}
}

func solidImage(c color.RGBA, w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestPaletteSolidColor(t *testing.T) {
	img := solidImage(color.RGBA{R: 200, G: 40, B: 120, A: 255}, 32, 32)

	palette, r, g, b := Palette(img, 6)
	if len(palette) != 1 {
		t.Fatalf("solid image should yield one palette entry, got %d", len(palette))
	}
	if r != 200 || g != 40 || b != 120 {
		t.Errorf("dominant color = (%d,%d,%d), want (200,40,120)", r, g, b)
	}
	if palette[0] != 200<<16|40<<8|120 {
		t.Errorf("palette[0] = %#x, want %#x", palette[0], 200<<16|40<<8|120)
	}
}

func TestPaletteTwoColors(t *testing.T) {
	// Three quarters one color, one quarter another: the majority color
	// must come out dominant.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if x < 48 {
				img.SetRGBA(x, y, color.RGBA{R: 10, G: 200, B: 10, A: 255})
			} else {
				img.SetRGBA(x, y, color.RGBA{R: 240, G: 10, B: 10, A: 255})
			}
		}
	}

	palette, r, g, b := Palette(img, 6)
	if len(palette) != 2 {
		t.Fatalf("two-color image should yield two palette entries, got %d", len(palette))
	}
	if g < 150 || r > 100 {
		t.Errorf("dominant color = (%d,%d,%d), want the green majority", r, g, b)
	}
}

func TestPaletteTransparentImage(t *testing.T) {
	img := solidImage(color.RGBA{A: 0}, 16, 16)
	palette, _, _, _ := Palette(img, 6)
	if palette != nil {
		t.Errorf("fully transparent image should yield no palette, got %v", palette)
	}
}

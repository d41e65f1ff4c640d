package media

import (
	"image"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// Lab is a color in the CIELAB space (D65 white point).
type Lab struct {
	L float64
	A float64
	B float64
}

// analysisSize is the side length images are downscaled to before color
// analysis. Full-resolution histograms buy nothing here.
const analysisSize = 64

// histBits is the per-channel quantization used to bin pixels.
const histBits = 4

type colorBin struct {
	count            int
	sumR, sumG, sumB uint64
}

// Palette extracts up to n representative colors from the image, most
// frequent first, as packed 0xRRGGBB ints, plus the dominant color as
// 8-bit RGB. The dominant color is the mean of the most populous bin,
// not the bin center, so near-misses of the grid don't shift it.
func Palette(img image.Image, n int) (palette []int, r, g, b uint8) {
	small := imaging.Resize(img, analysisSize, analysisSize, imaging.Box)

	bins := make(map[uint32]*colorBin)
	pix := small.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		pr, pg, pb, pa := pix[i], pix[i+1], pix[i+2], pix[i+3]
		if pa < 128 {
			continue
		}
		key := uint32(pr>>(8-histBits))<<(2*histBits) |
			uint32(pg>>(8-histBits))<<histBits |
			uint32(pb>>(8-histBits))
		bin, ok := bins[key]
		if !ok {
			bin = &colorBin{}
			bins[key] = bin
		}
		bin.count++
		bin.sumR += uint64(pr)
		bin.sumG += uint64(pg)
		bin.sumB += uint64(pb)
	}

	if len(bins) == 0 {
		return nil, 0, 0, 0
	}

	ordered := make([]*colorBin, 0, len(bins))
	for _, bin := range bins {
		ordered = append(ordered, bin)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].count > ordered[j].count
	})

	if n <= 0 {
		n = 1
	}
	if n > len(ordered) {
		n = len(ordered)
	}
	palette = make([]int, n)
	for i := 0; i < n; i++ {
		br, bg, bb := ordered[i].mean()
		palette[i] = int(br)<<16 | int(bg)<<8 | int(bb)
	}

	r, g, b = ordered[0].mean()
	return palette, r, g, b
}

func (b *colorBin) mean() (uint8, uint8, uint8) {
	c := uint64(b.count)
	return uint8(b.sumR / c), uint8(b.sumG / c), uint8(b.sumB / c)
}

// RGBToLab converts an 8-bit sRGB color to CIELAB under D65.
func RGBToLab(r, g, b uint8) Lab {
	// sRGB -> linear
	lin := func(c uint8) float64 {
		v := float64(c) / 255.0
		if v <= 0.04045 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	rl, gl, bl := lin(r), lin(g), lin(b)

	// linear RGB -> XYZ (D65)
	x := 0.4124564*rl + 0.3575761*gl + 0.1804375*bl
	y := 0.2126729*rl + 0.7151522*gl + 0.0721750*bl
	z := 0.0193339*rl + 0.1191920*gl + 0.9503041*bl

	// XYZ -> Lab, normalized to the D65 reference white
	const xn, yn, zn = 0.95047, 1.0, 1.08883
	f := func(t float64) float64 {
		const delta = 6.0 / 29.0
		if t > delta*delta*delta {
			return math.Cbrt(t)
		}
		return t/(3*delta*delta) + 4.0/29.0
	}
	fx, fy, fz := f(x/xn), f(y/yn), f(z/zn)

	return Lab{
		L: 116*fy - 16,
		A: 500 * (fx - fy),
		B: 200 * (fy - fz),
	}
}

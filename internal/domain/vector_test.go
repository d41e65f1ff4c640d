package domain

import (
	"math"
	"testing"
)

func TestHalfVectorRoundTrip(t *testing.T) {
	in := HalfVector{0, 1, -1, 0.5, -0.25, 0.123, 100, -3.75}

	raw, err := in.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	blob, ok := raw.([]byte)
	if !ok {
		t.Fatalf("Value() returned %T, want []byte", raw)
	}
	if len(blob) != 2*len(in) {
		t.Fatalf("blob length = %d, want %d", len(blob), 2*len(in))
	}

	var out HalfVector
	if err := out.Scan(blob); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("round-trip length = %d, want %d", len(out), len(in))
	}

	// Half precision carries ~3 decimal digits; compare with relative
	// tolerance.
	for i := range in {
		diff := math.Abs(float64(out[i] - in[i]))
		limit := math.Max(1e-3, math.Abs(float64(in[i]))*1e-2)
		if diff > limit {
			t.Errorf("index %d: got %f, want %f (diff %f)", i, out[i], in[i], diff)
		}
	}
}

func TestHalfVectorNil(t *testing.T) {
	var v HalfVector
	raw, err := v.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}
	if raw != nil {
		t.Errorf("nil vector should store as NULL, got %v", raw)
	}

	var out HalfVector
	if err := out.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if out != nil {
		t.Errorf("Scan(nil) should yield nil vector, got %v", out)
	}
}

func TestHalfVectorGormDataType(t *testing.T) {
	// Without this hint the schema parser treats the type as a float
	// slice and AutoMigrate refuses the Embedding column.
	if got := (HalfVector{}).GormDataType(); got != "bytes" {
		t.Errorf("GormDataType() = %q, want bytes", got)
	}
}

func TestHalfVectorScanOddLength(t *testing.T) {
	var out HalfVector
	if err := out.Scan([]byte{1, 2, 3}); err == nil {
		t.Error("Scan of odd-length blob should fail")
	}
}

func TestPackRGB(t *testing.T) {
	testCases := []struct {
		r, g, b uint8
		packed  int
	}{
		{0, 0, 0, 0x000000},
		{255, 255, 255, 0xffffff},
		{0x12, 0x34, 0x56, 0x123456},
	}
	for _, tc := range testCases {
		if got := PackRGB(tc.r, tc.g, tc.b); got != tc.packed {
			t.Errorf("PackRGB(%d,%d,%d) = %#x, want %#x", tc.r, tc.g, tc.b, got, tc.packed)
		}
		r, g, b := UnpackRGB(tc.packed)
		if r != tc.r || g != tc.g || b != tc.b {
			t.Errorf("UnpackRGB(%#x) = (%d,%d,%d), want (%d,%d,%d)", tc.packed, r, g, b, tc.r, tc.g, tc.b)
		}
	}
}

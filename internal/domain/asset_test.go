package domain

import (
	"testing"
)

func TestRatingFromLabel(t *testing.T) {
	testCases := []struct {
		label string
		want  Rating
	}{
		{"general", RatingGeneral},
		{"sensitive", RatingSensitive},
		{"questionable", RatingQuestionable},
		{"explicit", RatingExplicit},
		{"", RatingUnrated},
		{"safe", RatingUnrated},
		{"General", RatingUnrated},
	}

	for _, tc := range testCases {
		t.Run(tc.label, func(t *testing.T) {
			if got := RatingFromLabel(tc.label); got != tc.want {
				t.Errorf("RatingFromLabel(%q) = %d, want %d", tc.label, got, tc.want)
			}
		})
	}
}

func TestPathTripleRelativePath(t *testing.T) {
	testCases := []struct {
		name   string
		triple PathTriple
		want   string
	}{
		{
			name:   "nested folder",
			triple: PathTriple{Folder: "landscapes/alps", Name: "sunrise", Extension: "jpg"},
			want:   "landscapes/alps/sunrise.jpg",
		},
		{
			name:   "root level file",
			triple: PathTriple{Folder: ".", Name: "cover", Extension: "png"},
			want:   "cover.png",
		},
		{
			name:   "no extension",
			triple: PathTriple{Folder: "misc", Name: "README", Extension: ""},
			want:   "misc/README",
		},
		{
			name:   "empty folder treated as root",
			triple: PathTriple{Folder: "", Name: "a", Extension: "gif"},
			want:   "a.gif",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.triple.RelativePath(); got != tc.want {
				t.Errorf("RelativePath() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAssetEnriched(t *testing.T) {
	a := &Asset{}
	if a.Enriched() {
		t.Error("stub asset should not be enriched")
	}
	a.SHA256 = "deadbeef"
	if !a.Enriched() {
		t.Error("asset with content hash should be enriched")
	}
}

func TestAssetAspectRatio(t *testing.T) {
	a := &Asset{Width: 1920, Height: 1080}
	if got := a.AspectRatio(); got < 1.777 || got > 1.778 {
		t.Errorf("AspectRatio() = %f, want ~1.7777", got)
	}
	zero := &Asset{Width: 100, Height: 0}
	if got := zero.AspectRatio(); got != 0 {
		t.Errorf("AspectRatio() with zero height = %f, want 0", got)
	}
}

func TestCurationScoreForAesthetic(t *testing.T) {
	testCases := []struct {
		score float64
		want  int
	}{
		{-1, 0},
		{0, 0},
		{0.5, 1},
		{1.99, 1},
		{2, 2},
		{3.99, 2},
		{4, 3},
		{7.49, 3},
		{7.5, 4},
		{7.99, 4},
		{8, 5},
		{9.7, 5},
	}

	for _, tc := range testCases {
		if got := CurationScoreForAesthetic(tc.score); got != tc.want {
			t.Errorf("CurationScoreForAesthetic(%f) = %d, want %d", tc.score, got, tc.want)
		}
	}
}

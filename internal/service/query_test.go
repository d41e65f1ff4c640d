package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ayase/picvault/internal/config"
	"github.com/ayase/picvault/internal/domain"
	"github.com/ayase/picvault/internal/repository"
	"gorm.io/gorm"
)

type queryFixture struct {
	db     *gorm.DB
	query  *QueryService
	assets *repository.AssetRepository
	tags   *repository.TagRepository
}

func newQueryFixture(t *testing.T) *queryFixture {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "catalog.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return &queryFixture{
		db:     db,
		query:  NewQueryService(db, "sqlite"),
		assets: repository.NewAssetRepository(db),
		tags:   repository.NewTagRepository(db),
	}
}

// seedAsset inserts an enriched asset row directly.
func (fx *queryFixture) seedAsset(t *testing.T, folder, name, ext string, rating domain.Rating, score int, tagNames ...string) *domain.Asset {
	t.Helper()
	ctx := context.Background()
	asset := &domain.Asset{
		FilePath:  folder,
		FileName:  name,
		Extension: ext,
		Rating:    rating,
		Score:     score,
		SHA256:    "hash-" + folder + "-" + name,
		Width:     100,
		Height:    100,
		Size:      1000,
	}
	if err := fx.db.Create(asset).Error; err != nil {
		t.Fatalf("seeding asset failed: %v", err)
	}
	for _, tag := range tagNames {
		if _, err := fx.tags.GetOrCreateTag(ctx, tag, nil); err != nil {
			t.Fatalf("GetOrCreateTag failed: %v", err)
		}
		if err := fx.tags.AttachIfAbsent(ctx, asset.ID, tag, true); err != nil {
			t.Fatalf("AttachIfAbsent failed: %v", err)
		}
	}
	return asset
}

func TestSearchRatingTagsAndOrder(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	fx.seedAsset(t, "a", "one", "jpg", domain.RatingGeneral, 5, "forest", "river")
	fx.seedAsset(t, "a", "two", "jpg", domain.RatingSensitive, 3, "forest")
	fx.seedAsset(t, "a", "three", "jpg", domain.RatingGeneral, 4, "city")
	fx.seedAsset(t, "b", "four", "jpg", domain.RatingExplicit, 5, "forest")
	fx.seedAsset(t, "b", "five", "jpg", domain.RatingGeneral, 1, "forest")

	// Rating 1 or 2, tagged forest, best score first.
	got, err := fx.query.Search(ctx, &AssetFilter{
		Rating: []int{1, 2},
		Tags:   []string{"forest"},
	}, AssetOrder{By: "score", Dir: OrderDesc}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("result count = %d, want 3", len(got))
	}
	wantNames := []string{"one", "two", "five"}
	for i, w := range wantNames {
		if got[i].FileName != w {
			t.Errorf("result[%d] = %s, want %s", i, got[i].FileName, w)
		}
	}
}

func TestSearchConjunctiveTags(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	fx.seedAsset(t, "a", "both", "jpg", domain.RatingGeneral, 0, "forest", "river")
	fx.seedAsset(t, "a", "onlyforest", "jpg", domain.RatingGeneral, 0, "forest")
	fx.seedAsset(t, "a", "onlyriver", "jpg", domain.RatingGeneral, 0, "river")

	got, err := fx.query.Search(ctx, &AssetFilter{
		Tags: []string{"forest", "river"},
	}, AssetOrder{}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 1 || got[0].FileName != "both" {
		t.Errorf("conjunctive tag filter returned %v, want only 'both'", got)
	}
}

func TestSearchFolderPrefix(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	fx.seedAsset(t, "landscapes", "a", "jpg", domain.RatingGeneral, 0)
	fx.seedAsset(t, "landscapes/alps", "b", "jpg", domain.RatingGeneral, 0)
	fx.seedAsset(t, "landscapesx", "c", "jpg", domain.RatingGeneral, 0)
	fx.seedAsset(t, ".", "root", "jpg", domain.RatingGeneral, 0)

	got, err := fx.query.Search(ctx, &AssetFilter{Folder: "landscapes"}, AssetOrder{}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("folder prefix returned %d assets, want 2", len(got))
	}
	for _, a := range got {
		if a.FilePath != "landscapes" && a.FilePath != "landscapes/alps" {
			t.Errorf("unexpected folder %q in results", a.FilePath)
		}
	}

	rootOnly, err := fx.query.Search(ctx, &AssetFilter{Folder: "."}, AssetOrder{}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(rootOnly) != 1 || rootOnly[0].FileName != "root" {
		t.Errorf("root folder filter returned %v, want only the root asset", rootOnly)
	}
}

func TestSearchNearestColor(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	set := func(a *domain.Asset, l, aa, b float64) {
		if err := fx.db.Model(a).Updates(map[string]interface{}{
			"color_l": l, "color_a": aa, "color_b": b,
		}).Error; err != nil {
			t.Fatalf("setting color failed: %v", err)
		}
	}
	red := fx.seedAsset(t, "c", "red", "jpg", domain.RatingGeneral, 0)
	set(red, 53.2, 80.1, 67.2)
	green := fx.seedAsset(t, "c", "green", "jpg", domain.RatingGeneral, 0)
	set(green, 87.7, -86.2, 83.2)
	fx.seedAsset(t, "c", "uncolored", "jpg", domain.RatingGeneral, 0)

	// Query near red: red first, colorless asset last.
	got, err := fx.query.Search(ctx, &AssetFilter{
		Lab: []float64{55, 75, 65},
	}, AssetOrder{}, 10, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("result count = %d, want 3", len(got))
	}
	if got[0].FileName != "red" {
		t.Errorf("nearest color result[0] = %s, want red", got[0].FileName)
	}
	if got[2].FileName != "uncolored" {
		t.Errorf("assets without color should sort last, got %s", got[2].FileName)
	}
}

func TestSearchRandomStable(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		fx.seedAsset(t, "r", name, "jpg", domain.RatingGeneral, 0)
	}

	page := func(offset int) []int64 {
		got, err := fx.query.Search(ctx, nil, AssetOrder{Dir: OrderRandom}, 3, offset)
		if err != nil {
			t.Fatalf("Search failed: %v", err)
		}
		ids := make([]int64, len(got))
		for i, a := range got {
			ids[i] = a.ID
		}
		return ids
	}

	// Same offset twice yields the same page, and pages don't overlap.
	first := page(0)
	again := page(0)
	second := page(3)
	for i := range first {
		if first[i] != again[i] {
			t.Errorf("random order is not stable: %v vs %v", first, again)
		}
	}
	seen := map[int64]bool{}
	for _, id := range first {
		seen[id] = true
	}
	for _, id := range second {
		if seen[id] {
			t.Errorf("page overlap at id %d", id)
		}
	}
}

func TestCountAndGroupedCounts(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	fx.seedAsset(t, "a", "one", "jpg", domain.RatingGeneral, 5)
	fx.seedAsset(t, "a", "two", "jpg", domain.RatingGeneral, 3)
	fx.seedAsset(t, "a", "three", "png", domain.RatingSensitive, 3)

	total, err := fx.query.Count(ctx, nil)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}

	filtered, err := fx.query.Count(ctx, &AssetFilter{Extension: []string{"jpg"}})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if filtered != 2 {
		t.Errorf("jpg count = %d, want 2", filtered)
	}

	byRating, err := fx.query.CountBy(ctx, nil, "rating")
	if err != nil {
		t.Fatalf("CountBy failed: %v", err)
	}
	want := map[string]int64{"1": 2, "2": 1}
	for _, gc := range byRating {
		if want[gc.Value] != gc.Count {
			t.Errorf("rating %s count = %d, want %d", gc.Value, gc.Count, want[gc.Value])
		}
	}

	if _, err := fx.query.CountBy(ctx, nil, "sha256"); err == nil {
		t.Error("grouping by a non-whitelisted column should fail")
	}
}

func TestFolderTree(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	fx.seedAsset(t, ".", "root", "jpg", domain.RatingGeneral, 0)
	fx.seedAsset(t, "a", "one", "jpg", domain.RatingGeneral, 0)
	fx.seedAsset(t, "a/b", "two", "jpg", domain.RatingGeneral, 0)
	fx.seedAsset(t, "a/b", "three", "jpg", domain.RatingGeneral, 0)
	fx.seedAsset(t, "c", "four", "jpg", domain.RatingGeneral, 0)

	tree, err := fx.query.FolderTree(ctx)
	if err != nil {
		t.Fatalf("FolderTree failed: %v", err)
	}
	if tree.Count != 5 {
		t.Errorf("root count = %d, want 5", tree.Count)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("root children = %d, want 2 (a, c)", len(tree.Children))
	}

	a := tree.Children[0]
	if a.Name != "a" || a.Count != 3 {
		t.Errorf("node a = %+v, want count 3", a)
	}
	if len(a.Children) != 1 || a.Children[0].Path != "a/b" || a.Children[0].Count != 2 {
		t.Errorf("node a/b wrong: %+v", a.Children)
	}
}

func TestStats(t *testing.T) {
	fx := newQueryFixture(t)
	ctx := context.Background()

	one := fx.seedAsset(t, "a", "one", "jpg", domain.RatingGeneral, 5, "forest")
	fx.seedAsset(t, "a", "two", "png", domain.RatingSensitive, 0)
	vectors := repository.NewVectorRepository(fx.db)
	if err := vectors.UpsertAestheticScore(ctx, one.ID, 7.8); err != nil {
		t.Fatalf("UpsertAestheticScore failed: %v", err)
	}

	stats, err := fx.query.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalAssets != 2 || stats.EnrichedAssets != 2 {
		t.Errorf("totals = %d/%d, want 2/2", stats.TotalAssets, stats.EnrichedAssets)
	}
	if stats.TotalTags != 1 {
		t.Errorf("tag total = %d, want 1", stats.TotalTags)
	}
	if stats.TotalSize != 2000 {
		t.Errorf("size total = %d, want 2000", stats.TotalSize)
	}
	if len(stats.AestheticHistogram) != 1 || stats.AestheticHistogram[0].Value != "7-8" {
		t.Errorf("histogram = %v, want one 7-8 bucket", stats.AestheticHistogram)
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ayase/picvault/internal/domain"
	"gorm.io/gorm"
)

// randomSeed keeps random ordering stable across pages of one session.
const randomSeed = 0.47

// AssetFilter is a conjunctive filter over the catalog. Empty slices and
// strings mean "no constraint". Tags requires every listed tag.
type AssetFilter struct {
	Rating    []int     `json:"rating"`
	Score     []int     `json:"score"`
	Tags      []string  `json:"tags"`
	Extension []string  `json:"extension"`
	Folder    string    `json:"folder"`
	Lab       []float64 `json:"lab"`
}

// Order directions.
const (
	OrderAsc    = "asc"
	OrderDesc   = "desc"
	OrderRandom = "random"
)

// orderColumns whitelists sortable columns.
var orderColumns = map[string]string{
	"id":           "assets.id",
	"score":        "assets.score",
	"rating":       "assets.rating",
	"created_at":   "assets.created_at",
	"published_at": "assets.published_at",
	"file_name":    "assets.file_name",
}

// AssetOrder selects result ordering. By is ignored when Dir is random
// or when the filter carries a Lab target color.
type AssetOrder struct {
	By  string `json:"order_by"`
	Dir string `json:"order"`
}

// QueryService answers read queries over the catalog.
type QueryService struct {
	db     *gorm.DB
	driver string
}

// NewQueryService creates a QueryService. driver is the database driver
// name ("postgres" or "sqlite"); it picks the dialect for seeded random
// ordering and histogram bucketing.
func NewQueryService(db *gorm.DB, driver string) *QueryService {
	return &QueryService{db: db, driver: driver}
}

func applyFilter(tx *gorm.DB, f *AssetFilter) *gorm.DB {
	if f == nil {
		return tx
	}
	if len(f.Rating) > 0 {
		tx = tx.Where("assets.rating IN ?", f.Rating)
	}
	if len(f.Score) > 0 {
		tx = tx.Where("assets.score IN ?", f.Score)
	}
	if len(f.Extension) > 0 {
		exts := make([]string, len(f.Extension))
		for i, e := range f.Extension {
			exts[i] = strings.ToLower(strings.TrimPrefix(e, "."))
		}
		tx = tx.Where("assets.extension IN ?", exts)
	}
	if f.Folder != "" && f.Folder != "*" {
		if f.Folder == "." {
			tx = tx.Where("assets.file_path = ?", ".")
		} else {
			folder := strings.Trim(f.Folder, "/")
			tx = tx.Where("assets.file_path = ? OR assets.file_path LIKE ?", folder, folder+"/%")
		}
	}
	for _, tag := range f.Tags {
		tx = tx.Where(
			"EXISTS (SELECT 1 FROM asset_tags WHERE asset_tags.asset_id = assets.id AND asset_tags.tag_name = ?)",
			tag)
	}
	return tx
}

func (q *QueryService) applyOrder(tx *gorm.DB, f *AssetFilter, order AssetOrder) *gorm.DB {
	if f != nil && len(f.Lab) == 3 {
		// Nearest-color first. Assets without an extracted dominant
		// color sort last.
		expr := fmt.Sprintf(
			"assets.color_l IS NULL, (assets.color_l - %f)*(assets.color_l - %f) + (assets.color_a - %f)*(assets.color_a - %f) + (assets.color_b - %f)*(assets.color_b - %f) ASC",
			f.Lab[0], f.Lab[0], f.Lab[1], f.Lab[1], f.Lab[2], f.Lab[2])
		return tx.Order(expr)
	}

	switch order.Dir {
	case OrderRandom:
		if q.driver == "postgres" {
			// The caller seeds random() with setseed on the same
			// pinned connection before running this query.
			return tx.Order("random()")
		}
		// Keyed multiplicative hash of the id gives sqlite a stable
		// pseudo-random order without server-side seeding.
		return tx.Order("(assets.id * 2654435761) % 4294967296 ASC")
	case OrderDesc, OrderAsc, "":
	default:
		order.Dir = OrderAsc
	}

	col, ok := orderColumns[order.By]
	if !ok {
		col = "assets.id"
	}
	dir := "ASC"
	if order.Dir == OrderDesc {
		dir = "DESC"
	}
	// "IS NULL first" pushes NULLs to the end in both dialects.
	return tx.Order(fmt.Sprintf("%s IS NULL, %s %s", col, col, dir))
}

// Search returns the filtered, ordered page of assets with their tags,
// palette and aesthetic score preloaded.
func (q *QueryService) Search(ctx context.Context, f *AssetFilter, order AssetOrder, limit, offset int) ([]domain.Asset, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	run := func(db *gorm.DB) *gorm.DB {
		tx := db.Model(&domain.Asset{}).
			Preload("Tags").
			Preload("Tags.Tag").
			Preload("Tags.Tag.Group").
			Preload("Colors").
			Preload("AestheticScore")
		tx = applyFilter(tx, f)
		tx = q.applyOrder(tx, f, order)
		return tx.Limit(limit).Offset(offset)
	}

	var assets []domain.Asset
	if q.driver == "postgres" && order.Dir == OrderRandom && (f == nil || len(f.Lab) != 3) {
		// setseed only affects the connection it runs on, so the seed
		// and the ordered query must share one pinned connection.
		err := q.db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
			if err := conn.Exec("SELECT setseed(?)", randomSeed).Error; err != nil {
				return err
			}
			return run(conn).Find(&assets).Error
		})
		if err != nil {
			return nil, fmt.Errorf("asset search failed: %w", err)
		}
		return assets, nil
	}
	if err := run(q.db.WithContext(ctx)).Find(&assets).Error; err != nil {
		return nil, fmt.Errorf("asset search failed: %w", err)
	}
	return assets, nil
}

// Count returns the number of assets matching the filter.
func (q *QueryService) Count(ctx context.Context, f *AssetFilter) (int64, error) {
	var count int64
	tx := applyFilter(q.db.WithContext(ctx).Model(&domain.Asset{}), f)
	if err := tx.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("asset count failed: %w", err)
	}
	return count, nil
}

// GroupCount is one bucket of a grouped count.
type GroupCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// groupColumns whitelists groupable columns for CountBy.
var groupColumns = map[string]string{
	"rating":    "assets.rating",
	"score":     "assets.score",
	"extension": "assets.extension",
}

// CountBy returns match counts grouped by the given column (rating,
// score or extension), applying the filter first.
func (q *QueryService) CountBy(ctx context.Context, f *AssetFilter, column string) ([]GroupCount, error) {
	col, ok := groupColumns[column]
	if !ok {
		return nil, fmt.Errorf("cannot group by %q", column)
	}
	var rows []struct {
		Value string
		Count int64
	}
	tx := applyFilter(q.db.WithContext(ctx).Model(&domain.Asset{}), f)
	if err := tx.Select(col + " AS value, COUNT(*) AS count").
		Group(col).
		Order(col + " ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("grouped count failed: %w", err)
	}
	counts := make([]GroupCount, len(rows))
	for i, r := range rows {
		counts[i] = GroupCount{Value: r.Value, Count: r.Count}
	}
	return counts, nil
}

// FolderNode is one directory in the library tree with its direct and
// recursive asset counts.
type FolderNode struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Count    int64         `json:"count"`
	Children []*FolderNode `json:"children,omitempty"`
}

// FolderTree builds the directory tree of the library from the catalog,
// with per-folder recursive asset counts. The root node's path is ".".
func (q *QueryService) FolderTree(ctx context.Context) (*FolderNode, error) {
	var rows []struct {
		FilePath string
		Count    int64
	}
	if err := q.db.WithContext(ctx).Model(&domain.Asset{}).
		Select("file_path, COUNT(*) AS count").
		Group("file_path").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("folder listing failed: %w", err)
	}

	root := &FolderNode{Name: ".", Path: "."}
	index := map[string]*FolderNode{".": root}
	for _, row := range rows {
		root.Count += row.Count
		if row.FilePath == "." || row.FilePath == "" {
			continue
		}
		segments := strings.Split(row.FilePath, "/")
		parent := root
		prefix := ""
		for _, seg := range segments {
			if prefix == "" {
				prefix = seg
			} else {
				prefix = prefix + "/" + seg
			}
			node, ok := index[prefix]
			if !ok {
				node = &FolderNode{Name: seg, Path: prefix}
				index[prefix] = node
				parent.Children = append(parent.Children, node)
			}
			node.Count += row.Count
			parent = node
		}
	}
	sortFolderTree(root)
	return root, nil
}

func sortFolderTree(node *FolderNode) {
	sort.Slice(node.Children, func(i, j int) bool {
		return node.Children[i].Name < node.Children[j].Name
	})
	for _, child := range node.Children {
		sortFolderTree(child)
	}
}

// Stats is the catalog-wide statistics payload.
type Stats struct {
	TotalAssets        int64        `json:"total_assets"`
	EnrichedAssets     int64        `json:"enriched_assets"`
	TotalTags          int64        `json:"total_tags"`
	TotalSize          int64        `json:"total_size"`
	ByRating           []GroupCount `json:"by_rating"`
	ByScore            []GroupCount `json:"by_score"`
	ByExtension        []GroupCount `json:"by_extension"`
	AestheticHistogram []GroupCount `json:"aesthetic_histogram"`
}

// Stats computes catalog totals, grouped counts and the aesthetic score
// histogram (unit buckets 0..9, scores above 10 clamp into the last).
func (q *QueryService) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	db := q.db.WithContext(ctx)

	if err := db.Model(&domain.Asset{}).Count(&stats.TotalAssets).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Asset{}).Where("sha256 <> ''").Count(&stats.EnrichedAssets).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&domain.Tag{}).Count(&stats.TotalTags).Error; err != nil {
		return nil, err
	}
	var size struct{ Total int64 }
	if err := db.Model(&domain.Asset{}).Select("COALESCE(SUM(size), 0) AS total").Scan(&size).Error; err != nil {
		return nil, err
	}
	stats.TotalSize = size.Total

	var err error
	if stats.ByRating, err = q.CountBy(ctx, nil, "rating"); err != nil {
		return nil, err
	}
	if stats.ByScore, err = q.CountBy(ctx, nil, "score"); err != nil {
		return nil, err
	}
	if stats.ByExtension, err = q.CountBy(ctx, nil, "extension"); err != nil {
		return nil, err
	}
	if stats.AestheticHistogram, err = q.aestheticHistogram(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

func (q *QueryService) aestheticHistogram(ctx context.Context) ([]GroupCount, error) {
	bucket := "CAST(score AS INTEGER)"
	if q.driver == "postgres" {
		bucket = "floor(score)::int"
	}
	var rows []struct {
		Bucket int
		Count  int64
	}
	if err := q.db.WithContext(ctx).Model(&domain.AssetAestheticScore{}).
		Select(fmt.Sprintf("CASE WHEN score >= 10 THEN 9 WHEN score < 0 THEN 0 ELSE %s END AS bucket, COUNT(*) AS count", bucket)).
		Group("bucket").
		Order("bucket ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("aesthetic histogram failed: %w", err)
	}
	counts := make([]GroupCount, len(rows))
	for i, r := range rows {
		counts[i] = GroupCount{Value: fmt.Sprintf("%d-%d", r.Bucket, r.Bucket+1), Count: r.Count}
	}
	return counts, nil
}

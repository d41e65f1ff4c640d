package repository

import (
	"context"
	"fmt"

	"github.com/ayase/picvault/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetRepository handles asset catalog rows.
type AssetRepository struct {
	db *gorm.DB
}

// NewAssetRepository creates a new AssetRepository bound to db.
func NewAssetRepository(db *gorm.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

// DB exposes the underlying handle for transaction scoping.
func (r *AssetRepository) DB() *gorm.DB {
	return r.db
}

// GetByID retrieves an asset with its tags, palette and aesthetic score.
func (r *AssetRepository) GetByID(ctx context.Context, id int64) (*domain.Asset, error) {
	var asset domain.Asset
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Preload("Tags.Tag").
		Preload("Tags.Tag.Group").
		Preload("Colors").
		Preload("AestheticScore").
		First(&asset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// GetByTriple retrieves an asset by its identity triple.
func (r *AssetRepository) GetByTriple(ctx context.Context, t domain.PathTriple) (*domain.Asset, error) {
	var asset domain.Asset
	if err := r.db.WithContext(ctx).
		First(&asset, "file_path = ? AND file_name = ? AND extension = ?",
			t.Folder, t.Name, t.Extension).Error; err != nil {
		return nil, err
	}
	return &asset, nil
}

// ListTriples returns the identity triples of every catalogued asset.
func (r *AssetRepository) ListTriples(ctx context.Context) ([]domain.PathTriple, error) {
	var rows []domain.Asset
	if err := r.db.WithContext(ctx).
		Select("file_path", "file_name", "extension").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list asset triples: %w", err)
	}
	triples := make([]domain.PathTriple, len(rows))
	for i := range rows {
		triples[i] = rows[i].Triple()
	}
	return triples, nil
}

// InsertStub inserts a stub row for a newly discovered triple. A
// concurrent insert of the same triple is treated as already satisfied.
func (r *AssetRepository) InsertStub(ctx context.Context, t domain.PathTriple) error {
	asset := domain.Asset{
		FilePath:  t.Folder,
		FileName:  t.Name,
		Extension: t.Extension,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "file_path"}, {Name: "file_name"}, {Name: "extension"},
		},
		DoNothing: true,
	}).Create(&asset).Error
}

// DeleteByTriple removes the asset row for a triple, cascading to its
// dependents. Missing rows are not an error.
func (r *AssetRepository) DeleteByTriple(ctx context.Context, t domain.PathTriple) error {
	return r.db.WithContext(ctx).
		Where("file_path = ? AND file_name = ? AND extension = ?",
			t.Folder, t.Name, t.Extension).
		Delete(&domain.Asset{}).Error
}

// DeleteByIDs removes assets by id, cascading to dependents.
func (r *AssetRepository) DeleteByIDs(ctx context.Context, ids []int64) ([]domain.Asset, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var assets []domain.Asset
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&assets).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&domain.Asset{}).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// Save persists all fields of an existing asset row.
func (r *AssetRepository) Save(ctx context.Context, asset *domain.Asset) error {
	return r.db.WithContext(ctx).Omit("Tags", "Vector", "Colors", "AestheticScore").Save(asset).Error
}

// UpdateFields applies a partial update to an asset row by id.
func (r *AssetRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Asset{}).Where("id = ?", id).Updates(fields).Error
}

// ListIncomplete returns assets that enrichment has not touched yet
// (empty content hash), ordered by id for resumable progress.
func (r *AssetRepository) ListIncomplete(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := r.db.WithContext(ctx).
		Where("sha256 = ''").
		Order("id ASC").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// ListAll returns every asset ordered by id.
func (r *AssetRepository) ListAll(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// ListUntagged returns enriched assets that carry no auto-assigned tags.
func (r *AssetRepository) ListUntagged(ctx context.Context) ([]domain.Asset, error) {
	var assets []domain.Asset
	if err := r.db.WithContext(ctx).
		Where("sha256 <> ''").
		Where("NOT EXISTS (SELECT 1 FROM asset_tags WHERE asset_tags.asset_id = assets.id AND asset_tags.is_auto)").
		Order("id ASC").
		Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

// Count returns the total number of catalogued assets.
func (r *AssetRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Asset{}).Count(&count).Error
	return count, err
}

// HasPalette reports whether palette rows already exist for an asset.
func (r *AssetRepository) HasPalette(ctx context.Context, assetID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.AssetPaletteEntry{}).
		Where("asset_id = ?", assetID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreatePalette writes palette rows for an asset. Write-once: callers
// must check HasPalette first.
func (r *AssetRepository) CreatePalette(ctx context.Context, entries []domain.AssetPaletteEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AssetRepository) WithTx(tx *gorm.DB) *AssetRepository {
	return &AssetRepository{db: tx}
}

package repository

import (
	"context"

	"github.com/ayase/picvault/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VectorRepository handles the per-asset embedding rows. These rows are
// the record of truth; the Qdrant index is rebuilt from them.
type VectorRepository struct {
	db *gorm.DB
}

// NewVectorRepository creates a new VectorRepository bound to db.
func NewVectorRepository(db *gorm.DB) *VectorRepository {
	return &VectorRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *VectorRepository) WithTx(tx *gorm.DB) *VectorRepository {
	return &VectorRepository{db: tx}
}

// Upsert inserts or replaces the embedding for an asset.
func (r *VectorRepository) Upsert(ctx context.Context, assetID int64, embedding domain.HalfVector) error {
	row := domain.AssetVector{AssetID: assetID, Embedding: embedding}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// Get retrieves the embedding for an asset.
func (r *VectorRepository) Get(ctx context.Context, assetID int64) (domain.HalfVector, error) {
	var row domain.AssetVector
	if err := r.db.WithContext(ctx).First(&row, "asset_id = ?", assetID).Error; err != nil {
		return nil, err
	}
	return row.Embedding, nil
}

// ListAll returns every embedding row, ordered by asset id.
func (r *VectorRepository) ListAll(ctx context.Context) ([]domain.AssetVector, error) {
	var rows []domain.AssetVector
	if err := r.db.WithContext(ctx).Order("asset_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListMissing returns ids of enriched assets that have no embedding row.
func (r *VectorRepository) ListMissing(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).Model(&domain.Asset{}).
		Where("sha256 <> ''").
		Where("NOT EXISTS (SELECT 1 FROM asset_vectors WHERE asset_vectors.asset_id = assets.id)").
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// UpsertAestheticScore inserts or replaces the aesthetic score row.
func (r *VectorRepository) UpsertAestheticScore(ctx context.Context, assetID int64, score float64) error {
	row := domain.AssetAestheticScore{AssetID: assetID, Score: score}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset_id"}},
		UpdateAll: true,
	}).Create(&row).Error
}

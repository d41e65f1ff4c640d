package repository

import (
	"context"
	"errors"

	"github.com/ayase/picvault/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository handles the tag taxonomy and asset-tag assignments.
type TagRepository struct {
	db *gorm.DB
}

// NewTagRepository creates a new TagRepository bound to db.
func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *TagRepository) WithTx(tx *gorm.DB) *TagRepository {
	return &TagRepository{db: tx}
}

// GetOrCreateGroup returns the tag group with the given name, creating it
// with the given display color when missing.
func (r *TagRepository) GetOrCreateGroup(ctx context.Context, name, color string) (*domain.TagGroup, error) {
	var group domain.TagGroup
	err := r.db.WithContext(ctx).First(&group, "name = ?", name).Error
	if err == nil {
		return &group, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	group = domain.TagGroup{Name: name, Color: color}
	if err := r.db.WithContext(ctx).Create(&group).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// GetOrCreateTag returns the tag with the given name, creating it lazily.
// An existing tag without a group is adopted into groupID.
func (r *TagRepository) GetOrCreateTag(ctx context.Context, name string, groupID *int64) (*domain.Tag, error) {
	var tag domain.Tag
	err := r.db.WithContext(ctx).First(&tag, "name = ?", name).Error
	if err == nil {
		if tag.GroupID == nil && groupID != nil {
			tag.GroupID = groupID
			if err := r.db.WithContext(ctx).Save(&tag).Error; err != nil {
				return nil, err
			}
		}
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	tag = domain.Tag{Name: name, GroupID: groupID}
	if err := r.db.WithContext(ctx).Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// AttachIfAbsent links a tag to an asset unless the pair already exists,
// regardless of the existing pair's is_auto flag.
func (r *TagRepository) AttachIfAbsent(ctx context.Context, assetID int64, tagName string, isAuto bool) error {
	assignment := domain.AssetTag{AssetID: assetID, TagName: tagName, IsAuto: isAuto}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset_id"}, {Name: "tag_name"}},
		DoNothing: true,
	}).Create(&assignment).Error
}

// Detach removes a tag assignment from an asset.
func (r *TagRepository) Detach(ctx context.Context, assetID int64, tagName string) error {
	return r.db.WithContext(ctx).
		Where("asset_id = ? AND tag_name = ?", assetID, tagName).
		Delete(&domain.AssetTag{}).Error
}

// GetTag retrieves a tag with its group.
func (r *TagRepository) GetTag(ctx context.Context, name string) (*domain.Tag, error) {
	var tag domain.Tag
	if err := r.db.WithContext(ctx).Preload("Group").First(&tag, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

// ListTags returns tags ordered by name, keyset-paginated by cursor.
func (r *TagRepository) ListTags(ctx context.Context, cursor string, limit int) ([]domain.Tag, error) {
	query := r.db.WithContext(ctx).Preload("Group").Order("name ASC")
	if cursor != "" {
		query = query.Where("name > ?", cursor)
	}
	var tags []domain.Tag
	if err := query.Limit(limit).Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTag inserts a new tag; a duplicate name surfaces as a conflict.
func (r *TagRepository) CreateTag(ctx context.Context, tag *domain.Tag) error {
	return r.db.WithContext(ctx).Create(tag).Error
}

// UpdateTagGroup reassigns a tag to a different group (or none).
func (r *TagRepository) UpdateTagGroup(ctx context.Context, name string, groupID *int64) error {
	return r.db.WithContext(ctx).Model(&domain.Tag{}).
		Where("name = ?", name).
		Update("group_id", groupID).Error
}

// DeleteTags removes tags by name, cascading to their assignments.
func (r *TagRepository) DeleteTags(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("name IN ?", names).Delete(&domain.Tag{}).Error
}

// ListGroups returns all tag groups with their tags.
func (r *TagRepository) ListGroups(ctx context.Context) ([]domain.TagGroup, error) {
	var groups []domain.TagGroup
	if err := r.db.WithContext(ctx).Preload("Tags").Order("name ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

// CreateGroup inserts a new tag group.
func (r *TagRepository) CreateGroup(ctx context.Context, group *domain.TagGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

// UpdateGroup applies a partial update to a tag group.
func (r *TagRepository) UpdateGroup(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.TagGroup{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// DeleteGroup removes a tag group. Tags in the group become ungrouped.
func (r *TagRepository) DeleteGroup(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Tag{}).
			Where("group_id = ?", id).
			Update("group_id", nil).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&domain.TagGroup{}).Error
	})
}

// GetGroup retrieves a tag group by id.
func (r *TagRepository) GetGroup(ctx context.Context, id int64) (*domain.TagGroup, error) {
	var group domain.TagGroup
	if err := r.db.WithContext(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

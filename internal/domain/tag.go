package domain

import "time"

// TagGroup is a taxonomy bucket for tags, carrying a display color.
type TagGroup struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:text;not null;index" json:"name"`
	ParentID  *int64    `gorm:"index" json:"parent_id"`
	Color     string    `gorm:"type:text;not null;default:'#000000'" json:"color"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`

	Tags []Tag `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"tags,omitempty"`
}

// TableName returns the database table name for TagGroup.
func (TagGroup) TableName() string {
	return "tag_groups"
}

// Tag is a case-sensitive tag name, optionally assigned to a group.
// Tags are created lazily the first time the auto-tagger or a human uses
// a previously unseen name.
type Tag struct {
	Name      string    `gorm:"type:text;primaryKey" json:"name"`
	GroupID   *int64    `gorm:"index" json:"group_id"`
	Group     *TagGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}

// TableName returns the database table name for Tag.
func (Tag) TableName() string {
	return "tags"
}

// AssetTag joins an asset to a tag. IsAuto distinguishes tags attached by
// the automatic tagger from human-curated assignments.
type AssetTag struct {
	AssetID int64  `gorm:"primaryKey" json:"asset_id"`
	TagName string `gorm:"type:text;primaryKey" json:"tag_name"`
	IsAuto  bool   `gorm:"not null;default:false" json:"is_auto"`
	Tag     *Tag   `gorm:"foreignKey:TagName;references:Name;constraint:OnDelete:CASCADE" json:"tag,omitempty"`
}

// TableName returns the database table name for AssetTag.
func (AssetTag) TableName() string {
	return "asset_tags"
}

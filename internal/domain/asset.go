package domain

import (
	"path"
	"time"
)

// Rating is the content rating classification of an asset.
// 0 means the asset has not been rated yet.
type Rating int

const (
	RatingUnrated      Rating = 0
	RatingGeneral      Rating = 1
	RatingSensitive    Rating = 2
	RatingQuestionable Rating = 3
	RatingExplicit     Rating = 4
)

// RatingFromLabel maps a tagger rating label to its numeric encoding.
// Unknown labels map to RatingUnrated.
func RatingFromLabel(label string) Rating {
	switch label {
	case "general":
		return RatingGeneral
	case "sensitive":
		return RatingSensitive
	case "questionable":
		return RatingQuestionable
	case "explicit":
		return RatingExplicit
	default:
		return RatingUnrated
	}
}

// PathTriple is the natural key of an asset: the relative folder the file
// lives in, the base name without extension, and the extension without the
// leading dot. The triple is globally unique across the catalog.
type PathTriple struct {
	Folder    string
	Name      string
	Extension string
}

// RelativePath returns the file path relative to the library root.
func (t PathTriple) RelativePath() string {
	name := t.Name
	if t.Extension != "" {
		name += "." + t.Extension
	}
	if t.Folder == "" || t.Folder == "." {
		return name
	}
	return path.Join(t.Folder, name)
}

// Asset is a tracked image file and its metadata row.
//
// An asset is created as a stub the moment the scanner discovers a new
// path triple; enrichment later fills in hash, dimensions, color and the
// dependent vector/palette/tag rows. SHA256 being empty marks a stub.
type Asset struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	FilePath  string `gorm:"type:text;not null;default:'';index;uniqueIndex:idx_assets_triple" json:"file_path"`
	FileName  string `gorm:"type:text;not null;default:'';index;uniqueIndex:idx_assets_triple" json:"file_name"`
	Extension string `gorm:"type:text;not null;default:'';index;uniqueIndex:idx_assets_triple" json:"extension"`

	Width  int `gorm:"not null;default:0;index" json:"width"`
	Height int `gorm:"not null;default:0;index" json:"height"`

	Rating Rating `gorm:"not null;default:0;index" json:"rating"`
	Score  int    `gorm:"not null;default:0;index" json:"score"`

	Description string `gorm:"type:text;not null;default:''" json:"description"`
	Meta        string `gorm:"type:text;not null;default:'';index" json:"meta"`
	SHA256      string `gorm:"type:text;not null;default:'';index" json:"sha256"`
	Size        int64  `gorm:"not null;default:0;index" json:"size"`
	Source      string `gorm:"type:text;not null;default:'';index" json:"source"`
	Caption     string `gorm:"type:text;not null;default:''" json:"caption"`

	// Dominant color in CIELAB, nullable until enrichment has run.
	ColorL *float64 `gorm:"column:color_l" json:"color_l"`
	ColorA *float64 `gorm:"column:color_a" json:"color_a"`
	ColorB *float64 `gorm:"column:color_b" json:"color_b"`

	PublishedAt *time.Time `gorm:"index" json:"published_at"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"index" json:"updated_at"`

	Tags           []AssetTag          `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	Vector         *AssetVector        `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE" json:"-"`
	Colors         []AssetPaletteEntry `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE" json:"colors,omitempty"`
	AestheticScore *AssetAestheticScore `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE" json:"aesthetic_score,omitempty"`
}

// TableName returns the database table name for Asset.
func (Asset) TableName() string {
	return "assets"
}

// Triple returns the asset's identity triple.
func (a *Asset) Triple() PathTriple {
	return PathTriple{Folder: a.FilePath, Name: a.FileName, Extension: a.Extension}
}

// RelativePath returns the asset's file path relative to the library root.
func (a *Asset) RelativePath() string {
	return a.Triple().RelativePath()
}

// AspectRatio returns width/height, or 0 when the height is unknown.
// Computed in application code so the schema stays portable across drivers.
func (a *Asset) AspectRatio() float64 {
	if a.Height == 0 {
		return 0
	}
	return float64(a.Width) / float64(a.Height)
}

// Enriched reports whether enrichment has already populated this asset.
func (a *Asset) Enriched() bool {
	return a.SHA256 != ""
}

// AssetAestheticScore is a model-predicted aesthetic score for an asset,
// kept separate from the user-assigned curation score. The auto-score
// command folds it into Asset.Score via fixed buckets.
type AssetAestheticScore struct {
	AssetID int64   `gorm:"primaryKey" json:"asset_id"`
	Score   float64 `gorm:"not null;default:0" json:"score"`
}

// TableName returns the database table name for AssetAestheticScore.
func (AssetAestheticScore) TableName() string {
	return "asset_aesthetic_scores"
}

// CurationScoreForAesthetic maps a raw aesthetic model score onto the 1-5
// curation scale. Returns 0 for non-positive input so callers can leave
// unscored assets untouched.
func CurationScoreForAesthetic(score float64) int {
	switch {
	case score <= 0:
		return 0
	case score < 2:
		return 1
	case score < 4:
		return 2
	case score < 7.5:
		return 3
	case score < 8:
		return 4
	default:
		return 5
	}
}

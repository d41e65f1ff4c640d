package domain

// AssetPaletteEntry is one representative palette color of an asset.
// Ord preserves the palette ordering; Color is a packed 0xRRGGBB int.
// Palette rows are write-once: the enricher only creates them when the
// asset has none yet.
type AssetPaletteEntry struct {
	AssetID int64 `gorm:"primaryKey" json:"asset_id"`
	Ord     int   `gorm:"primaryKey;column:ord" json:"ord"`
	Color   int   `gorm:"not null" json:"color"`
}

// TableName returns the database table name for AssetPaletteEntry.
func (AssetPaletteEntry) TableName() string {
	return "asset_palette"
}

// PackRGB packs 8-bit RGB components into a single 0xRRGGBB int.
func PackRGB(r, g, b uint8) int {
	return int(r)<<16 | int(g)<<8 | int(b)
}

// UnpackRGB splits a packed 0xRRGGBB int into its components.
func UnpackRGB(c int) (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

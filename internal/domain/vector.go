package domain

import (
	"database/sql/driver"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/x448/float16"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// HalfVector stores an embedding as half-precision floats. The database
// representation is a little-endian packed float16 blob, which halves the
// row size while keeping enough precision for similarity work. Values are
// widened back to float32 on load.
type HalfVector []float32

// Value implements driver.Valuer, packing the vector into a float16 blob.
func (v HalfVector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	buf := make([]byte, 2*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint16(buf[2*i:], float16.Fromfloat32(f).Bits())
	}
	return buf, nil
}

// Scan implements sql.Scanner, unpacking a float16 blob.
func (v *HalfVector) Scan(value interface{}) error {
	if value == nil {
		*v = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return errors.New("failed to scan HalfVector: expected []byte")
	}
	if len(b)%2 != 0 {
		return fmt.Errorf("failed to scan HalfVector: odd blob length %d", len(b))
	}
	out := make(HalfVector, len(b)/2)
	for i := range out {
		out[i] = float16.Frombits(binary.LittleEndian.Uint16(b[2*i:])).Float32()
	}
	*v = out
	return nil
}

// GormDataType tells the schema parser this is a binary column, not a
// float slice.
func (HalfVector) GormDataType() string {
	return "bytes"
}

// GormDBDataType picks the binary column type for the active dialect.
func (HalfVector) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "bytea"
	}
	return "blob"
}

// AssetVector is the embedding row for an asset, one per asset, upserted
// by the enricher and cascade-deleted with the asset.
type AssetVector struct {
	AssetID   int64      `gorm:"primaryKey" json:"asset_id"`
	Embedding HalfVector `gorm:"not null" json:"embedding"`
}

// TableName returns the database table name for AssetVector.
func (AssetVector) TableName() string {
	return "asset_vectors"
}

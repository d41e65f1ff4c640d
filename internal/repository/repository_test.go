package repository

import (
	"path/filepath"
	"testing"

	"github.com/ayase/picvault/internal/config"
	"gorm.io/gorm"
)

// testDB opens a throwaway on-disk sqlite database with migrations run.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "catalog.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	return db
}

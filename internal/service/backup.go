package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ayase/picvault/internal/config"
	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/repository"
	"github.com/ayase/picvault/internal/storage"
)

// BackupService mirrors library originals into object storage. Objects
// are keyed by relative path; an object that already exists is assumed
// current because originals are immutable (a changed file changes its
// triple or is re-synced as a new asset).
type BackupService struct {
	store   storage.ObjectStore
	assets  *repository.AssetRepository
	library *config.LibraryConfig
}

// NewBackupService creates a BackupService. store may be nil when object
// storage is not configured; Run then fails fast.
func NewBackupService(store storage.ObjectStore, assets *repository.AssetRepository, library *config.LibraryConfig) *BackupService {
	return &BackupService{store: store, assets: assets, library: library}
}

// BackupStats summarizes one backup run.
type BackupStats struct {
	Total    int `json:"total"`
	Uploaded int `json:"uploaded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Run uploads every catalogued original that is not yet in the store.
// Per-asset failures are logged and counted, never fatal.
func (b *BackupService) Run(ctx context.Context, progress ProgressFunc) (*BackupStats, error) {
	if b.store == nil {
		return nil, errors.New("object storage is not configured")
	}
	assets, err := b.assets.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &BackupStats{Total: len(assets)}
	for i := range assets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		rel := assets[i].RelativePath()
		log := logger.FromContext(ctx).WithField(logger.FieldPath, rel)

		exists, err := b.store.Exists(ctx, rel)
		if err != nil {
			stats.Failed++
			log.WithError(err).Error("Failed to check backup object")
			continue
		}
		if exists {
			stats.Skipped++
		} else if err := b.uploadOriginal(ctx, rel); err != nil {
			stats.Failed++
			log.WithError(err).Error("Failed to upload original")
		} else {
			stats.Uploaded++
		}
		if progress != nil {
			progress(i+1, len(assets))
		}
	}

	logger.With(logger.Fields{
		"uploaded": stats.Uploaded,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	}).Info(ctx, "Backup completed")
	return stats, nil
}

func (b *BackupService) uploadOriginal(ctx context.Context, rel string) error {
	data, err := os.ReadFile(filepath.Join(b.library.Root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	return b.store.Put(ctx, rel, bytes.NewReader(data), int64(len(data)), storage.ContentTypeForPath(rel))
}

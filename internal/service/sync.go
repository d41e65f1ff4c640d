package service

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/ayase/picvault/internal/config"
	"github.com/ayase/picvault/internal/domain"
	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/repository"
	"github.com/ayase/picvault/internal/scanner"
	"gorm.io/gorm"
)

// VectorIndex is the similarity index the pipeline writes through to.
// Index failures are never fatal: the asset_vectors table is the record
// of truth and the index can be rebuilt from it.
type VectorIndex interface {
	Upsert(ctx context.Context, assetID int64, vector []float32, relativePath string, rating int) error
	Delete(ctx context.Context, assetIDs ...int64) error
}

// ProgressFunc receives incremental progress during a batch run.
type ProgressFunc func(processed, total int)

// SyncService runs the reconciliation and enrichment pipeline: diff the
// filesystem against the catalog, delete stale rows, insert stubs, then
// enrich every incomplete asset.
type SyncService struct {
	db        *gorm.DB
	assets    *repository.AssetRepository
	tags      *repository.TagRepository
	vectors   *repository.VectorRepository
	index     VectorIndex
	tagger    Tagger
	embedder  Embedder
	scorer    Scorer
	captioner Captioner
	library   *config.LibraryConfig
	logger    *logger.Logger
}

// SyncDeps bundles the collaborators of a SyncService. Index, Scorer and
// Captioner may be nil.
type SyncDeps struct {
	DB        *gorm.DB
	Assets    *repository.AssetRepository
	Tags      *repository.TagRepository
	Vectors   *repository.VectorRepository
	Index     VectorIndex
	Tagger    Tagger
	Embedder  Embedder
	Scorer    Scorer
	Captioner Captioner
	Library   *config.LibraryConfig
	Logger    *logger.Logger
}

// NewSyncService creates the pipeline service.
func NewSyncService(deps SyncDeps) *SyncService {
	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}
	return &SyncService{
		db:        deps.DB,
		assets:    deps.Assets,
		tags:      deps.Tags,
		vectors:   deps.Vectors,
		index:     deps.Index,
		tagger:    deps.Tagger,
		embedder:  deps.Embedder,
		scorer:    deps.Scorer,
		captioner: deps.Captioner,
		library:   deps.Library,
		logger:    log,
	}
}

func (s *SyncService) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}

// SyncStats summarizes one pipeline run.
type SyncStats struct {
	Scanned   int       `json:"scanned"`
	Deleted   int       `json:"deleted"`
	Inserted  int       `json:"inserted"`
	Enriched  int       `json:"enriched"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Sync runs the full pipeline: scan, reconcile, enrich. Reconciliation
// always completes before enrichment starts.
func (s *SyncService) Sync(ctx context.Context, progress ProgressFunc) (*SyncStats, error) {
	stats := &SyncStats{StartTime: time.Now()}

	scan, err := scanner.New(s.library.Root).Scan()
	if err != nil {
		return nil, err
	}
	stats.Scanned = len(scan)
	s.log(ctx).WithField(logger.FieldCount, len(scan)).Info("Scanned library")

	deleted, inserted, err := s.Reconcile(ctx, scan)
	if err != nil {
		return nil, err
	}
	stats.Deleted = deleted
	stats.Inserted = inserted

	enrich, err := s.EnrichIncomplete(ctx, false, progress)
	if err != nil {
		return nil, err
	}
	stats.Enriched = enrich.Enriched
	stats.Skipped = enrich.Skipped
	stats.Failed = enrich.Failed
	stats.EndTime = time.Now()

	logger.With(logger.Fields{
		logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
		"deleted":              stats.Deleted,
		"inserted":             stats.Inserted,
		"enriched":             stats.Enriched,
		"failed":               stats.Failed,
	}).Info(ctx, "Sync completed")

	return stats, nil
}

// Reconcile diffs the on-disk triple set against the catalog. Deletions
// run first so that renames colliding with stale metadata never read as
// already enriched. Each row operation commits on its own; a failure
// partway through insertions leaves completed deletions in place.
func (s *SyncService) Reconcile(ctx context.Context, disk map[domain.PathTriple]struct{}) (deleted, inserted int, err error) {
	dbTriples, err := s.assets.ListTriples(ctx)
	if err != nil {
		return 0, 0, err
	}
	inDB := make(map[domain.PathTriple]struct{}, len(dbTriples))
	for _, t := range dbTriples {
		inDB[t] = struct{}{}
	}

	for _, t := range dbTriples {
		if _, onDisk := disk[t]; onDisk {
			continue
		}
		if err := s.deleteAsset(ctx, t); err != nil {
			return deleted, inserted, err
		}
		deleted++
	}
	if deleted > 0 {
		s.log(ctx).WithField(logger.FieldCount, deleted).Info("Removed stale assets")
	}

	for t := range disk {
		if _, known := inDB[t]; known {
			continue
		}
		if err := s.assets.InsertStub(ctx, t); err != nil {
			return deleted, inserted, err
		}
		inserted++
	}
	if inserted > 0 {
		s.log(ctx).WithField(logger.FieldCount, inserted).Info("Inserted stub assets")
	}

	return deleted, inserted, nil
}

// deleteAsset removes the catalog row (cascading) and best-effort cleans
// up the thumbnail, the original file if still present, and the index
// point. Row removal is the authoritative action; unlink failures are
// logged and swallowed.
func (s *SyncService) deleteAsset(ctx context.Context, t domain.PathTriple) error {
	var assetID int64
	if asset, err := s.assets.GetByTriple(ctx, t); err == nil {
		assetID = asset.ID
	}

	if err := s.assets.DeleteByTriple(ctx, t); err != nil {
		return err
	}

	rel := t.RelativePath()
	if err := os.Remove(s.thumbnailPath(rel)); err != nil && !os.IsNotExist(err) {
		s.log(ctx).WithField(logger.FieldPath, rel).WithError(err).Warn("Failed to remove thumbnail")
	}
	if err := os.Remove(s.absolutePath(rel)); err != nil && !os.IsNotExist(err) {
		s.log(ctx).WithField(logger.FieldPath, rel).WithError(err).Warn("Failed to remove original file")
	}

	if s.index != nil && assetID != 0 {
		if err := s.index.Delete(ctx, assetID); err != nil {
			s.log(ctx).WithField(logger.FieldAssetID, assetID).WithError(err).Warn("Failed to remove index point")
		}
	}
	return nil
}

// DeleteByIDs removes assets by id together with their files, thumbnails
// and index points.
func (s *SyncService) DeleteByIDs(ctx context.Context, ids []int64) error {
	assets, err := s.assets.DeleteByIDs(ctx, ids)
	if err != nil {
		return err
	}
	for i := range assets {
		rel := assets[i].RelativePath()
		if err := os.Remove(s.thumbnailPath(rel)); err != nil && !os.IsNotExist(err) {
			s.log(ctx).WithField(logger.FieldPath, rel).WithError(err).Warn("Failed to remove thumbnail")
		}
		if err := os.Remove(s.absolutePath(rel)); err != nil && !os.IsNotExist(err) {
			s.log(ctx).WithField(logger.FieldPath, rel).WithError(err).Warn("Failed to remove original file")
		}
		if s.index != nil {
			if err := s.index.Delete(ctx, assets[i].ID); err != nil {
				s.log(ctx).WithField(logger.FieldAssetID, assets[i].ID).WithError(err).Warn("Failed to remove index point")
			}
		}
	}
	return nil
}

// RebuildIndex pushes every stored embedding back into the similarity
// index. Used after an index wipe or a collection recreation.
func (s *SyncService) RebuildIndex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	rows, err := s.vectors.ListAll(ctx)
	if err != nil {
		return 0, err
	}
	pushed := 0
	for i := range rows {
		if err := ctx.Err(); err != nil {
			return pushed, err
		}
		asset, err := s.assets.GetByID(ctx, rows[i].AssetID)
		if err != nil {
			continue
		}
		if err := s.index.Upsert(ctx, asset.ID, rows[i].Embedding, asset.RelativePath(), int(asset.Rating)); err != nil {
			return pushed, err
		}
		pushed++
	}
	s.log(ctx).WithField(logger.FieldCount, pushed).Info("Rebuilt similarity index")
	return pushed, nil
}

func (s *SyncService) absolutePath(rel string) string {
	return filepath.Join(s.library.Root, filepath.FromSlash(rel))
}

func (s *SyncService) thumbnailPath(rel string) string {
	return filepath.Join(s.library.ThumbnailsDir(), filepath.FromSlash(rel))
}

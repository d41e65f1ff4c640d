package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"

	"github.com/ayase/picvault/internal/domain"
	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/media"
	"gorm.io/gorm"
)

// Display colors for the auto-managed tag groups.
const (
	TagGroupGeneral   = "general"
	TagGroupCharacter = "character"
	TagGroupArtist    = "artist"
	TagGroupCopyright = "copyright"

	colorGeneral   = "#006192"
	colorCharacter = "#8243ca"
	colorArtist    = "#f30000"
	colorCopyright = "#00b300"
)

// EnrichStats summarizes an enrichment batch.
type EnrichStats struct {
	Total    int `json:"total"`
	Enriched int `json:"enriched"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// EnrichIncomplete enriches every stub asset, in id order. With all set,
// already enriched assets are reprocessed too. Per-asset failures are
// logged and counted; only storage-level errors abort the batch.
func (s *SyncService) EnrichIncomplete(ctx context.Context, all bool, progress ProgressFunc) (*EnrichStats, error) {
	var (
		assets []domain.Asset
		err    error
	)
	if all {
		assets, err = s.assets.ListAll(ctx)
	} else {
		assets, err = s.assets.ListIncomplete(ctx)
	}
	if err != nil {
		return nil, err
	}

	stats := &EnrichStats{Total: len(assets)}
	for i := range assets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		switch err := s.enrichAsset(ctx, &assets[i]); {
		case err == nil:
			stats.Enriched++
		case errors.Is(err, errAssetSkipped):
			stats.Skipped++
		default:
			stats.Failed++
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldAssetID: assets[i].ID,
				logger.FieldPath:    assets[i].RelativePath(),
			}).WithError(err).Error("Failed to enrich asset")
		}
		if progress != nil {
			progress(i+1, len(assets))
		}
	}
	return stats, nil
}

// errAssetSkipped marks an asset the enricher intentionally left alone
// (unsupported extension, or a file that vanished under it).
var errAssetSkipped = errors.New("asset skipped")

// enrichAsset runs the full enrichment sequence for one asset. All row
// writes happen in a single transaction so an asset is either fully
// enriched or still a stub. Filesystem effects (thumbnail, corrupt-file
// removal) happen outside the transaction and are recreated on retry.
func (s *SyncService) enrichAsset(ctx context.Context, asset *domain.Asset) error {
	log := s.log(ctx).WithFields(logger.Fields{
		logger.FieldAssetID: asset.ID,
		logger.FieldPath:    asset.RelativePath(),
	})

	if !media.IsSupportedExtension(asset.Extension) {
		return errAssetSkipped
	}

	abs := s.absolutePath(asset.RelativePath())
	data, err := os.ReadFile(abs)
	if os.IsNotExist(err) {
		// The file vanished between scan and enrichment. The row is
		// stale; the next reconcile would drop it anyway.
		log.Warn("File disappeared before enrichment, removing row")
		if derr := s.assets.DeleteByTriple(ctx, asset.Triple()); derr != nil {
			return derr
		}
		return errAssetSkipped
	}
	if err != nil {
		return err
	}

	img, err := media.Decode(data)
	if err != nil {
		// Undecodable files are junk. Remove both the file and the row
		// so neither the catalog nor the library keeps carrying it.
		log.WithError(err).Warn("Undecodable image, removing file and row")
		if rerr := os.Remove(abs); rerr != nil && !os.IsNotExist(rerr) {
			log.WithError(rerr).Warn("Failed to remove undecodable file")
		}
		if derr := s.assets.DeleteByTriple(ctx, asset.Triple()); derr != nil {
			return derr
		}
		return errAssetSkipped
	}

	bounds := img.Bounds()
	asset.Width = bounds.Dx()
	asset.Height = bounds.Dy()

	thumbPath := s.thumbnailPath(asset.RelativePath())
	if _, err := os.Stat(thumbPath); os.IsNotExist(err) {
		if terr := media.SaveThumbnail(img, thumbPath, s.library.ThumbnailMaxSize); terr != nil {
			log.WithError(terr).Warn("Failed to write thumbnail")
		}
	}

	var palette []domain.AssetPaletteEntry
	hasPalette, err := s.assets.HasPalette(ctx, asset.ID)
	if err != nil {
		return err
	}
	if !hasPalette {
		colors, r, g, b := media.Palette(img, s.library.PaletteSize)
		for ord, c := range colors {
			palette = append(palette, domain.AssetPaletteEntry{
				AssetID: asset.ID,
				Ord:     ord,
				Color:   c,
			})
		}
		lab := media.RGBToLab(r, g, b)
		asset.ColorL, asset.ColorA, asset.ColorB = &lab.L, &lab.A, &lab.B
	}

	sum := sha256.Sum256(data)
	asset.SHA256 = hex.EncodeToString(sum[:])
	asset.Size = int64(len(data))

	var vector []float32
	if s.embedder != nil {
		vector, err = s.embedder.EmbedImage(ctx, data)
		if err != nil {
			log.WithError(err).Warn("Embedding failed, continuing without vector")
			vector = nil
		}
	}

	var tagResult *TagResult
	if s.tagger != nil {
		tagResult, err = s.tagger.Tag(ctx, data)
		if err != nil {
			log.WithError(err).Warn("Auto-tagging failed, continuing without tags")
			tagResult = nil
		}
	}

	if s.captioner != nil && s.captioner.IsEnabled() && asset.Caption == "" {
		caption, err := s.captioner.Caption(ctx, data)
		if err != nil {
			log.WithError(err).Warn("Captioning failed, continuing without caption")
		} else {
			asset.Caption = caption
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assets := s.assets.WithTx(tx)
		if err := assets.Save(ctx, asset); err != nil {
			return err
		}
		if err := assets.CreatePalette(ctx, palette); err != nil {
			return err
		}
		if vector != nil {
			if err := s.vectors.WithTx(tx).Upsert(ctx, asset.ID, vector); err != nil {
				return err
			}
		}
		if tagResult != nil {
			if err := s.applyTagResult(ctx, tx, asset, tagResult); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.index != nil && vector != nil {
		if ierr := s.index.Upsert(ctx, asset.ID, vector, asset.RelativePath(), int(asset.Rating)); ierr != nil {
			log.WithError(ierr).Warn("Failed to upsert index point")
		}
	}

	log.Debug("Asset enriched")
	return nil
}

// applyTagResult writes the tagger's rating and tag assignments inside
// the given transaction. A rating set by hand is never overwritten, and
// existing assignments keep their is_auto flag.
func (s *SyncService) applyTagResult(ctx context.Context, tx *gorm.DB, asset *domain.Asset, result *TagResult) error {
	assets := s.assets.WithTx(tx)
	tags := s.tags.WithTx(tx)

	if asset.Rating == domain.RatingUnrated {
		if rating := domain.RatingFromLabel(result.Rating); rating != domain.RatingUnrated {
			asset.Rating = rating
			if err := assets.UpdateFields(ctx, asset.ID, map[string]interface{}{"rating": rating}); err != nil {
				return err
			}
		}
	}

	groups := []struct {
		name  string
		color string
		tags  []string
	}{
		{TagGroupGeneral, colorGeneral, result.GeneralTags},
		{TagGroupCharacter, colorCharacter, result.CharacterTags},
	}
	for _, g := range groups {
		if len(g.tags) == 0 {
			continue
		}
		group, err := tags.GetOrCreateGroup(ctx, g.name, g.color)
		if err != nil {
			return err
		}
		for _, name := range g.tags {
			if _, err := tags.GetOrCreateTag(ctx, name, &group.ID); err != nil {
				return err
			}
			if err := tags.AttachIfAbsent(ctx, asset.ID, name, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// AutoTag runs the tagger over every enriched asset that has no
// auto-assigned tags yet.
func (s *SyncService) AutoTag(ctx context.Context, progress ProgressFunc) (*EnrichStats, error) {
	if s.tagger == nil {
		return nil, errors.New("no tagger configured")
	}
	assets, err := s.assets.ListUntagged(ctx)
	if err != nil {
		return nil, err
	}
	stats := &EnrichStats{Total: len(assets)}
	for i := range assets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.autoTagAsset(ctx, &assets[i]); err != nil {
			stats.Failed++
			s.log(ctx).WithField(logger.FieldAssetID, assets[i].ID).WithError(err).Error("Failed to auto-tag asset")
		} else {
			stats.Enriched++
		}
		if progress != nil {
			progress(i+1, len(assets))
		}
	}
	return stats, nil
}

// AutoTagByID runs the tagger over one asset.
func (s *SyncService) AutoTagByID(ctx context.Context, id int64) error {
	if s.tagger == nil {
		return errors.New("no tagger configured")
	}
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.autoTagAsset(ctx, asset)
}

func (s *SyncService) autoTagAsset(ctx context.Context, asset *domain.Asset) error {
	data, err := os.ReadFile(s.absolutePath(asset.RelativePath()))
	if err != nil {
		return err
	}
	result, err := s.tagger.Tag(ctx, data)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.applyTagResult(ctx, tx, asset, result)
	})
}

// AutoScore predicts an aesthetic score for every enriched asset that
// lacks one, then folds aesthetic scores into the curation score of
// every still-unscored asset.
func (s *SyncService) AutoScore(ctx context.Context, progress ProgressFunc) (*EnrichStats, error) {
	if s.scorer == nil {
		return nil, errors.New("no scorer configured")
	}
	var assets []domain.Asset
	if err := s.db.WithContext(ctx).
		Where("sha256 <> ''").
		Where("NOT EXISTS (SELECT 1 FROM asset_aesthetic_scores WHERE asset_aesthetic_scores.asset_id = assets.id)").
		Order("id ASC").
		Find(&assets).Error; err != nil {
		return nil, err
	}

	stats := &EnrichStats{Total: len(assets)}
	for i := range assets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := s.scoreAsset(ctx, &assets[i]); err != nil {
			stats.Failed++
			s.log(ctx).WithField(logger.FieldAssetID, assets[i].ID).WithError(err).Error("Failed to score asset")
		} else {
			stats.Enriched++
		}
		if progress != nil {
			progress(i+1, len(assets))
		}
	}

	if err := s.ApplyScoreBuckets(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s *SyncService) scoreAsset(ctx context.Context, asset *domain.Asset) error {
	data, err := os.ReadFile(s.absolutePath(asset.RelativePath()))
	if err != nil {
		return err
	}
	score, err := s.scorer.ScoreImage(ctx, data)
	if err != nil {
		return err
	}
	return s.vectors.UpsertAestheticScore(ctx, asset.ID, score)
}

// ApplyScoreBuckets sets the curation score of every unscored asset from
// its aesthetic score. Assets a curator already scored are left alone.
func (s *SyncService) ApplyScoreBuckets(ctx context.Context) error {
	buckets := []struct {
		score int
		cond  string
	}{
		{1, "score < 2"},
		{2, "score >= 2 AND score < 4"},
		{3, "score >= 4 AND score < 7.5"},
		{4, "score >= 7.5 AND score < 8"},
		{5, "score >= 8"},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, b := range buckets {
			if err := tx.Exec(
				"UPDATE assets SET score = ? WHERE score = 0 AND id IN (SELECT asset_id FROM asset_aesthetic_scores WHERE "+b.cond+")",
				b.score,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

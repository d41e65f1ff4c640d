package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ayase/picvault/internal/config"
	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/repository"
	"github.com/ayase/picvault/internal/service"
	"github.com/ayase/picvault/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "path to config file")
		command    = flag.String("cmd", "sync", "command to run: sync, autotag, autoscore, reindex, backup")
		all        = flag.Bool("all", false, "sync: re-enrich every asset, not only stubs")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(nil)
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	if err := cfg.Library.EnsureStateDirs(); err != nil {
		appLogger.WithError(err).Fatal("Failed to prepare library state directory")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	assetRepo := repository.NewAssetRepository(db)
	tagRepo := repository.NewTagRepository(db)
	vectorRepo := repository.NewVectorRepository(db)

	// Cancel the run on Ctrl-C; the pipeline stops between assets.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var index service.VectorIndex
	if cfg.Qdrant.Host != "" {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Qdrant.VectorDimension,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize Qdrant repository")
		}
		defer qdrantRepo.Close()
		if err := qdrantRepo.EnsureCollection(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure Qdrant collection")
		}
		index = qdrantRepo
	}

	var scorer service.Scorer
	if cfg.Scorer.Enabled {
		scorer = service.NewScorerService(&cfg.Scorer)
	}

	syncService := service.NewSyncService(service.SyncDeps{
		DB:        db,
		Assets:    assetRepo,
		Tags:      tagRepo,
		Vectors:   vectorRepo,
		Index:     index,
		Tagger:    service.NewTaggerService(&cfg.Tagger),
		Embedder:  service.NewEmbedderService(&cfg.Embedder),
		Scorer:    scorer,
		Captioner: service.NewCaptionerService(&cfg.Caption),
		Library:   &cfg.Library,
		Logger:    appLogger,
	})

	progress := func(processed, total int) {
		if total > 0 && (processed%50 == 0 || processed == total) {
			fmt.Printf("\r%d/%d", processed, total)
			if processed == total {
				fmt.Println()
			}
		}
	}

	switch *command {
	case "sync":
		if *all {
			if _, err := syncService.EnrichIncomplete(ctx, true, progress); err != nil {
				appLogger.WithError(err).Fatal("Re-enrichment failed")
			}
			return
		}
		stats, err := syncService.Sync(ctx, progress)
		if err != nil {
			appLogger.WithError(err).Fatal("Sync failed")
		}
		fmt.Printf("scanned=%d deleted=%d inserted=%d enriched=%d skipped=%d failed=%d\n",
			stats.Scanned, stats.Deleted, stats.Inserted, stats.Enriched, stats.Skipped, stats.Failed)

	case "autotag":
		stats, err := syncService.AutoTag(ctx, progress)
		if err != nil {
			appLogger.WithError(err).Fatal("Auto-tag failed")
		}
		fmt.Printf("tagged=%d failed=%d\n", stats.Enriched, stats.Failed)

	case "autoscore":
		stats, err := syncService.AutoScore(ctx, progress)
		if err != nil {
			appLogger.WithError(err).Fatal("Auto-score failed")
		}
		fmt.Printf("scored=%d failed=%d\n", stats.Enriched, stats.Failed)

	case "reindex":
		pushed, err := syncService.RebuildIndex(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Index rebuild failed")
		}
		fmt.Printf("pushed=%d\n", pushed)

	case "backup":
		if !cfg.Storage.Enabled {
			appLogger.Fatal("Object storage is not configured")
		}
		store, err := storage.NewS3Store(&storage.S3Options{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			BaseDir:   cfg.Storage.BaseDir,
			PublicURL: cfg.Storage.PublicURL,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize object storage")
		}
		if err := store.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
		stats, err := service.NewBackupService(store, assetRepo, &cfg.Library).Run(ctx, progress)
		if err != nil {
			appLogger.WithError(err).Fatal("Backup failed")
		}
		fmt.Printf("uploaded=%d skipped=%d failed=%d\n", stats.Uploaded, stats.Skipped, stats.Failed)

	default:
		appLogger.Fatalf("Unknown command: %s", *command)
	}
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ayase/picvault/internal/api"
	"github.com/ayase/picvault/internal/config"
	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/repository"
	"github.com/ayase/picvault/internal/service"
	"github.com/ayase/picvault/internal/storage"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
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

	ctx := context.Background()

	// The similarity index is optional. Without it search-by-example is
	// unavailable but the catalog works.
	var qdrantRepo *repository.QdrantRepository
	var index service.VectorIndex
	if cfg.Qdrant.Host != "" {
		qdrantRepo, err = repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
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
	} else {
		appLogger.Warn("Qdrant host not configured, similarity search disabled")
	}

	var backupService *service.BackupService
	if cfg.Storage.Enabled {
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
		backupService = service.NewBackupService(store, assetRepo, &cfg.Library)
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
	queryService := service.NewQueryService(db, cfg.Database.Driver)

	router := api.SetupRouter(api.Deps{
		Config:  cfg,
		Logger:  appLogger,
		DB:      db,
		Query:   queryService,
		Sync:    syncService,
		Backup:  backupService,
		Assets:  assetRepo,
		Tags:    tagRepo,
		Vectors: vectorRepo,
		Qdrant:  qdrantRepo,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
			"root": cfg.Library.Root,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

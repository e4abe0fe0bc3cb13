// Catalogd ingests product catalogs into a vector index and serves
// autocomplete and search suggestions over HTTP.
//
// Configuration is loaded from an optional YAML file plus environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults
//	catalogd
//
//	# Configure via file and environment
//	SERVER_PORT=9090 QDRANT_HOST=localhost catalogd -config catalogd.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/catalogd/internal/api"
	"github.com/fyrsmithlabs/catalogd/internal/cache"
	"github.com/fyrsmithlabs/catalogd/internal/config"
	"github.com/fyrsmithlabs/catalogd/internal/embeddings"
	"github.com/fyrsmithlabs/catalogd/internal/imaging"
	"github.com/fyrsmithlabs/catalogd/internal/ingest"
	"github.com/fyrsmithlabs/catalogd/internal/logging"
	"github.com/fyrsmithlabs/catalogd/internal/objectstore"
	"github.com/fyrsmithlabs/catalogd/internal/search"
	"github.com/fyrsmithlabs/catalogd/internal/vectorstore"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

// run wires all dependencies and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting catalogd")

	store, err := vectorstore.NewQdrantStore(vectorstore.QdrantConfig{
		Host:         cfg.Qdrant.Host,
		Port:         cfg.Qdrant.Port,
		APIKey:       cfg.Qdrant.APIKey.Value(),
		UseTLS:       cfg.Qdrant.UseTLS,
		MaxRetries:   cfg.Qdrant.MaxRetries,
		RetryBackoff: cfg.Qdrant.RetryBackoff.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to vector index: %w", err)
	}
	defer func() { _ = store.Close() }()

	kv := cache.New(cache.Config{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password.Value(),
		DB:       cfg.Cache.DB,
	}, logger)

	embedder, err := embeddings.NewProvider(cfg.Embedding, logger)
	if err != nil {
		return fmt.Errorf("initializing embeddings: %w", err)
	}
	defer func() { _ = embedder.Close() }()

	uploader, err := objectstore.NewS3Store(objectstore.Config{
		Endpoint:      cfg.ObjectStore.Endpoint,
		AccessKey:     cfg.ObjectStore.AccessKey,
		SecretKey:     cfg.ObjectStore.SecretKey.Value(),
		Bucket:        cfg.ObjectStore.Bucket,
		PublicBaseURL: cfg.ObjectStore.PublicBaseURL,
		UseSSL:        cfg.ObjectStore.UseSSL,
	})
	if err != nil {
		return fmt.Errorf("initializing object storage: %w", err)
	}

	resolver := imaging.NewResolver(imaging.Config{
		ThumbnailSize: cfg.Ingest.ThumbnailSize,
		JPEGQuality:   cfg.Ingest.JPEGQuality,
		FetchInterval: cfg.Ingest.FetchInterval.Duration(),
		FetchTimeout:  cfg.Ingest.ImageTimeout.Duration(),
		CacheTTL:      cfg.Cache.ImageTTL.Duration(),
	}, kv, uploader, logger)

	jobs := ingest.NewJobs(kv, cfg.Cache.JobTTL.Duration(), cfg.Cache.CancelTTL.Duration(), logger)
	indexer := ingest.NewIndexer(ingest.Config{
		BatchSize:    cfg.Ingest.BatchSize,
		ImageTimeout: cfg.Ingest.ImageTimeout.Duration(),
	}, store, embedder, resolver, uploader, jobs, logger)

	searchSvc := search.NewService(search.Deps{
		Config:      cfg.Search,
		Cache:       kv,
		EnvelopeTTL: cfg.Cache.EnvelopeTTL.Duration(),
		TypoTTL:     cfg.Cache.TypoTTL.Duration(),
		Store:       store,
		Embedder:    embedder,
		Scraper:     resolver,
		Logger:      logger,
	})

	server, err := api.NewServer(cfg.Server, searchSvc, jobs, indexer, logger)
	if err != nil {
		return fmt.Errorf("creating http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

// Package app wires configuration, storage, search, object storage and the
// ingestion pipeline into a runnable service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meilisearch/meilisearch-go"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"newsindex/internal/cluster"
	"newsindex/internal/config"
	"newsindex/internal/feed"
	"newsindex/internal/infrastructure/explorer"
	"newsindex/internal/infrastructure/extractor"
	"newsindex/internal/infrastructure/imaging"
	"newsindex/internal/infrastructure/objstore"
	"newsindex/internal/infrastructure/scheduler"
	"newsindex/internal/infrastructure/search"
	"newsindex/internal/infrastructure/storage"
	"newsindex/internal/infrastructure/videofinder"
	"newsindex/internal/logging"
	"newsindex/internal/pipeline"
)

// Application owns the wired components and the ingestion lifecycle.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	store     *storage.Store
	manager   *feed.Manager
	scheduler *scheduler.Cron

	mu       sync.Mutex
	inFlight map[string]bool
}

// New builds a fully wired application.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = logging.New(cfg.Logging.Level)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	store := storage.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	index := search.NewIndex(
		meilisearch.New(cfg.Search.Host, meilisearch.WithAPIKey(cfg.Search.APIKey)),
		cfg.Search.Index,
	)
	if err := index.EnsureFilters(); err != nil {
		logger.Warn("search filter setup failed", "err", err)
	}

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect object storage: %w", err)
	}
	objects := objstore.New(minioClient, cfg.Storage.Bucket)

	engine := cluster.NewEngine(store, store, store, index, objects, cluster.Limits{
		MinScore:           cfg.Clustering.MinSearchScore,
		MinStoryNews:       cfg.Clustering.MinStoryNews,
		ImportantNewsCount: cfg.Clustering.ImportantNewsCount,
		SmallMarketCountry: cfg.Clustering.SmallMarketCountry,
	}, logging.Component(logger, "cluster"))

	extractorClient := extractor.NewClient(cfg.Extractor.Endpoint, cfg.Extractor.APIKey)

	media := pipeline.NewMediaResolver(store, store,
		imaging.NewProcessor(), objects, logging.Component(logger, "media"))

	itemPipeline := pipeline.New(pipeline.Deps{
		Explorer: explorer.New(videofinder.NewRegistry(), logging.Component(logger, "explorer")),
		Pages:    store,
		Quotes:   store,
		Topics:   extractorClient,
		QuotesEx: extractorClient,
		Media:    media,
		Search:   index,
		Cluster:  engine,
		Logger:   logging.Component(logger, "pipeline"),
	})

	reader := feed.NewReader(&http.Client{}, cfg.Encodings, logging.Component(logger, "reader"))
	manager := feed.NewManager(reader, store, itemPipeline,
		cfg.Ingest.FeedLimit, cfg.Ingest.MaxAge(), logging.Component(logger, "feeds"))

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		store:     store,
		manager:   manager,
		scheduler: scheduler.New(cfg.Scheduler.CronExpression, cfg.Scheduler.Location()),
		inFlight:  map[string]bool{},
	}, nil
}

// Run starts the scheduler and blocks until the context is canceled. The
// first cycle fires immediately.
func (a *Application) Run(ctx context.Context) error {
	job := func(now time.Time) {
		if err := a.RunCycle(ctx); err != nil {
			a.logger.Error("ingestion cycle failed", "err", err)
		}
	}

	if err := a.scheduler.Start(ctx, job); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	job(time.Now())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		a.logger.Warn("scheduler stop timed out", "err", err)
	}
	a.pool.Close()
	return nil
}

// RunCycle reads every enabled feed once with bounded concurrency. A feed
// whose previous cycle is still running is skipped, never run twice at once.
func (a *Application) RunCycle(ctx context.Context) error {
	feeds, err := a.store.ListEnabledFeeds(ctx)
	if err != nil {
		return fmt.Errorf("list feeds: %w", err)
	}
	a.logger.Info("ingestion cycle started", "feeds", len(feeds))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.cfg.Ingest.Concurrency)
	for _, fd := range feeds {
		if !a.claim(fd.ID) {
			a.logger.Warn("feed cycle still running, skipped", "feed", fd.ID)
			continue
		}
		group.Go(func() error {
			defer a.release(fd.ID)
			if err := a.manager.ProcessFeed(groupCtx, fd); err != nil {
				a.logger.Error("feed processing failed", "feed", fd.ID, "err", err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}
	a.logger.Info("ingestion cycle finished")
	return nil
}

func (a *Application) claim(feedID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight[feedID] {
		return false
	}
	a.inFlight[feedID] = true
	return true
}

func (a *Application) release(feedID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inFlight, feedID)
}

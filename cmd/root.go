// Package cmd defines the storesync CLI commands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/vectorstores/chroma"
	"go.uber.org/zap"

	"github.com/retailradar/storesync/internal/assets"
	"github.com/retailradar/storesync/internal/config"
	"github.com/retailradar/storesync/internal/crawler"
	"github.com/retailradar/storesync/internal/extract"
	"github.com/retailradar/storesync/internal/knowledge"
	"github.com/retailradar/storesync/internal/logging"
	"github.com/retailradar/storesync/internal/retrieval"
	"github.com/retailradar/storesync/internal/storage"
	gcsblob "github.com/retailradar/storesync/internal/storage/gcs"
	memblob "github.com/retailradar/storesync/internal/storage/memory"
	"github.com/retailradar/storesync/internal/syncer"
	"github.com/retailradar/storesync/internal/urlcache"
)

var cfgFile string

// application holds the loaded configuration and lazily built service
// collaborators shared by the subcommands.
type application struct {
	cfg     config.Config
	logger  *zap.Logger
	closers []func()
}

func newApplication() (*application, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return &application{cfg: cfg, logger: logger}, nil
}

// Close releases collaborators in reverse construction order.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

func (a *application) llmClient() (*openai.LLM, error) {
	opts := []openai.Option{openai.WithModel(a.cfg.LLM.Model)}
	if a.cfg.LLM.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(a.cfg.LLM.BaseURL))
	}
	if a.cfg.LLM.APIKey != "" {
		opts = append(opts, openai.WithToken(a.cfg.LLM.APIKey))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init reasoning client: %w", err)
	}
	return client, nil
}

func (a *application) extractor() (*extract.Extractor, error) {
	client, err := a.llmClient()
	if err != nil {
		return nil, err
	}
	caller := extract.NewCaller(client, extract.CallerConfig{
		MaxAttempts:    a.cfg.Extract.MaxAttempts,
		BackoffBaseSec: a.cfg.Extract.BackoffBaseSec,
	}, a.logger)
	return extract.New(caller, extract.Config{ContentBudget: a.cfg.Extract.ContentBudget}, a.logger), nil
}

func (a *application) knowledgeStore() (knowledge.Store, error) {
	client, err := a.llmClient()
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	store, err := chroma.New(
		chroma.WithChromaURL(a.cfg.Knowledge.ChromaURL),
		chroma.WithEmbedder(embedder),
		chroma.WithNameSpace(a.cfg.Knowledge.Collection),
	)
	if err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	return knowledge.NewLangchainStore(store, a.logger), nil
}

func (a *application) frontier() (*crawler.Frontier, error) {
	var fetcher crawler.Fetcher
	if a.cfg.Crawler.Headless {
		headless, err := crawler.NewChromedpFetcher(crawler.ChromedpConfig{
			UserAgent:   a.cfg.Crawler.UserAgent,
			NavTimeout:  a.cfg.Crawler.FetchTimeout,
			MaxParallel: a.cfg.Crawler.Concurrency,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("init headless fetcher: %w", err)
		}
		a.closers = append(a.closers, headless.Close)
		fetcher = headless
	} else {
		fetcher = crawler.NewCollyFetcher(crawler.CollyConfig{
			UserAgent: a.cfg.Crawler.UserAgent,
			Timeout:   a.cfg.Crawler.FetchTimeout,
		}, a.logger)
	}
	policy := crawler.NewExclusionPolicy(a.cfg.Crawler.ExcludedKeywords...)
	return crawler.NewFrontier(fetcher, policy, crawler.Config{
		Concurrency:     a.cfg.Crawler.Concurrency,
		FetchTimeout:    a.cfg.Crawler.FetchTimeout,
		RoundPause:      a.cfg.Crawler.RoundPause,
		MinContentChars: a.cfg.Crawler.MinContentChars,
		DomainRPS:       a.cfg.Crawler.DomainRPS,
	}, a.logger), nil
}

func (a *application) assetPipeline(ctx context.Context) (*assets.Pipeline, error) {
	var blobs storage.BlobStore
	if a.cfg.Storage.GCSBucket != "" {
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init storage client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		blobs, err = gcsblob.New(client, gcsblob.Config{
			Bucket:    a.cfg.Storage.GCSBucket,
			PublicURL: a.cfg.Storage.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("init blob store: %w", err)
		}
	} else {
		a.logger.Warn("no bucket configured, mirrored assets are held in memory only")
		blobs = memblob.NewBlobStore()
	}

	var cache urlcache.Cache
	if a.cfg.Cache.RedisAddr != "" {
		redisCache := urlcache.NewRedisCache(a.cfg.Cache.RedisAddr, a.cfg.Cache.KeyPrefix, a.cfg.Cache.TTL)
		a.closers = append(a.closers, func() { _ = redisCache.Close() })
		cache = redisCache
	} else {
		cache = urlcache.NewMemoryCache()
	}

	return assets.New(cache, blobs, assets.Config{
		DownloadTimeout: a.cfg.Assets.DownloadTimeout,
		ProxyURL:        a.cfg.Assets.ProxyURL,
		KeyPrefix:       a.cfg.Assets.KeyPrefix,
	}, a.logger)
}

func (a *application) syncService(ctx context.Context) (*syncer.Service, error) {
	frontier, err := a.frontier()
	if err != nil {
		return nil, err
	}
	extractor, err := a.extractor()
	if err != nil {
		return nil, err
	}
	pipeline, err := a.assetPipeline(ctx)
	if err != nil {
		return nil, err
	}
	store, err := a.knowledgeStore()
	if err != nil {
		return nil, err
	}
	ingestor := knowledge.NewIngestor(store, knowledge.IngestConfig{
		ChunkSize:    a.cfg.Ingest.ChunkSize,
		ChunkOverlap: a.cfg.Ingest.ChunkOverlap,
		BatchSize:    a.cfg.Ingest.BatchSize,
	}, a.logger)
	return syncer.New(frontier, extractor, pipeline, ingestor, syncer.Config{
		PageConcurrency: a.cfg.Sync.PageConcurrency,
		PageTimeout:     a.cfg.Sync.PageTimeout,
		RequireImage:    a.cfg.Assets.RequireImage,
	}, a.logger), nil
}

func (a *application) retrievalEngine() (*retrieval.Engine, error) {
	store, err := a.knowledgeStore()
	if err != nil {
		return nil, err
	}
	return retrieval.NewEngine(store, a.logger), nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storesync",
		Short: "Crawl retail storefronts into a searchable knowledge store",
		Long: `storesync walks a storefront breadth-first, extracts structured
product records from each page, mirrors product images to durable
storage, and writes everything into a vector knowledge store that the
query command searches with relevance-scored retrieval.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newSyncCmd(), newDiscoverCmd(), newQueryCmd(), newClearCmd())
	return cmd
}

// Execute runs the CLI with an interrupt-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "storesync: %v\n", err)
		os.Exit(1)
	}
}

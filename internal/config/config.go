// Package config loads and validates storesync configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Extract   ExtractConfig   `mapstructure:"extract"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Retrieval RetrievalConfig `mapstructure:"retrieval"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// CrawlerConfig governs the crawl frontier.
type CrawlerConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	MaxPagesDefault  int           `mapstructure:"max_pages_default"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	RoundPause       time.Duration `mapstructure:"round_pause"`
	MinContentChars  int           `mapstructure:"min_content_chars"`
	DomainRPS        float64       `mapstructure:"domain_rps"`
	Headless         bool          `mapstructure:"headless"`
	UserAgent        string        `mapstructure:"user_agent"`
	ExcludedKeywords []string      `mapstructure:"excluded_keywords"`
}

// ExtractConfig governs the structured extractor and its resilient caller.
type ExtractConfig struct {
	ContentBudget  int `mapstructure:"content_budget"`
	MaxAttempts    int `mapstructure:"max_attempts"`
	BackoffBaseSec int `mapstructure:"backoff_base_sec"`
}

// AssetsConfig governs image download and mirroring.
type AssetsConfig struct {
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	ProxyURL        string        `mapstructure:"proxy_url"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	RequireImage    bool          `mapstructure:"require_image"`
}

// IngestConfig governs chunking and batched knowledge-store writes.
type IngestConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap"`
	BatchSize    int `mapstructure:"batch_size"`
}

// SyncConfig bounds per-page pipeline work during a store sync.
type SyncConfig struct {
	PageConcurrency int           `mapstructure:"page_concurrency"`
	PageTimeout     time.Duration `mapstructure:"page_timeout"`
}

// RetrievalConfig holds the heuristic re-ranking constants. Behavioral
// parity depends on the exact values, so they are configuration, not
// literals.
type RetrievalConfig struct {
	Threshold   float64 `mapstructure:"threshold"`
	K           int     `mapstructure:"k"`
	SourceBonus float64 `mapstructure:"source_bonus"`
	ImageBonus  float64 `mapstructure:"image_bonus"`
}

// LLMConfig points at the OpenAI-compatible reasoning service.
type LLMConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
}

// KnowledgeConfig points at the vector store collaborator.
type KnowledgeConfig struct {
	ChromaURL  string `mapstructure:"chroma_url"`
	Collection string `mapstructure:"collection"`
}

// StorageConfig sets the blob-store destination for mirrored assets.
type StorageConfig struct {
	GCSBucket string `mapstructure:"gcs_bucket"`
	PublicURL string `mapstructure:"public_url"`
}

// CacheConfig controls the URL-to-stored-URL cache.
type CacheConfig struct {
	RedisAddr string        `mapstructure:"redis_addr"`
	KeyPrefix string        `mapstructure:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("STORESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would violate the pipeline's
// concurrency or scoring contracts.
func (c Config) Validate() error {
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be positive")
	}
	if c.Crawler.FetchTimeout <= 0 {
		return fmt.Errorf("crawler.fetch_timeout must be positive")
	}
	if c.Extract.MaxAttempts <= 0 {
		return fmt.Errorf("extract.max_attempts must be positive")
	}
	if c.Ingest.ChunkSize <= c.Ingest.ChunkOverlap {
		return fmt.Errorf("ingest.chunk_size must exceed ingest.chunk_overlap")
	}
	if c.Retrieval.K <= 0 {
		return fmt.Errorf("retrieval.k must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.max_pages_default", 10)
	v.SetDefault("crawler.fetch_timeout", "90s")
	v.SetDefault("crawler.round_pause", "500ms")
	v.SetDefault("crawler.min_content_chars", 100)
	v.SetDefault("crawler.domain_rps", 2.0)
	v.SetDefault("crawler.headless", true)
	v.SetDefault("crawler.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("crawler.excluded_keywords", []string{})

	v.SetDefault("extract.content_budget", 8000)
	v.SetDefault("extract.max_attempts", 3)
	v.SetDefault("extract.backoff_base_sec", 5)

	v.SetDefault("assets.download_timeout", "10s")
	v.SetDefault("assets.key_prefix", "products")
	v.SetDefault("assets.require_image", true)

	v.SetDefault("ingest.chunk_size", 1000)
	v.SetDefault("ingest.chunk_overlap", 50)
	v.SetDefault("ingest.batch_size", 500)

	v.SetDefault("sync.page_concurrency", 5)
	v.SetDefault("sync.page_timeout", "60s")

	v.SetDefault("retrieval.threshold", 2.2)
	v.SetDefault("retrieval.k", 25)
	v.SetDefault("retrieval.source_bonus", 0.4)
	v.SetDefault("retrieval.image_bonus", 0.3)

	v.SetDefault("llm.model", "kimi-k2-0711-preview")

	v.SetDefault("knowledge.chroma_url", "http://localhost:8000")
	v.SetDefault("knowledge.collection", "storesync")

	v.SetDefault("cache.key_prefix", "storesync:img:")
	v.SetDefault("cache.ttl", "0")
}

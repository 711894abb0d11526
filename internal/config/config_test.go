package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Scheduler.CronExpression != "*/15 * * * *" {
		t.Fatalf("cron = %q", cfg.Scheduler.CronExpression)
	}
	if cfg.Ingest.FeedLimit != 20 || cfg.Ingest.Concurrency != 4 {
		t.Fatalf("unexpected ingest defaults %+v", cfg.Ingest)
	}
	if cfg.Ingest.MaxAge() != 24*time.Hour {
		t.Fatalf("max age = %s", cfg.Ingest.MaxAge())
	}
	if cfg.Search.Index != "pages" {
		t.Fatalf("index = %q", cfg.Search.Index)
	}
	if cfg.Clustering.MinStoryNews != 4 || cfg.Clustering.SmallMarketCountry != "md" {
		t.Fatalf("unexpected clustering defaults %+v", cfg.Clustering)
	}
	if len(cfg.Encodings["windows-1251"]) == 0 {
		t.Fatal("encoding table missing")
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: debug
search:
  host: http://search.internal:7700
scheduler:
  cronExpression: "*/5 * * * *"
ingest:
  feedLimit: 50
clustering:
  minStoryNews: 6
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)
	t.Setenv(databaseDSNEnv, "postgres://env-user:pw@db:5432/newsindex")
	t.Setenv(minStoryEnv, "7")
	t.Setenv(minScoreEnv, "0.35")

	cfg := Load()

	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if cfg.Search.Host != "http://search.internal:7700" {
		t.Fatalf("search host = %q", cfg.Search.Host)
	}
	if cfg.Scheduler.CronExpression != "*/5 * * * *" {
		t.Fatalf("cron = %q", cfg.Scheduler.CronExpression)
	}
	if cfg.Ingest.FeedLimit != 50 {
		t.Fatalf("feed limit = %d", cfg.Ingest.FeedLimit)
	}
	// Environment beats the file.
	if cfg.Clustering.MinStoryNews != 7 {
		t.Fatalf("min story news = %d", cfg.Clustering.MinStoryNews)
	}
	if cfg.Clustering.MinSearchScore != 0.35 {
		t.Fatalf("min score = %v", cfg.Clustering.MinSearchScore)
	}
	if cfg.Database.DSN != "postgres://env-user:pw@db:5432/newsindex" {
		t.Fatalf("dsn = %q", cfg.Database.DSN)
	}
	// Untouched sections keep their defaults.
	if cfg.Storage.Bucket != "newsindex-images" {
		t.Fatalf("bucket = %q", cfg.Storage.Bucket)
	}
}

func TestClusteringMarketThresholds(t *testing.T) {
	cfg := ClusteringConfig{
		MinStoryNews:       4,
		ImportantNewsCount: 20,
		SmallMarketCountry: "md",
	}

	if got := cfg.MinStoryNewsFor("md"); got != 3 {
		t.Fatalf("small market minimum = %d, want 3", got)
	}
	if got := cfg.MinStoryNewsFor("ro"); got != 4 {
		t.Fatalf("minimum = %d, want 4", got)
	}
	if got := cfg.ImportantNewsCountFor("md"); got != 16 {
		t.Fatalf("small market promotion = %d, want 16", got)
	}
	if got := cfg.ImportantNewsCountFor("ru"); got != 20 {
		t.Fatalf("promotion = %d, want 20", got)
	}
}

func TestSchedulerLocationFallback(t *testing.T) {
	s := SchedulerConfig{}
	if s.Location() == nil {
		t.Fatal("nil location")
	}
	if s.Location().String() != "UTC" {
		t.Fatalf("location = %s", s.Location())
	}
}

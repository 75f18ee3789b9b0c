package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/panel-ledger/internal/config"
	"github.com/Veraticus/panel-ledger/internal/metrics"
	"github.com/Veraticus/panel-ledger/internal/scraper"
	"github.com/Veraticus/panel-ledger/internal/storage"
)

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func newScraperClient(cfg *config.Config, rec *metrics.Recorder) (*scraper.Client, error) {
	return scraper.NewClient(scraper.Options{
		BaseURL:      cfg.Scraper.BaseURL,
		UserAgent:    cfg.Scraper.UserAgent,
		Timeout:      cfg.Scraper.Timeout,
		RateLimit:    cfg.Scraper.RateLimit,
		Burst:        cfg.Scraper.Burst,
		MaxAttempts:  cfg.Scraper.MaxAttempts,
		DefaultLimit: cfg.Scraper.FetchLimit,
		Metrics:      rec,
	})
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		if m := int(d.Minutes()); m != 1 {
			return fmt.Sprintf("%d minutes ago", m)
		}
		return "1 minute ago"
	case d < 24*time.Hour:
		if h := int(d.Hours()); h != 1 {
			return fmt.Sprintf("%d hours ago", h)
		}
		return "1 hour ago"
	case d < 7*24*time.Hour:
		if days := int(d.Hours() / 24); days != 1 {
			return fmt.Sprintf("%d days ago", days)
		}
		return "yesterday"
	default:
		return t.Format("2006-01-02")
	}
}

// Package store defines storage interfaces for persisting and retrieving
// market bars and archived news articles.
package store

import (
	"context"
	"time"

	"taipulse/internal/domain"
	"taipulse/internal/news"
)

// BarStore persists and retrieves daily OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given security within [start, end].
	ReadBars(ctx context.Context, securityID string, start, end time.Time) ([]domain.Bar, error)

	// ListSecurities returns all distinct security ids with stored bars.
	ListSecurities(ctx context.Context) ([]string, error)
}

// DayCount is one row of the per-day article volume report.
type DayCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// ArticleArchive keeps every article ever scanned, deduplicated by
// fingerprint, so history survives process restarts and cache eviction.
type ArticleArchive interface {
	// InsertArticles appends a batch, skipping fingerprints already stored.
	// Returns the number of newly inserted rows.
	InsertArticles(ctx context.Context, articles []news.Article) (int, error)

	// RecentArticles returns the newest articles up to limit.
	RecentArticles(ctx context.Context, limit int) ([]news.Article, error)

	// ArticlesBetween returns articles published within [start, end].
	ArticlesBetween(ctx context.Context, start, end time.Time) ([]news.Article, error)

	// CountArticles returns the total number of archived articles.
	CountArticles(ctx context.Context) (int64, error)

	// CountByDay returns per-day article counts for the trailing window.
	CountByDay(ctx context.Context, days int) ([]DayCount, error)
}

// Package scan orchestrates one ingestion cycle: fetch all feeds, merge the
// batch into the article store, append to the archive and refresh the board
// scan.
package scan

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"taipulse/internal/feed"
	"taipulse/internal/news"
	"taipulse/internal/social"
	"taipulse/internal/store"
)

// ErrScanInProgress rejects a cycle while another one is still running.
var ErrScanInProgress = errors.New("scan already in progress")

// Fetcher downloads all configured sources.
type Fetcher interface {
	FetchAll(ctx context.Context, sources []feed.Source) []feed.FetchResult
}

// Stats summarises one finished cycle.
type Stats struct {
	RunID        string    `json:"runId"`
	StartedAt    time.Time `json:"startedAt"`
	DurationMS   int64     `json:"durationMs"`
	Sources      int       `json:"sources"`
	SourceErrors int       `json:"sourceErrors"`
	Fetched      int       `json:"fetched"`
	NewArticles  int       `json:"newArticles"`
	TotalCached  int       `json:"totalCached"`
	Archived     int       `json:"archived"`
	SocialPosts  int       `json:"socialPosts,omitempty"`
}

// Runner drives scan cycles over a fixed source set. The archive and the
// board scanner are optional.
type Runner struct {
	fetcher Fetcher
	sources []feed.Source
	store   *news.Store
	archive store.ArticleArchive
	social  *social.Scanner
	log     *slog.Logger

	mu sync.Mutex // held for the duration of a cycle

	lastMu  sync.RWMutex
	last    Stats
	hasLast bool
}

func NewRunner(fetcher Fetcher, sources []feed.Source, newsStore *news.Store, archive store.ArticleArchive, socialScanner *social.Scanner, log *slog.Logger) *Runner {
	return &Runner{
		fetcher: fetcher,
		sources: sources,
		store:   newsStore,
		archive: archive,
		social:  socialScanner,
		log:     log.With("component", "scan"),
	}
}

// RunCycle executes one full cycle. A second caller while one is running
// gets ErrScanInProgress.
func (r *Runner) RunCycle(ctx context.Context) (Stats, error) {
	if !r.mu.TryLock() {
		return Stats{}, ErrScanInProgress
	}
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	stats := Stats{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Sources:   len(r.sources),
	}
	r.log.Info("scan cycle started", "run_id", stats.RunID, "sources", stats.Sources)

	var batch []news.Article
	for _, res := range r.fetcher.FetchAll(ctx, r.sources) {
		if res.Err != nil {
			stats.SourceErrors++
			continue
		}
		batch = append(batch, res.Articles...)
	}
	stats.Fetched = len(batch)

	added, err := r.store.MergeFetched(batch)
	if err != nil {
		// The merge itself succeeded; only the cache file write failed.
		r.log.Warn("persisting article cache", "error", err)
	}
	stats.NewArticles = added
	stats.TotalCached = r.store.Len()

	if r.archive != nil {
		archived, err := r.archive.InsertArticles(ctx, batch)
		if err != nil {
			r.log.Warn("archiving articles", "error", err)
		} else {
			stats.Archived = archived
		}
	}

	if r.social != nil {
		posts, err := r.social.Fetch(ctx, 0)
		if err != nil {
			r.log.Warn("board scan failed", "error", err)
		} else {
			stats.SocialPosts = len(posts)
		}
	}

	stats.DurationMS = time.Since(stats.StartedAt).Milliseconds()

	r.lastMu.Lock()
	r.last = stats
	r.hasLast = true
	r.lastMu.Unlock()

	r.log.Info("scan cycle finished",
		"run_id", stats.RunID,
		"fetched", stats.Fetched,
		"new_articles", stats.NewArticles,
		"source_errors", stats.SourceErrors,
		"duration_ms", stats.DurationMS)
	return stats, nil
}

// LastStats returns the most recent cycle's stats.
func (r *Runner) LastStats() (Stats, bool) {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()
	return r.last, r.hasLast
}

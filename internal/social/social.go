// Package social scans the PTT Stock board and aggregates retail discussion
// per security.
package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"taipulse/internal/domain"
)

const (
	DefaultBaseURL = "https://www.ptt.cc"
	boardPath      = "/bbs/Stock/index.html"

	DefaultPages = 5
	pageDelay    = 500 * time.Millisecond

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Post is one board listing entry with its derived analysis.
type Post struct {
	Title      string                `json:"title"`
	Author     string                `json:"author"`
	Date       string                `json:"date"` // board listing form, M/DD
	URL        string                `json:"url"`
	PushCount  int                   `json:"push_count"`
	Securities []string              `json:"stocks"`
	Sentiment  domain.SentimentLabel `json:"sentiment"`
	CreatedAt  time.Time             `json:"created_at"`
}

// Mentions reports whether the post's title referenced the security.
func (p Post) Mentions(securityID string) bool {
	for _, id := range p.Securities {
		if id == securityID {
			return true
		}
	}
	return false
}

// Scanner fetches board pages and keeps the latest batch of posts in memory,
// persisted to a JSON cache across restarts.
type Scanner struct {
	BaseURL string
	Pages   int // pages walked per Fetch when the caller passes 0

	client    *http.Client
	cachePath string
	log       *slog.Logger

	mu        sync.RWMutex
	posts     []Post
	updatedAt time.Time
}

func NewScanner(cachePath string, log *slog.Logger) *Scanner {
	return &Scanner{
		BaseURL:   DefaultBaseURL,
		Pages:     DefaultPages,
		client:    &http.Client{Timeout: 30 * time.Second},
		cachePath: cachePath,
		log:       log.With("component", "social"),
	}
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// Fetch walks the board from the newest page backwards, following the
// pagination link. A failed page past the first keeps the partial batch.
func (s *Scanner) Fetch(ctx context.Context, pages int) ([]Post, error) {
	if pages <= 0 {
		pages = s.Pages
	}
	if pages <= 0 {
		pages = DefaultPages
	}

	now := time.Now()
	var all []Post
	url := s.BaseURL + boardPath

	for page := 0; page < pages; page++ {
		doc, err := s.fetchPage(ctx, url)
		if err != nil {
			if page == 0 {
				return nil, fmt.Errorf("fetching board: %w", err)
			}
			s.log.Warn("board page failed, keeping partial batch", "page", page, "error", err)
			break
		}

		posts := parseListing(doc, s.BaseURL, now)
		all = append(all, posts...)

		next, ok := prevPageURL(doc)
		if !ok {
			break
		}
		url = s.BaseURL + next

		if page < pages-1 {
			select {
			case <-ctx.Done():
				return all, ctx.Err()
			case <-time.After(pageDelay):
			}
		}
	}

	s.mu.Lock()
	s.posts = all
	s.updatedAt = now
	s.saveLocked()
	s.mu.Unlock()

	s.log.Info("board scan finished", "posts", len(all), "pages", pages)
	return all, nil
}

func (s *Scanner) fetchPage(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	// The board sits behind an age gate.
	req.AddCookie(&http.Cookie{Name: "over18", Value: "1"})

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Posts returns the cached batch.
func (s *Scanner) Posts() []Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// UpdatedAt returns when the cache was last rebuilt.
func (s *Scanner) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// MentionCount is one security's discussion volume.
type MentionCount struct {
	SecurityID string `json:"securityId"`
	Count      int    `json:"count"`
}

// HotStocks ranks securities by board mentions within the window, capped at
// the top 20. Ties order by id.
func (s *Scanner) HotStocks(now time.Time, window time.Duration) []MentionCount {
	cutoff := now.Add(-window)
	counts := make(map[string]int)

	s.mu.RLock()
	for _, p := range s.posts {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		for _, id := range p.Securities {
			counts[id]++
		}
	}
	s.mu.RUnlock()

	ranked := make([]MentionCount, 0, len(counts))
	for id, n := range counts {
		ranked = append(ranked, MentionCount{SecurityID: id, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].SecurityID < ranked[j].SecurityID
	})
	if len(ranked) > 20 {
		ranked = ranked[:20]
	}
	return ranked
}

// SentimentReport aggregates board mood for one security.
type SentimentReport struct {
	SecurityID string `json:"securityId"`
	TotalPosts int    `json:"totalPosts"`
	Positive   int    `json:"positive"`
	Negative   int    `json:"negative"`
	Neutral    int    `json:"neutral"`
	Score      int    `json:"sentimentScore"` // positive minus negative
	Posts      []Post `json:"posts"`          // up to 10 samples
}

// StockSentiment tallies post sentiment for one security within the window.
func (s *Scanner) StockSentiment(securityID string, now time.Time, window time.Duration) SentimentReport {
	cutoff := now.Add(-window)
	report := SentimentReport{SecurityID: securityID, Posts: []Post{}}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.posts {
		if !p.Mentions(securityID) || p.CreatedAt.Before(cutoff) {
			continue
		}
		report.TotalPosts++
		switch p.Sentiment {
		case domain.SentimentPositive:
			report.Positive++
		case domain.SentimentNegative:
			report.Negative++
		default:
			report.Neutral++
		}
		if len(report.Posts) < 10 {
			report.Posts = append(report.Posts, p)
		}
	}
	report.Score = report.Positive - report.Negative
	return report
}

// ---------------------------------------------------------------------------
// Cache persistence
// ---------------------------------------------------------------------------

type cacheFile struct {
	UpdatedAt time.Time `json:"updated_at"`
	Posts     []Post    `json:"posts"`
}

// Load restores the previous batch from disk. Missing or corrupt caches are
// not fatal; scanning starts fresh.
func (s *Scanner) Load() {
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.log.Warn("unreadable board cache", "path", s.cachePath, "error", err)
		}
		return
	}

	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		s.log.Warn("corrupt board cache, starting fresh", "path", s.cachePath, "error", err)
		return
	}

	s.mu.Lock()
	s.posts = cached.Posts
	s.updatedAt = cached.UpdatedAt
	s.mu.Unlock()

	s.log.Info("board cache loaded", "posts", len(cached.Posts))
}

func (s *Scanner) saveLocked() {
	if err := os.MkdirAll(filepath.Dir(s.cachePath), 0o755); err != nil {
		s.log.Warn("saving board cache", "error", err)
		return
	}

	data, err := json.MarshalIndent(cacheFile{UpdatedAt: s.updatedAt, Posts: s.posts}, "", "  ")
	if err != nil {
		s.log.Warn("saving board cache", "error", err)
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.cachePath), ".ptt-*.json")
	if err != nil {
		s.log.Warn("saving board cache", "error", err)
		return
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.log.Warn("saving board cache", "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		s.log.Warn("saving board cache", "error", err)
		return
	}
	if err := os.Rename(tmp.Name(), s.cachePath); err != nil {
		os.Remove(tmp.Name())
		s.log.Warn("saving board cache", "error", err)
	}
}

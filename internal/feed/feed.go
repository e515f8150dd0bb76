// Package feed downloads configured news sources and normalizes their
// payloads into articles.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"taipulse/internal/config"
	"taipulse/internal/news"
)

const (
	fetchTimeout  = 15 * time.Second
	maxConcurrent = 8

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// Format identifies the payload encoding of a source.
type Format int

const (
	FormatXML Format = iota
	FormatJSON
)

// ParseFormat maps a config string onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xml", "rss":
		return FormatXML, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("unknown feed format %q", s)
}

// Source is a validated feed definition ready to fetch.
type Source struct {
	Key      string
	Name     string
	URL      string
	Category string
	Format   Format
	Weight   float64
}

// BuildSources converts config entries into fetchable sources. Disabled
// entries are dropped and malformed ones are skipped with a warning so a
// single bad row cannot take down the whole scan.
func BuildSources(rows []config.Source, log *slog.Logger) []Source {
	out := make([]Source, 0, len(rows))
	for _, row := range rows {
		if row.Disabled {
			continue
		}
		if strings.TrimSpace(row.Key) == "" || strings.TrimSpace(row.URL) == "" {
			log.Warn("skipping malformed news source", "key", row.Key, "url", row.URL)
			continue
		}
		format, err := ParseFormat(row.Format)
		if err != nil {
			log.Warn("skipping news source", "key", row.Key, "error", err)
			continue
		}
		name := row.Name
		if name == "" {
			name = row.Key
		}
		weight := row.Weight
		if weight <= 0 {
			weight = 1.0
		}
		out = append(out, Source{
			Key:      row.Key,
			Name:     name,
			URL:      row.URL,
			Category: row.Category,
			Format:   format,
			Weight:   weight,
		})
	}
	return out
}

// WeightOf builds a display-name weight lookup for the ranking layer.
// Unknown names weigh 1.0.
func WeightOf(sources []Source) func(string) float64 {
	byName := make(map[string]float64, len(sources))
	for _, src := range sources {
		byName[src.Name] = src.Weight
	}
	return func(name string) float64 {
		if w, ok := byName[name]; ok {
			return w
		}
		return 1.0
	}
}

// ---------------------------------------------------------------------------
// Fetching
// ---------------------------------------------------------------------------

// EnrichFunc fills in the analytical fields of a freshly parsed article:
// securities, sentiment and the dedup fingerprint.
type EnrichFunc func(news.Article) news.Article

// FetchResult carries the outcome for a single source.
type FetchResult struct {
	Source   Source
	Articles []news.Article
	Err      error
}

// Fetcher downloads sources and turns their payloads into enriched articles.
type Fetcher struct {
	client *http.Client
	enrich EnrichFunc
	log    *slog.Logger
}

func NewFetcher(enrich EnrichFunc, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
		enrich: enrich,
		log:    log.With("component", "feed"),
	}
}

// Fetch downloads and parses a single source.
func (f *Fetcher) Fetch(ctx context.Context, src Source) FetchResult {
	body, err := f.download(ctx, src.URL)
	if err != nil {
		return FetchResult{Source: src, Err: fmt.Errorf("fetch %s: %w", src.Key, err)}
	}

	var articles []news.Article
	switch src.Format {
	case FormatJSON:
		articles, err = parseCnyesJSON(body, src.Name, time.Now())
	default:
		articles, err = parseRSS(body, src.Name, time.Now())
	}
	if err != nil {
		return FetchResult{Source: src, Err: fmt.Errorf("parse %s: %w", src.Key, err)}
	}

	if f.enrich != nil {
		for i := range articles {
			articles[i] = f.enrich(articles[i])
		}
	}
	return FetchResult{Source: src, Articles: articles}
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// FetchAll downloads every source concurrently (8 goroutines). Results arrive
// in completion order; a failed source reports through FetchResult.Err
// instead of aborting the batch.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []FetchResult {
	var mu sync.Mutex
	results := make([]FetchResult, 0, len(sources))
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res := f.Fetch(ctx, src)
			if res.Err != nil {
				f.log.Warn("news source failed", "source", src.Key, "error", res.Err)
			} else {
				f.log.Info("news source fetched", "source", src.Key, "articles", len(res.Articles))
			}

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	return results
}

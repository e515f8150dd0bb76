// One-shot tool: run a single scan cycle and print the per-source outcome
// plus the current hot ranking.
//
// Usage:
//
//	taipulse-scan [-config path] [-hours 24] [-simple] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"taipulse/internal/config"
	"taipulse/internal/feed"
	"taipulse/internal/match"
	"taipulse/internal/news"
	"taipulse/internal/params"
	"taipulse/internal/rank"
	"taipulse/internal/refdata"
	"taipulse/internal/scan"
	"taipulse/internal/sentiment"
	"taipulse/internal/store"
	"taipulse/internal/util"
)

const hotListSize = 10

// recordingFetcher keeps the per-source results of the last FetchAll so the
// outcome table can be printed after the cycle.
type recordingFetcher struct {
	inner   *feed.Fetcher
	results []feed.FetchResult
}

func (r *recordingFetcher) FetchAll(ctx context.Context, sources []feed.Source) []feed.FetchResult {
	r.results = r.inner.FetchAll(ctx, sources)
	return r.results
}

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "path to the YAML configuration file")
	hours := flag.Int("hours", 24, "ranking window in hours")
	simple := flag.Bool("simple", false, "rank by raw mention counts instead of cluster scoring")
	asJSON := flag.Bool("json", false, "print stats and ranking as JSON")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewTextLogger(os.Stderr, cfg.Logging.Level)
	util.SetDefault(logger)

	table := refdata.Load(cfg.Reference.Dir, logger)
	matcher := match.New(table.All())

	paramStore := params.NewStore(filepath.Join(cfg.Storage.DataDir, "params.json"), logger)
	scorer := sentiment.NewScorer(paramStore.SentimentConfig())

	enrich := func(a news.Article) news.Article {
		a.Securities = matcher.Extract(a.Title + " " + a.Summary)
		res := scorer.Score(a.Title)
		a.SentimentLabel = res.Label
		a.SentimentScore = res.Score
		a.Keywords = res.Keywords
		a.Fingerprint = news.FingerprintOf(a.Title, a.Summary)
		return a
	}

	newsStore := news.NewStore(filepath.Join(cfg.Storage.DataDir, "news_cache.json"), logger)
	newsStore.Load()

	var archive store.ArticleArchive
	sqlite, err := store.NewSQLiteArchive(cfg.Storage.SQLitePath)
	if err != nil {
		logger.Warn("article archive unavailable", "error", err)
	} else {
		defer sqlite.Close()
		archive = sqlite
	}

	sources := feed.BuildSources(cfg.Sources, logger)
	weightOf := feed.WeightOf(sources)
	fetcher := &recordingFetcher{inner: feed.NewFetcher(enrich, logger)}
	runner := scan.NewRunner(fetcher, sources, newsStore, archive, nil, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	stats, err := runner.RunCycle(ctx)
	if err != nil {
		log.Fatalf("scan failed: %v", err)
	}

	now := time.Now()
	window := time.Duration(*hours) * time.Hour
	scores := rank.HotScores(newsStore.Snapshot(), weightOf, now, window, !*simple)
	if len(scores) > hotListSize {
		scores = scores[:hotListSize]
	}

	if *asJSON {
		printJSON(stats, scores, table)
		return
	}
	printReport(stats, fetcher.results, scores, table, *hours, *simple)
}

func printJSON(stats scan.Stats, scores []rank.HotScore, names rank.Namer) {
	type hotRow struct {
		SecurityID string  `json:"securityId"`
		Name       string  `json:"name"`
		Score      float64 `json:"score"`
	}
	out := struct {
		Stats scan.Stats `json:"stats"`
		Hot   []hotRow   `json:"hotStocks"`
	}{Stats: stats, Hot: make([]hotRow, 0, len(scores))}

	for _, sc := range scores {
		out.Hot = append(out.Hot, hotRow{SecurityID: sc.SecurityID, Name: names.NameOf(sc.SecurityID), Score: sc.Score})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encoding report: %v", err)
	}
	fmt.Println(string(data))
}

func printReport(stats scan.Stats, results []feed.FetchResult, scores []rank.HotScore, names rank.Namer, hours int, simple bool) {
	fmt.Printf("\n=== SCAN %s ===\n", stats.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("  %-24s %8s  %s\n", "Source", "Articles", "Status")
	for _, res := range results {
		status := "ok"
		if res.Err != nil {
			status = res.Err.Error()
		}
		fmt.Printf("  %-24s %8d  %s\n", res.Source.Name, len(res.Articles), status)
	}
	fmt.Printf("\nFetched %d articles, %d new, %d cached, %d archived (%.1fs)\n",
		stats.Fetched, stats.NewArticles, stats.TotalCached, stats.Archived,
		float64(stats.DurationMS)/1000)

	mode := "smart"
	if simple {
		mode = "simple"
	}
	fmt.Printf("\n--- HOT STOCKS (%dh, %s) ---\n", hours, mode)
	if len(scores) == 0 {
		fmt.Println("  no securities mentioned in the window")
		return
	}
	for i, sc := range scores {
		fmt.Printf("  %2d. %-6s %-12s %8.2f\n", i+1, sc.SecurityID, names.NameOf(sc.SecurityID), sc.Score)
	}
}

// One-shot tool: build the morning digest from the cached articles and print
// it, optionally delivering it through the configured Telegram channel.
//
// Usage:
//
//	taipulse-digest [-config path] [-fresh] [-send]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"taipulse/internal/config"
	"taipulse/internal/digest"
	"taipulse/internal/feed"
	"taipulse/internal/match"
	"taipulse/internal/news"
	"taipulse/internal/notify"
	"taipulse/internal/params"
	"taipulse/internal/refdata"
	"taipulse/internal/scan"
	"taipulse/internal/sentiment"
	"taipulse/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "path to the YAML configuration file")
	fresh := flag.Bool("fresh", false, "run a scan cycle before building the digest")
	send := flag.Bool("send", false, "deliver the digest through the configured channel")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger := util.NewTextLogger(os.Stderr, cfg.Logging.Level)
	util.SetDefault(logger)

	newsStore := news.NewStore(filepath.Join(cfg.Storage.DataDir, "news_cache.json"), logger)
	newsStore.Load()

	sources := feed.BuildSources(cfg.Sources, logger)
	weightOf := feed.WeightOf(sources)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if *fresh {
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

		fetcher := feed.NewFetcher(enrich, logger)
		runner := scan.NewRunner(fetcher, sources, newsStore, nil, nil, logger)
		if _, err := runner.RunCycle(ctx); err != nil {
			log.Fatalf("scan failed: %v", err)
		}
	}

	loc, err := time.LoadLocation(cfg.Scan.Timezone)
	if err != nil {
		log.Fatalf("loading timezone %q: %v", cfg.Scan.Timezone, err)
	}

	report := digest.Build(newsStore.Snapshot(), weightOf, time.Now().In(loc))
	text := digest.Format(report)
	fmt.Println(text)

	if *send {
		notifier, err := notify.FromConfig(cfg.Telegram, logger)
		if err != nil {
			log.Fatalf("configuring notifier: %v", err)
		}
		if err := notifier.Send(ctx, text); err != nil {
			log.Fatalf("sending digest: %v", err)
		}
		logger.Info("digest delivered", "articles", report.Summary.TotalArticles)
	}
}

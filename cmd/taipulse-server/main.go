package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"taipulse/internal/config"
	"taipulse/internal/digest"
	"taipulse/internal/feed"
	"taipulse/internal/httpapi"
	"taipulse/internal/match"
	"taipulse/internal/news"
	"taipulse/internal/notify"
	"taipulse/internal/params"
	"taipulse/internal/refdata"
	"taipulse/internal/scan"
	"taipulse/internal/sentiment"
	"taipulse/internal/social"
	"taipulse/internal/store"
	"taipulse/internal/util"
)

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logW := io.Writer(os.Stdout)
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("opening log file: %v", err)
		}
		defer logFile.Close()
		logW = io.MultiWriter(os.Stdout, logFile)
	}
	logger := util.NewTextLogger(logW, cfg.Logging.Level)
	util.SetDefault(logger)

	// Reference data and enrichment.
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

	// Stores.
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

	bars := store.NewParquetStore(cfg.Storage.DataDir)

	var socialScanner *social.Scanner
	if cfg.Social.Enabled {
		socialScanner = social.NewScanner(filepath.Join(cfg.Storage.DataDir, "ptt_cache.json"), logger)
		socialScanner.Pages = cfg.Social.Pages
		socialScanner.Load()
	}

	// Feeds and the scan runner.
	sources := feed.BuildSources(cfg.Sources, logger)
	weightOf := feed.WeightOf(sources)
	fetcher := feed.NewFetcher(enrich, logger)
	runner := scan.NewRunner(fetcher, sources, newsStore, archive, socialScanner, logger)

	notifier, err := notify.FromConfig(cfg.Telegram, logger)
	if err != nil {
		logger.Warn("telegram unavailable, digests go to the log", "error", err)
		notifier = notify.NewLog(logger)
	}

	api := httpapi.NewServer(newsStore, bars, archive, socialScanner, paramStore,
		runner, table, weightOf, cfg.Watchlist, logger)

	// Scheduling.
	loc, err := time.LoadLocation(cfg.Scan.Timezone)
	if err != nil {
		log.Fatalf("loading timezone %q: %v", cfg.Scan.Timezone, err)
	}
	calendar := util.NewTradingCalendar()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := cron.New(cron.WithLocation(loc))
	if _, err := sched.AddFunc(fmt.Sprintf("@every %dm", cfg.Scan.IntervalMinutes), func() {
		if _, err := runner.RunCycle(ctx); err != nil {
			logger.Error("scan cycle failed", "error", err)
		}
	}); err != nil {
		log.Fatalf("scheduling scan job: %v", err)
	}

	digestSpec, err := cronSpecFor(cfg.Scan.DigestTime)
	if err != nil {
		log.Fatalf("parsing digest time: %v", err)
	}
	if _, err := sched.AddFunc(digestSpec, func() {
		sendDigest(ctx, newsStore, weightOf, notifier, calendar, loc, logger)
	}); err != nil {
		log.Fatalf("scheduling digest job: %v", err)
	}
	sched.Start()

	// First cycle right away so the API has data before the first tick.
	go func() {
		if _, err := runner.RunCycle(ctx); err != nil {
			logger.Error("initial scan failed", "error", err)
		}
	}()

	httpServer := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("taipulse server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	jobsDone := sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Give a running scan the same grace window before exiting.
	select {
	case <-jobsDone.Done():
	case <-shutdownCtx.Done():
	}
}

// cronSpecFor converts an "HH:MM" wall-clock time into a daily cron spec.
func cronSpecFor(hhmm string) (string, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return "", fmt.Errorf("digest time %q: %w", hhmm, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// sendDigest builds and delivers the morning digest, skipping days the
// market is closed.
func sendDigest(
	ctx context.Context,
	newsStore *news.Store,
	weightOf func(string) float64,
	notifier notify.Notifier,
	calendar *util.TradingCalendar,
	loc *time.Location,
	logger *slog.Logger,
) {
	now := time.Now().In(loc)
	if !calendar.IsTradingDay(now) {
		logger.Info("skipping digest on a non-trading day")
		return
	}

	report := digest.Build(newsStore.Snapshot(), weightOf, now)
	sendCtx, sendCancel := context.WithTimeout(ctx, 30*time.Second)
	defer sendCancel()

	if err := notifier.Send(sendCtx, digest.Format(report)); err != nil {
		logger.Error("sending digest", "error", err)
		return
	}
	logger.Info("digest delivered", "articles", report.Summary.TotalArticles)
}

package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"taipulse/internal/digest"
	"taipulse/internal/marketdata"
	"taipulse/internal/news"
	"taipulse/internal/params"
	"taipulse/internal/rank"
	"taipulse/internal/scan"
	"taipulse/internal/social"
	"taipulse/internal/store"
)

const (
	metricsTTL          = 5 * time.Minute
	metricsLookbackDays = 180
	heartbeatInterval   = 30 * time.Second
)

// Server serves the dashboard HTTP API.
type Server struct {
	newsStore *news.Store
	bars      store.BarStore
	archive   store.ArticleArchive
	social    *social.Scanner
	params    *params.Store
	runner    *scan.Runner
	names     rank.Namer
	weightOf  func(source string) float64
	watchlist []string
	log       *slog.Logger
	startedAt time.Time

	// Response cache for the ranking endpoints. Reset whenever the news
	// store moves to a new generation, so entries never outlive a scan.
	cacheMu  sync.Mutex
	cacheGen uint64
	cache    *sync.Map

	// Bar-derived metrics, rebuilt at most every metricsTTL.
	metricsMu sync.Mutex
	metrics   map[string]marketdata.SecurityMetrics
	metricsAt time.Time
}

// NewServer creates the API server. bars, archive, socialScanner and runner
// may be nil; the corresponding endpoints then report empty data or 503.
func NewServer(
	newsStore *news.Store,
	bars store.BarStore,
	archive store.ArticleArchive,
	socialScanner *social.Scanner,
	paramStore *params.Store,
	runner *scan.Runner,
	names rank.Namer,
	weightOf func(source string) float64,
	watchlist []string,
	log *slog.Logger,
) *Server {
	return &Server{
		newsStore: newsStore,
		bars:      bars,
		archive:   archive,
		social:    socialScanner,
		params:    paramStore,
		runner:    runner,
		names:     names,
		weightOf:  weightOf,
		watchlist: watchlist,
		log:       log.With("component", "httpapi"),
		startedAt: time.Now(),
		cache:     &sync.Map{},
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/hot-stocks", s.handleHotStocks)
	mux.HandleFunc("GET /api/stocks/{id}/articles", s.handleArticles)
	mux.HandleFunc("GET /api/stocks/{id}/sentiment", s.handleSentiment)
	mux.HandleFunc("GET /api/stocks/{id}/trend", s.handleTrend)
	mux.HandleFunc("GET /api/composite", s.handleComposite)
	mux.HandleFunc("GET /api/volume-anomalies", s.handleVolumeAnomalies)
	mux.HandleFunc("GET /api/focus", s.handleFocus)
	mux.HandleFunc("GET /api/digest", s.handleDigest)
	mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	mux.HandleFunc("GET /api/social/hot", s.handleSocialHot)
	mux.HandleFunc("GET /api/social/{id}", s.handleSocialStock)
	mux.HandleFunc("GET /api/params", s.handleParams)
	mux.HandleFunc("PUT /api/params/{name}", s.handleParamSet)
	mux.HandleFunc("GET /api/params/stream", s.handleParamStream)
	mux.HandleFunc("POST /api/scan", s.handleScan)
	mux.HandleFunc("GET /api/status", s.handleStatus)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// queryInt reads an integer query parameter, falling back to def when the
// value is absent, malformed or outside [min, max].
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return def
	}
	return n
}

// queryFloat is queryInt for float parameters.
func queryFloat(r *http.Request, name string, def, min, max float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f < min || f > max {
		return def
	}
	return f
}

// cacheFor returns the response cache for the given news generation. A new
// generation drops every cached entry at once.
func (s *Server) cacheFor(gen uint64) *sync.Map {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cache == nil || gen != s.cacheGen {
		s.cacheGen = gen
		s.cache = &sync.Map{}
	}
	return s.cache
}

// securityMetrics returns bar-derived metrics for every stored security,
// recomputing at most every metricsTTL. Without a bar store it returns an
// empty map and the ranking degrades to news-only scores.
func (s *Server) securityMetrics(ctx context.Context) map[string]marketdata.SecurityMetrics {
	s.metricsMu.Lock()
	defer s.metricsMu.Unlock()
	if s.metrics != nil && time.Since(s.metricsAt) < metricsTTL {
		return s.metrics
	}

	out := make(map[string]marketdata.SecurityMetrics)
	if s.bars != nil {
		ids, err := s.bars.ListSecurities(ctx)
		if err != nil {
			s.log.Warn("listing bar securities", "error", err)
		}
		now := time.Now()
		start := now.AddDate(0, 0, -metricsLookbackDays)
		for _, id := range ids {
			bars, err := s.bars.ReadBars(ctx, id, start, now)
			if err != nil {
				s.log.Warn("reading bars", "security", id, "error", err)
				continue
			}
			if len(bars) == 0 {
				continue
			}
			out[id] = marketdata.Metrics(id, bars)
		}
	}

	s.metrics = out
	s.metricsAt = time.Now()
	return s.metrics
}

// ---------------------------------------------------------------------------
// News endpoints
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHotStocks(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 1, 720)
	mode := r.URL.Query().Get("mode")
	if mode != "simple" {
		mode = "smart"
	}

	cache := s.cacheFor(s.newsStore.Generation())
	key := fmt.Sprintf("hot:%d:%s", hours, mode)
	if v, ok := cache.Load(key); ok {
		writeJSON(w, v)
		return
	}

	snap := s.newsStore.Snapshot()
	scores := rank.HotScores(snap, s.weightOf, time.Now(), time.Duration(hours)*time.Hour, mode == "smart")

	items := make([]HotItemJSON, 0, len(scores))
	for _, sc := range scores {
		items = append(items, HotItemJSON{
			SecurityID: sc.SecurityID,
			Name:       s.names.NameOf(sc.SecurityID),
			Score:      math.Round(sc.Score*100) / 100,
		})
	}

	resp := HotStocksResponse{Hours: hours, Mode: mode, UpdatedAt: snap.UpdatedAt, Items: items}
	cache.Store(key, resp)
	writeJSON(w, resp)
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hours := queryInt(r, "hours", 48, 1, 720)

	snap := s.newsStore.Snapshot()
	articles := rank.ArticlesFor(snap, id, time.Now(), time.Duration(hours)*time.Hour)

	writeJSON(w, ArticlesResponse{
		SecurityID: id,
		Name:       s.names.NameOf(id),
		Hours:      hours,
		Count:      len(articles),
		Articles:   convertArticles(articles),
	})
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hours := queryInt(r, "hours", 48, 1, 720)

	snap := s.newsStore.Snapshot()
	now := time.Now()
	window := time.Duration(hours) * time.Hour
	summary := rank.SentimentSummary(snap, id, now, window)

	writeJSON(w, SentimentResponse{
		SecurityID:    id,
		Name:          s.names.NameOf(id),
		Hours:         hours,
		TotalArticles: len(rank.ArticlesFor(snap, id, now, window)),
		Summary:       summary,
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	days := queryInt(r, "days", 7, 1, 90)

	snap := s.newsStore.Snapshot()
	points := rank.NewsTrend(snap, id, time.Now(), days)
	if points == nil {
		points = []rank.TrendPoint{}
	}

	writeJSON(w, TrendResponse{SecurityID: id, Days: days, Points: points})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	snap := s.newsStore.Snapshot()
	alerts := rank.WatchlistAlerts(snap, s.watchlist, time.Now(), 24*time.Hour)
	if alerts == nil {
		alerts = []rank.Alert{}
	}
	writeJSON(w, AlertsResponse{Count: len(alerts), Alerts: alerts})
}

// ---------------------------------------------------------------------------
// Composite endpoints
// ---------------------------------------------------------------------------

func (s *Server) handleComposite(w http.ResponseWriter, r *http.Request) {
	top := queryInt(r, "top", rank.DefaultTopN, 1, 100)
	min := queryFloat(r, "min", s.params.MinScore(), 0, 100)
	weights := s.params.Weights()

	// Weights and cutoff live outside the news generation, so they go into
	// the key.
	cache := s.cacheFor(s.newsStore.Generation())
	key := fmt.Sprintf("composite:%d:%g:%g:%g:%g", top, min, weights.News, weights.Volume, weights.Momentum)
	if v, ok := cache.Load(key); ok {
		writeJSON(w, v)
		return
	}

	snap := s.newsStore.Snapshot()
	newsIn := rank.NewsInputs(snap, time.Now(), 24*time.Hour)
	metrics := s.securityMetrics(r.Context())
	stocks := rank.Rank(newsIn, metrics, s.names, weights, min, top)
	if stocks == nil {
		stocks = []rank.HotStock{}
	}

	resp := CompositeResponse{Count: len(stocks), Weights: weights, MinScore: min, Stocks: stocks}
	cache.Store(key, resp)
	writeJSON(w, resp)
}

func (s *Server) handleVolumeAnomalies(w http.ResponseWriter, r *http.Request) {
	minRatio := queryFloat(r, "min", 2.0, 1, 10)
	top := queryInt(r, "top", 20, 1, 100)

	metrics := s.securityMetrics(r.Context())
	items := rank.VolumeAnomalies(metrics, s.names, minRatio, top)
	if items == nil {
		items = []rank.Anomaly{}
	}

	writeJSON(w, AnomaliesResponse{Count: len(items), MinRatio: minRatio, Items: items})
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	weights := s.params.Weights()

	cache := s.cacheFor(s.newsStore.Generation())
	key := fmt.Sprintf("focus:%g:%g:%g", weights.News, weights.Volume, weights.Momentum)
	if v, ok := cache.Load(key); ok {
		writeJSON(w, v)
		return
	}

	snap := s.newsStore.Snapshot()
	newsIn := rank.NewsInputs(snap, time.Now(), 24*time.Hour)
	metrics := s.securityMetrics(r.Context())
	report := rank.Focus(newsIn, metrics, s.names, weights)

	cache.Store(key, report)
	writeJSON(w, report)
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	cache := s.cacheFor(s.newsStore.Generation())
	if v, ok := cache.Load("digest"); ok {
		writeJSON(w, v)
		return
	}

	snap := s.newsStore.Snapshot()
	report := digest.Build(snap, s.weightOf, time.Now())

	cache.Store("digest", report)
	writeJSON(w, report)
}

// ---------------------------------------------------------------------------
// Social endpoints
// ---------------------------------------------------------------------------

func (s *Server) handleSocialHot(w http.ResponseWriter, r *http.Request) {
	hours := queryInt(r, "hours", 24, 1, 720)

	resp := SocialHotResponse{Hours: hours, Items: []social.MentionCount{}}
	if s.social != nil {
		resp.UpdatedAt = s.social.UpdatedAt()
		if items := s.social.HotStocks(time.Now(), time.Duration(hours)*time.Hour); items != nil {
			resp.Items = items
		}
	}
	writeJSON(w, resp)
}

func (s *Server) handleSocialStock(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	hours := queryInt(r, "hours", 24, 1, 720)

	resp := SocialStockResponse{Hours: hours}
	if s.social != nil {
		resp.SentimentReport = s.social.StockSentiment(id, time.Now(), time.Duration(hours)*time.Hour)
	} else {
		resp.SecurityID = id
		resp.Posts = []social.Post{}
	}
	writeJSON(w, resp)
}

// ---------------------------------------------------------------------------
// Params endpoints
// ---------------------------------------------------------------------------

func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.params.Snapshot())
}

func (s *Server) handleParamSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var body struct {
		Value *float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Value == nil {
		writeError(w, http.StatusBadRequest, `body must be {"value": <number>}`)
		return
	}
	v := *body.Value
	if math.IsNaN(v) || math.IsInf(v, 0) {
		writeError(w, http.StatusBadRequest, "value must be a finite number")
		return
	}

	s.params.Set(name, v)
	writeJSON(w, ParamSetResponse{Name: name, Value: v})
}

func (s *Server) handleParamStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	id, ch := s.params.Subscribe(16)
	defer s.params.Unsubscribe(id)

	writeSSE(w, params.Event{Type: "snapshot", Data: s.params.Snapshot()})
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-ch:
			if !open {
				return
			}
			writeSSE(w, e)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w io.Writer, e params.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// ---------------------------------------------------------------------------
// Operations endpoints
// ---------------------------------------------------------------------------

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "scanning not configured")
		return
	}

	// Let the cycle finish even if the caller goes away.
	stats, err := s.runner.RunCycle(context.WithoutCancel(r.Context()))
	if err != nil {
		if errors.Is(err, scan.ErrScanInProgress) {
			writeError(w, http.StatusConflict, "a scan cycle is already running")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		ArticleCount:  s.newsStore.Len(),
		NewsUpdatedAt: s.newsStore.UpdatedAt(),
	}

	g, ctx := errgroup.WithContext(r.Context())
	if s.archive != nil {
		g.Go(func() error {
			n, err := s.archive.CountArticles(ctx)
			if err != nil {
				return fmt.Errorf("counting archive: %w", err)
			}
			resp.ArchivedCount = n
			return nil
		})
	}
	if s.bars != nil {
		g.Go(func() error {
			ids, err := s.bars.ListSecurities(ctx)
			if err != nil {
				return fmt.Errorf("listing bar securities: %w", err)
			}
			resp.BarSecurities = len(ids)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Warn("collecting status", "error", err)
	}

	if s.social != nil {
		resp.SocialPosts = len(s.social.Posts())
		resp.SocialUpdatedAt = s.social.UpdatedAt()
	}
	if s.runner != nil {
		if last, ok := s.runner.LastStats(); ok {
			resp.LastScan = &last
		}
	}
	writeJSON(w, resp)
}

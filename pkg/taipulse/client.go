// Package taipulse provides a Go SDK for the taipulse-server API.
//
// The response types mirror the server's JSON wire shapes without importing
// its internals, so SDK consumers do not pull in the scanner stack.
package taipulse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a running taipulse-server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the given base URL, e.g.
// "http://localhost:8087".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ---------------------------------------------------------------------------
// Response types
// ---------------------------------------------------------------------------

// HotItem is one entry of the hot ranking.
type HotItem struct {
	SecurityID string  `json:"securityId"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
}

// HotStocksResult is the hot ranking with its query context.
type HotStocksResult struct {
	Hours     int       `json:"hours"`
	Mode      string    `json:"mode"`
	UpdatedAt time.Time `json:"updatedAt"`
	Items     []HotItem `json:"items"`
}

// Article is one news item as served by the API.
type Article struct {
	Title          string    `json:"title"`
	Link           string    `json:"link"`
	Source         string    `json:"source"`
	Published      time.Time `json:"published"`
	Summary        string    `json:"summary,omitempty"`
	Securities     []string  `json:"securities"`
	SentimentLabel string    `json:"sentimentLabel"`
	SentimentScore float64   `json:"sentimentScore"`
	Keywords       []string  `json:"keywords,omitempty"`
}

// ArticlesResult lists the articles mentioning one security.
type ArticlesResult struct {
	SecurityID string    `json:"securityId"`
	Name       string    `json:"name"`
	Hours      int       `json:"hours"`
	Count      int       `json:"count"`
	Articles   []Article `json:"articles"`
}

// SentimentResult is the aggregate mood for one security.
type SentimentResult struct {
	SecurityID    string   `json:"securityId"`
	Name          string   `json:"name"`
	Hours         int      `json:"hours"`
	TotalArticles int      `json:"totalArticles"`
	PositiveCount int      `json:"positiveCount"`
	NegativeCount int      `json:"negativeCount"`
	NeutralCount  int      `json:"neutralCount"`
	AvgScore      float64  `json:"avgSentimentScore"`
	Trend         string   `json:"trend"`
	Keywords      []string `json:"keywords"`
}

// CompositeStock is one fully scored security of the composite ranking.
type CompositeStock struct {
	SecurityID string `json:"securityId"`
	Name       string `json:"name"`
	Industry   string `json:"industry"`

	TotalScore    float64 `json:"totalScore"`
	NewsScore     float64 `json:"newsScore"`
	VolumeScore   float64 `json:"volumeScore"`
	MomentumScore float64 `json:"momentumScore"`

	NewsCount     int     `json:"newsCount"`
	NewsSentiment float64 `json:"newsSentiment"`
	VolumeRatio   float64 `json:"volumeRatio"`
	Change5       float64 `json:"priceChange5d"`
	Change20      float64 `json:"priceChange20d"`
	LastClose     float64 `json:"lastClose"`

	Tags []string `json:"tags"`
}

// Weights is the blend used by the composite ranking.
type Weights struct {
	News     float64 `json:"news"`
	Volume   float64 `json:"volume"`
	Momentum float64 `json:"momentum"`
}

// CompositeResult is the blended news/volume/momentum ranking.
type CompositeResult struct {
	Count    int              `json:"count"`
	Weights  Weights          `json:"weights"`
	MinScore float64          `json:"minScore"`
	Stocks   []CompositeStock `json:"stocks"`
}

// DigestSummary is the digest's headline numbers.
type DigestSummary struct {
	TotalArticles    int `json:"totalArticles"`
	PositiveCount    int `json:"positiveCount"`
	NegativeCount    int `json:"negativeCount"`
	UniqueSecurities int `json:"uniqueSecurities"`
}

// DigestHotEntry is one ranked security of the digest.
type DigestHotEntry struct {
	SecurityID   string   `json:"securityId"`
	Score        float64  `json:"score"`
	MentionCount int      `json:"mentionCount"`
	Positive     int      `json:"positive"`
	Negative     int      `json:"negative"`
	Trend        string   `json:"trend"`
	Keywords     []string `json:"keywords"`
}

// DigestArticle is one highlighted article of the digest.
type DigestArticle struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Source         string   `json:"source"`
	Securities     []string `json:"securities"`
	Keywords       []string `json:"keywords"`
	Link           string   `json:"link"`
	SentimentScore float64  `json:"sentimentScore"`
}

// DigestMarketEntry is one general market headline of the digest.
type DigestMarketEntry struct {
	Title          string  `json:"title"`
	Summary        string  `json:"summary"`
	Source         string  `json:"source"`
	Published      string  `json:"published"` // HH:MM
	Sentiment      string  `json:"sentiment"`
	SentimentScore float64 `json:"sentimentScore"`
	Link           string  `json:"link"`
}

// DigestReport is the morning digest as served by the API.
type DigestReport struct {
	GeneratedAt  time.Time           `json:"generatedAt"`
	Summary      DigestSummary       `json:"summary"`
	HotStocks    []DigestHotEntry    `json:"hotStocks"`
	PositiveNews []DigestArticle     `json:"positiveNews"`
	NegativeNews []DigestArticle     `json:"negativeNews"`
	MarketNews   []DigestMarketEntry `json:"marketNews"`
}

// ScanStats reports the outcome of one scan cycle.
type ScanStats struct {
	RunID        string    `json:"runId"`
	StartedAt    time.Time `json:"startedAt"`
	DurationMS   int64     `json:"durationMs"`
	Sources      int       `json:"sources"`
	SourceErrors int       `json:"sourceErrors"`
	Fetched      int       `json:"fetched"`
	NewArticles  int       `json:"newArticles"`
	TotalCached  int       `json:"totalCached"`
	Archived     int       `json:"archived"`
	SocialPosts  int       `json:"socialPosts"`
}

// Status reports process and data freshness.
type Status struct {
	Status          string     `json:"status"`
	UptimeSeconds   int64      `json:"uptimeSeconds"`
	ArticleCount    int        `json:"articleCount"`
	ArchivedCount   int64      `json:"archivedCount"`
	BarSecurities   int        `json:"barSecurities"`
	SocialPosts     int        `json:"socialPosts"`
	NewsUpdatedAt   time.Time  `json:"newsUpdatedAt"`
	SocialUpdatedAt time.Time  `json:"socialUpdatedAt"`
	LastScan        *ScanStats `json:"lastScan,omitempty"`
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

// HotStocks retrieves the news-driven hot ranking. mode is "smart" or
// "simple"; pass 0 hours or "" mode for the server defaults.
func (c *Client) HotStocks(ctx context.Context, hours int, mode string) (HotStocksResult, error) {
	q := url.Values{}
	if hours > 0 {
		q.Set("hours", strconv.Itoa(hours))
	}
	if mode != "" {
		q.Set("mode", mode)
	}
	var out HotStocksResult
	err := c.get(ctx, "/api/hot-stocks", q, &out)
	return out, err
}

// Articles retrieves recent articles mentioning the given security.
func (c *Client) Articles(ctx context.Context, securityID string, hours int) (ArticlesResult, error) {
	q := url.Values{}
	if hours > 0 {
		q.Set("hours", strconv.Itoa(hours))
	}
	var out ArticlesResult
	err := c.get(ctx, "/api/stocks/"+url.PathEscape(securityID)+"/articles", q, &out)
	return out, err
}

// Sentiment retrieves the aggregate mood for the given security.
func (c *Client) Sentiment(ctx context.Context, securityID string, hours int) (SentimentResult, error) {
	q := url.Values{}
	if hours > 0 {
		q.Set("hours", strconv.Itoa(hours))
	}
	var out SentimentResult
	err := c.get(ctx, "/api/stocks/"+url.PathEscape(securityID)+"/sentiment", q, &out)
	return out, err
}

// Composite retrieves the blended ranking. Pass 0 for either parameter to
// use the server defaults.
func (c *Client) Composite(ctx context.Context, top int, minScore float64) (CompositeResult, error) {
	q := url.Values{}
	if top > 0 {
		q.Set("top", strconv.Itoa(top))
	}
	if minScore > 0 {
		q.Set("min", strconv.FormatFloat(minScore, 'f', -1, 64))
	}
	var out CompositeResult
	err := c.get(ctx, "/api/composite", q, &out)
	return out, err
}

// Digest retrieves the morning digest report.
func (c *Client) Digest(ctx context.Context) (DigestReport, error) {
	var out DigestReport
	err := c.get(ctx, "/api/digest", nil, &out)
	return out, err
}

// TriggerScan runs one scan cycle and returns its stats. The server answers
// 409 while another cycle is still running.
func (c *Client) TriggerScan(ctx context.Context) (ScanStats, error) {
	var out ScanStats
	err := c.do(ctx, http.MethodPost, "/api/scan", nil, &out)
	return out, err
}

// Status retrieves process and data freshness information.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var out Status
	err := c.get(ctx, "/api/status", nil, &out)
	return out, err
}

// ---------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, target, nil, out)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+target, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			msg = resp.Status
		}
		return fmt.Errorf("%s %s: status %d: %s", method, target, resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, target, err)
	}
	return nil
}

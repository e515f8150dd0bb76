// Package marketdata fetches Taiwan exchange quotes and derives per-security
// activity metrics from stored bars.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"taipulse/internal/domain"
	"taipulse/internal/util"
)

const (
	DefaultOpenAPIBase = "https://openapi.twse.com.tw/v1"
	DefaultReportBase  = "https://www.twse.com.tw"

	userAgent     = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	indexCacheTTL = 5 * time.Minute
)

// Client talks to the TWSE open data endpoints. Requests are rate limited
// and retried; the exchange throttles aggressive callers.
type Client struct {
	OpenAPIBase string
	ReportBase  string

	httpClient *http.Client
	limiter    *util.RateLimiter
	log        *slog.Logger

	mu          sync.Mutex
	cachedIndex *IndexQuote
	cachedAt    time.Time
}

func NewClient(log *slog.Logger) *Client {
	return &Client{
		OpenAPIBase: DefaultOpenAPIBase,
		ReportBase:  DefaultReportBase,
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		limiter:     util.NewRateLimiter(3),
		log:         log.With("component", "twse"),
	}
}

// ---------------------------------------------------------------------------
// Daily bars (STOCK_DAY_ALL)
// ---------------------------------------------------------------------------

// DailyAll returns the latest daily bar for every listed security. Rows
// without their own trade date are stamped with fallbackDate.
func (c *Client) DailyAll(ctx context.Context, fallbackDate time.Time) ([]domain.Bar, error) {
	body, err := c.get(ctx, c.OpenAPIBase+"/exchangeReport/STOCK_DAY_ALL")
	if err != nil {
		return nil, fmt.Errorf("fetching STOCK_DAY_ALL: %w", err)
	}

	bars, skipped, err := parseStockDayAll(body, fallbackDate)
	if err != nil {
		return nil, fmt.Errorf("parsing STOCK_DAY_ALL: %w", err)
	}
	if skipped > 0 {
		c.log.Debug("skipped unquotable rows", "skipped", skipped)
	}
	c.log.Info("fetched daily bars", "bars", len(bars))
	return bars, nil
}

type stockDayRow struct {
	Date         string `json:"Date"`
	Code         string `json:"Code"`
	Name         string `json:"Name"`
	TradeVolume  string `json:"TradeVolume"`
	TradeValue   string `json:"TradeValue"`
	OpeningPrice string `json:"OpeningPrice"`
	HighestPrice string `json:"HighestPrice"`
	LowestPrice  string `json:"LowestPrice"`
	ClosingPrice string `json:"ClosingPrice"`
}

// parseStockDayAll decodes the STOCK_DAY_ALL payload. Rows that did not trade
// (prices reported as "--") are counted as skipped, not errors.
func parseStockDayAll(data []byte, fallbackDate time.Time) ([]domain.Bar, int, error) {
	var rows []stockDayRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, 0, err
	}

	bars := make([]domain.Bar, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		if row.Code == "" {
			skipped++
			continue
		}
		open, err1 := parseNumber(row.OpeningPrice)
		high, err2 := parseNumber(row.HighestPrice)
		low, err3 := parseNumber(row.LowestPrice)
		closing, err4 := parseNumber(row.ClosingPrice)
		volume, err5 := parseNumber(row.TradeVolume)
		turnover, err6 := parseNumber(row.TradeValue)
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
			skipped++
			continue
		}

		ts := fallbackDate
		if d, err := parseROCCompact(row.Date); err == nil {
			ts = d
		}

		bars = append(bars, domain.Bar{
			SecurityID: row.Code,
			Timestamp:  ts,
			Open:       open,
			High:       high,
			Low:        low,
			Close:      closing,
			Volume:     int64(volume),
			Turnover:   turnover,
		})
	}
	return bars, skipped, nil
}

// ---------------------------------------------------------------------------
// Weighted index (FMTQIK)
// ---------------------------------------------------------------------------

// IndexPoint is one daily close of the weighted index.
type IndexPoint struct {
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Change float64   `json:"change"`
}

// IndexQuote is the latest weighted index level.
type IndexQuote struct {
	Index     float64 `json:"index"`
	Change    float64 `json:"change"`
	ChangePct float64 `json:"changePct"`
	Date      string  `json:"date"` // YYYY-MM-DD
}

// MonthlyIndex returns the weighted index closes for the given month.
func (c *Client) MonthlyIndex(ctx context.Context, year int, month time.Month) ([]IndexPoint, error) {
	url := fmt.Sprintf("%s/exchangeReport/FMTQIK?response=json&date=%04d%02d01", c.ReportBase, year, month)
	body, err := c.get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching FMTQIK: %w", err)
	}
	points, err := parseFMTQIK(body)
	if err != nil {
		return nil, fmt.Errorf("parsing FMTQIK: %w", err)
	}
	return points, nil
}

// LatestIndex returns the most recent weighted index close, falling back to
// the previous month early in a new month. Results are cached briefly.
func (c *Client) LatestIndex(ctx context.Context, now time.Time) (*IndexQuote, error) {
	c.mu.Lock()
	if c.cachedIndex != nil && now.Sub(c.cachedAt) < indexCacheTTL {
		quote := *c.cachedIndex
		c.mu.Unlock()
		return &quote, nil
	}
	c.mu.Unlock()

	points, err := c.MonthlyIndex(ctx, now.Year(), now.Month())
	if err != nil || len(points) == 0 {
		prev := now.AddDate(0, -1, 0)
		points, err = c.MonthlyIndex(ctx, prev.Year(), prev.Month())
		if err != nil {
			return nil, err
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no index data for %s", now.Format("2006-01"))
	}

	latest := points[len(points)-1]
	quote := &IndexQuote{
		Index:  latest.Close,
		Change: latest.Change,
		Date:   latest.Date.Format("2006-01-02"),
	}
	if prevClose := latest.Close - latest.Change; prevClose != 0 {
		quote.ChangePct = latest.Change / prevClose * 100
	}

	c.mu.Lock()
	c.cachedIndex = quote
	c.cachedAt = now
	c.mu.Unlock()

	copied := *quote
	return &copied, nil
}

type fmtqikResponse struct {
	Stat string     `json:"stat"`
	Data [][]string `json:"data"`
}

// parseFMTQIK decodes the monthly market report. Row layout:
// date, volume, value, transactions, weighted index, change.
func parseFMTQIK(data []byte) ([]IndexPoint, error) {
	var doc fmtqikResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Stat != "OK" {
		return nil, fmt.Errorf("twse response stat %q", doc.Stat)
	}

	points := make([]IndexPoint, 0, len(doc.Data))
	for _, row := range doc.Data {
		if len(row) < 6 {
			continue
		}
		date, err := parseROCDate(row[0])
		if err != nil {
			continue
		}
		closing, err := parseNumber(row[4])
		if err != nil {
			continue
		}
		change, err := parseNumber(row[5])
		if err != nil {
			change = 0
		}
		points = append(points, IndexPoint{Date: date, Close: closing, Change: change})
	}
	return points, nil
}

// ---------------------------------------------------------------------------
// HTTP and parse helpers
// ---------------------------------------------------------------------------

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := util.Retry(ctx, 3, 500*time.Millisecond, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		body, err = io.ReadAll(resp.Body)
		return err
	})
	return body, err
}

// parseNumber parses a TWSE numeric string, tolerating thousand separators.
// Unquoted placeholders such as "--" are errors.
func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" || s == "--" {
		return 0, fmt.Errorf("no value")
	}
	return strconv.ParseFloat(s, 64)
}

// parseROCDate parses a slash-separated Republic of China date ("114/01/24").
func parseROCDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("malformed ROC date %q", s)
	}
	year, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	day, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("malformed ROC date %q", s)
	}
	return time.Date(year+1911, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// parseROCCompact parses a compact ROC date ("1140124").
func parseROCCompact(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 {
		return time.Time{}, fmt.Errorf("malformed compact ROC date %q", s)
	}
	year, err1 := strconv.Atoi(s[:3])
	month, err2 := strconv.Atoi(s[3:5])
	day, err3 := strconv.Atoi(s[5:7])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("malformed compact ROC date %q", s)
	}
	return time.Date(year+1911, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

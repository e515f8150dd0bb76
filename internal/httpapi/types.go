// Package httpapi serves the research API consumed by the dashboard: hot
// rankings, per-security sentiment views, the morning digest and runtime
// scoring controls.
package httpapi

import (
	"time"

	"taipulse/internal/news"
	"taipulse/internal/rank"
	"taipulse/internal/scan"
	"taipulse/internal/social"
)

// ArticleJSON is the API shape of one article.
type ArticleJSON struct {
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

// HotItemJSON is one entry of the hot ranking.
type HotItemJSON struct {
	SecurityID string  `json:"securityId"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
}

// HotStocksResponse is the hot ranking with its query context.
type HotStocksResponse struct {
	Hours     int           `json:"hours"`
	Mode      string        `json:"mode"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Items     []HotItemJSON `json:"items"`
}

// ArticlesResponse lists the articles mentioning one security.
type ArticlesResponse struct {
	SecurityID string        `json:"securityId"`
	Name       string        `json:"name"`
	Hours      int           `json:"hours"`
	Count      int           `json:"count"`
	Articles   []ArticleJSON `json:"articles"`
}

// SentimentResponse is the aggregate mood for one security.
type SentimentResponse struct {
	SecurityID    string `json:"securityId"`
	Name          string `json:"name"`
	Hours         int    `json:"hours"`
	TotalArticles int    `json:"totalArticles"`
	rank.Summary
}

// TrendResponse carries daily article counts for charting.
type TrendResponse struct {
	SecurityID string            `json:"securityId"`
	Days       int               `json:"days"`
	Points     []rank.TrendPoint `json:"points"`
}

// CompositeResponse is the blended news/volume/momentum ranking.
type CompositeResponse struct {
	Count    int             `json:"count"`
	Weights  rank.Weights    `json:"weights"`
	MinScore float64         `json:"minScore"`
	Stocks   []rank.HotStock `json:"stocks"`
}

// AnomaliesResponse lists unusual volume movers.
type AnomaliesResponse struct {
	Count    int            `json:"count"`
	MinRatio float64        `json:"minRatio"`
	Items    []rank.Anomaly `json:"items"`
}

// AlertsResponse carries watchlist alerts.
type AlertsResponse struct {
	Count  int          `json:"count"`
	Alerts []rank.Alert `json:"alerts"`
}

// SocialHotResponse ranks securities by board mentions.
type SocialHotResponse struct {
	Hours     int                   `json:"hours"`
	UpdatedAt time.Time             `json:"updatedAt"`
	Items     []social.MentionCount `json:"items"`
}

// SocialStockResponse is the board mood for one security.
type SocialStockResponse struct {
	Hours int `json:"hours"`
	social.SentimentReport
}

// ParamSetResponse echoes a stored parameter.
type ParamSetResponse struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// StatusResponse reports process and data freshness.
type StatusResponse struct {
	Status          string      `json:"status"`
	UptimeSeconds   int64       `json:"uptimeSeconds"`
	ArticleCount    int         `json:"articleCount"`
	ArchivedCount   int64       `json:"archivedCount"`
	BarSecurities   int         `json:"barSecurities"`
	SocialPosts     int         `json:"socialPosts"`
	NewsUpdatedAt   time.Time   `json:"newsUpdatedAt"`
	SocialUpdatedAt time.Time   `json:"socialUpdatedAt"`
	LastScan        *scan.Stats `json:"lastScan,omitempty"`
}

// convertArticle converts a news.Article to its API shape.
func convertArticle(a news.Article) ArticleJSON {
	securities := a.Securities
	if securities == nil {
		securities = []string{}
	}
	return ArticleJSON{
		Title:          a.Title,
		Link:           a.Link,
		Source:         a.Source,
		Published:      a.Published,
		Summary:        a.Summary,
		Securities:     securities,
		SentimentLabel: string(a.SentimentLabel),
		SentimentScore: a.SentimentScore,
		Keywords:       a.Keywords,
	}
}

func convertArticles(articles []news.Article) []ArticleJSON {
	out := make([]ArticleJSON, 0, len(articles))
	for _, a := range articles {
		out = append(out, convertArticle(a))
	}
	return out
}

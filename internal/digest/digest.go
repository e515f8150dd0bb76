// Package digest assembles the morning report: aggregate news counts, the
// 48-hour hot ranking and the strongest positive/negative coverage, plus a
// renderer for the Telegram push.
package digest

import (
	"math"
	"sort"
	"time"

	"taipulse/internal/domain"
	"taipulse/internal/news"
	"taipulse/internal/rank"
)

const (
	hotWindow    = 48 * time.Hour
	hotLimit     = 10
	articleLimit = 5
	marketLimit  = 10
)

// Summary is the aggregate header of a report.
type Summary struct {
	TotalArticles    int `json:"totalArticles"`
	PositiveCount    int `json:"positiveCount"`
	NegativeCount    int `json:"negativeCount"`
	UniqueSecurities int `json:"uniqueSecurities"`
}

// HotEntry is one ranked security with its 48-hour sentiment context.
type HotEntry struct {
	SecurityID   string            `json:"securityId"`
	Score        float64           `json:"score"`
	MentionCount int               `json:"mentionCount"`
	Positive     int               `json:"positive"`
	Negative     int               `json:"negative"`
	Trend        domain.TrendLabel `json:"trend"`
	Keywords     []string          `json:"keywords"`
}

// ArticleEntry is one article in the positive/negative sections.
type ArticleEntry struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Source         string   `json:"source"`
	Securities     []string `json:"securities"`
	Keywords       []string `json:"keywords"`
	Link           string   `json:"link"`
	SentimentScore float64  `json:"sentimentScore"`
}

// MarketEntry is one article in the market-wide section.
type MarketEntry struct {
	Title          string                `json:"title"`
	Summary        string                `json:"summary"`
	Source         string                `json:"source"`
	Published      string                `json:"published"` // HH:MM
	Sentiment      domain.SentimentLabel `json:"sentiment"`
	SentimentScore float64               `json:"sentimentScore"`
	Link           string                `json:"link"`
}

// Report is the full morning report.
type Report struct {
	GeneratedAt  time.Time      `json:"generatedAt"`
	Summary      Summary        `json:"summary"`
	HotStocks    []HotEntry     `json:"hotStocks"`
	PositiveNews []ArticleEntry `json:"positiveNews"`
	NegativeNews []ArticleEntry `json:"negativeNews"`
	MarketNews   []MarketEntry  `json:"marketNews"`
}

// Build assembles a report from the current article snapshot. The hot
// section uses the smart 48-hour ranking; article sections rank the whole
// snapshot by sentiment strength.
func Build(snap news.Snapshot, weightOf func(string) float64, now time.Time) Report {
	var positive, negative []news.Article
	unique := make(map[string]struct{})
	for _, a := range snap.Articles {
		switch a.SentimentLabel {
		case domain.SentimentPositive:
			positive = append(positive, a)
		case domain.SentimentNegative:
			negative = append(negative, a)
		}
		for _, id := range a.Securities {
			unique[id] = struct{}{}
		}
	}

	r := Report{
		GeneratedAt: now,
		Summary: Summary{
			TotalArticles:    len(snap.Articles),
			PositiveCount:    len(positive),
			NegativeCount:    len(negative),
			UniqueSecurities: len(unique),
		},
		HotStocks:    []HotEntry{},
		PositiveNews: []ArticleEntry{},
		NegativeNews: []ArticleEntry{},
		MarketNews:   []MarketEntry{},
	}

	hot := rank.HotScores(snap, weightOf, now, hotWindow, true)
	if len(hot) > hotLimit {
		hot = hot[:hotLimit]
	}
	for _, h := range hot {
		mentions := rank.ArticlesFor(snap, h.SecurityID, now, hotWindow)
		sum := rank.SentimentSummary(snap, h.SecurityID, now, hotWindow)
		r.HotStocks = append(r.HotStocks, HotEntry{
			SecurityID:   h.SecurityID,
			Score:        round2(h.Score),
			MentionCount: len(mentions),
			Positive:     sum.PositiveCount,
			Negative:     sum.NegativeCount,
			Trend:        sum.Trend,
			Keywords:     sum.Keywords,
		})
	}

	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].SentimentScore > positive[j].SentimentScore
	})
	for _, a := range capArticles(positive, articleLimit) {
		r.PositiveNews = append(r.PositiveNews, articleEntry(a))
	}

	sort.SliceStable(negative, func(i, j int) bool {
		return negative[i].SentimentScore < negative[j].SentimentScore
	})
	for _, a := range capArticles(negative, articleLimit) {
		r.NegativeNews = append(r.NegativeNews, articleEntry(a))
	}

	market := make([]news.Article, len(snap.Articles))
	copy(market, snap.Articles)
	sort.SliceStable(market, func(i, j int) bool {
		return market[i].Published.After(market[j].Published)
	})
	for _, a := range capArticles(market, marketLimit) {
		r.MarketNews = append(r.MarketNews, MarketEntry{
			Title:          a.Title,
			Summary:        a.Summary,
			Source:         a.Source,
			Published:      a.Published.Format("15:04"),
			Sentiment:      a.SentimentLabel,
			SentimentScore: round2(a.SentimentScore),
			Link:           a.Link,
		})
	}

	return r
}

func articleEntry(a news.Article) ArticleEntry {
	return ArticleEntry{
		Title:          a.Title,
		Summary:        a.Summary,
		Source:         a.Source,
		Securities:     a.Securities,
		Keywords:       a.Keywords,
		Link:           a.Link,
		SentimentScore: round2(a.SentimentScore),
	}
}

func capArticles(articles []news.Article, n int) []news.Article {
	if len(articles) > n {
		return articles[:n]
	}
	return articles
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Package rank turns scanned articles and stored bars into hot-stock
// rankings, sentiment summaries and composite scores.
package rank

import (
	"fmt"
	"math"
	"sort"
	"time"

	"taipulse/internal/domain"
	"taipulse/internal/news"
)

const (
	minTimeWeight      = 0.3
	timeDecaySpan      = 0.7
	sentimentBoostSpan = 0.3
)

// HotScore is one ranked security from the news-side scoring.
type HotScore struct {
	SecurityID string  `json:"securityId"`
	Score      float64 `json:"score"`
}

// HotScores ranks securities by news heat within the window ending at now.
//
// Smart ranking walks event clusters so one widely syndicated story counts
// once: each cluster contributes through its representative article, scored
// as timeWeight * sourceWeight * sentimentBoost. Plain ranking counts every
// article mention as one point.
func HotScores(snap news.Snapshot, weightOf func(string) float64, now time.Time, window time.Duration, smart bool) []HotScore {
	cutoff := now.Add(-window)
	scores := make(map[string]float64)

	if smart {
		windowHours := window.Hours()
		for _, cluster := range snap.Clusters {
			var recent []news.Article
			for _, a := range cluster {
				if !a.Published.Before(cutoff) {
					recent = append(recent, a)
				}
			}
			if len(recent) == 0 {
				continue
			}

			best := news.Representative(recent, weightOf)

			ageHours := now.Sub(best.Published).Hours()
			timeWeight := math.Max(minTimeWeight, 1.0-(ageHours/windowHours)*timeDecaySpan)
			sourceWeight := weightOf(best.Source)
			boost := 1.0 + math.Abs(best.SentimentScore)*sentimentBoostSpan

			score := timeWeight * sourceWeight * boost
			for _, id := range best.Securities {
				scores[id] += score
			}
		}
	} else {
		for _, a := range snap.Articles {
			if a.Published.Before(cutoff) {
				continue
			}
			for _, id := range a.Securities {
				scores[id]++
			}
		}
	}

	ranked := make([]HotScore, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, HotScore{SecurityID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].SecurityID < ranked[j].SecurityID
	})
	return ranked
}

// NewsScore maps mention count and average sentiment onto the 0-100 scale
// used by the composite ranking.
func NewsScore(mentions int, avgSentiment float64) float64 {
	return math.Min(100, float64(mentions)*15+math.Abs(avgSentiment)*30)
}

// ---------------------------------------------------------------------------
// Per-security views
// ---------------------------------------------------------------------------

// ArticlesFor returns the articles mentioning securityID within the window,
// newest first.
func ArticlesFor(snap news.Snapshot, securityID string, now time.Time, window time.Duration) []news.Article {
	cutoff := now.Add(-window)
	var out []news.Article
	for _, a := range snap.Articles {
		if a.Mentions(securityID) && !a.Published.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out
}

// Summary aggregates sentiment over one security's recent articles.
type Summary struct {
	PositiveCount int               `json:"positiveCount"`
	NegativeCount int               `json:"negativeCount"`
	NeutralCount  int               `json:"neutralCount"`
	AvgScore      float64           `json:"avgSentimentScore"`
	Trend         domain.TrendLabel `json:"trend"`
	Keywords      []string          `json:"keywords"`
}

// SentimentSummary reports label counts, mean score, dominant trend and the
// five most frequent keywords for one security. The trend needs a clear
// majority: one side must exceed 1.5x the other.
func SentimentSummary(snap news.Snapshot, securityID string, now time.Time, window time.Duration) Summary {
	articles := ArticlesFor(snap, securityID, now, window)
	s := Summary{Trend: domain.TrendNeutral, Keywords: []string{}}
	if len(articles) == 0 {
		return s
	}

	var sum float64
	type kwStat struct {
		count int
		first int
	}
	kwStats := make(map[string]*kwStat)
	order := 0
	for _, a := range articles {
		switch a.SentimentLabel {
		case domain.SentimentPositive:
			s.PositiveCount++
		case domain.SentimentNegative:
			s.NegativeCount++
		default:
			s.NeutralCount++
		}
		sum += a.SentimentScore
		for _, kw := range a.Keywords {
			if st, ok := kwStats[kw]; ok {
				st.count++
			} else {
				kwStats[kw] = &kwStat{count: 1, first: order}
				order++
			}
		}
	}

	s.AvgScore = math.Round(sum/float64(len(articles))*1000) / 1000

	keywords := make([]string, 0, len(kwStats))
	for kw := range kwStats {
		keywords = append(keywords, kw)
	}
	sort.Slice(keywords, func(i, j int) bool {
		a, b := kwStats[keywords[i]], kwStats[keywords[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first < b.first
	})
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}
	s.Keywords = keywords

	switch {
	case float64(s.PositiveCount) > float64(s.NegativeCount)*1.5:
		s.Trend = domain.TrendBullish
	case float64(s.NegativeCount) > float64(s.PositiveCount)*1.5:
		s.Trend = domain.TrendBearish
	}
	return s
}

// TrendPoint is one day of a security's news volume split by sentiment.
type TrendPoint struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Positive int    `json:"positive"`
	Negative int    `json:"negative"`
	Neutral  int    `json:"neutral"`
	Total    int    `json:"total"`
}

// NewsTrend buckets a security's recent articles per calendar day, oldest
// day first.
func NewsTrend(snap news.Snapshot, securityID string, now time.Time, days int) []TrendPoint {
	cutoff := now.AddDate(0, 0, -days)
	buckets := make(map[string]*TrendPoint)
	for _, a := range snap.Articles {
		if !a.Mentions(securityID) || a.Published.Before(cutoff) {
			continue
		}
		day := a.Published.Format("2006-01-02")
		tp, ok := buckets[day]
		if !ok {
			tp = &TrendPoint{Date: day}
			buckets[day] = tp
		}
		switch a.SentimentLabel {
		case domain.SentimentPositive:
			tp.Positive++
		case domain.SentimentNegative:
			tp.Negative++
		default:
			tp.Neutral++
		}
		tp.Total++
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, tp := range buckets {
		points = append(points, *tp)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })
	return points
}

// ---------------------------------------------------------------------------
// Watchlist alerts
// ---------------------------------------------------------------------------

// Alert flags notable news activity on a watched security.
type Alert struct {
	SecurityID string `json:"securityId"`
	Type       string `json:"type"`  // negative, positive, volume
	Level      string `json:"level"` // warning, info
	Message    string `json:"message"`
	News       string `json:"news"`
	Link       string `json:"link"`
}

// WatchlistAlerts scans each watched security for strongly negative news,
// strongly positive news and unusual article volume, in watchlist order.
func WatchlistAlerts(snap news.Snapshot, securityIDs []string, now time.Time, window time.Duration) []Alert {
	var alerts []Alert
	for _, id := range securityIDs {
		articles := ArticlesFor(snap, id, now, window)
		if len(articles) == 0 {
			continue
		}

		var strongPositive, strongNegative []news.Article
		for _, a := range articles {
			if a.SentimentLabel == domain.SentimentPositive && a.SentimentScore > 0.5 {
				strongPositive = append(strongPositive, a)
			}
			if a.SentimentLabel == domain.SentimentNegative && a.SentimentScore < -0.5 {
				strongNegative = append(strongNegative, a)
			}
		}

		if len(strongNegative) > 0 {
			alerts = append(alerts, Alert{
				SecurityID: id,
				Type:       "negative",
				Level:      "warning",
				Message:    fmt.Sprintf("%s 有 %d 則利空新聞", id, len(strongNegative)),
				News:       strongNegative[0].Title,
				Link:       strongNegative[0].Link,
			})
		}
		if len(strongPositive) > 0 {
			alerts = append(alerts, Alert{
				SecurityID: id,
				Type:       "positive",
				Level:      "info",
				Message:    fmt.Sprintf("%s 有 %d 則利多新聞", id, len(strongPositive)),
				News:       strongPositive[0].Title,
				Link:       strongPositive[0].Link,
			})
		}
		if len(articles) >= 5 {
			alerts = append(alerts, Alert{
				SecurityID: id,
				Type:       "volume",
				Level:      "info",
				Message:    fmt.Sprintf("%s 近期新聞量較多 (%d 則)", id, len(articles)),
				News:       articles[0].Title,
				Link:       articles[0].Link,
			})
		}
	}
	return alerts
}

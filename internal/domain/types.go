// Package domain defines the core market-data types shared across the
// application.
package domain

import "time"

// Bar represents one daily OHLCV bar for a listed security.
type Bar struct {
	SecurityID string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64   // traded shares
	Turnover   float64 // traded value in TWD
}

// Change returns the close-to-close percentage change from prev to b.
func (b Bar) Change(prev Bar) float64 {
	if prev.Close == 0 {
		return 0
	}
	return (b.Close - prev.Close) / prev.Close * 100
}

// SentimentLabel classifies the tone of a piece of text.
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNegative SentimentLabel = "negative"
	SentimentNeutral  SentimentLabel = "neutral"
)

// TrendLabel summarises aggregate sentiment direction over a window.
type TrendLabel string

const (
	TrendBullish TrendLabel = "bullish"
	TrendBearish TrendLabel = "bearish"
	TrendNeutral TrendLabel = "neutral"
)

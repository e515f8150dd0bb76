package rank

import (
	"math"
	"sort"
	"time"

	"taipulse/internal/marketdata"
	"taipulse/internal/news"
)

// Defaults for the composite ranking.
const (
	DefaultMinScore   = 40.0
	DefaultTopN       = 20
	candidateRatioMin = 1.5
	candidateCap      = 50
	neutralScore      = 50.0
)

// Weights blends the three scoring dimensions. They do not need to sum to 1;
// the defaults do.
type Weights struct {
	News     float64 `json:"news" yaml:"news"`
	Volume   float64 `json:"volume" yaml:"volume"`
	Momentum float64 `json:"momentum" yaml:"momentum"`
}

// DefaultWeights returns the standard 40/30/30 blend.
func DefaultWeights() Weights {
	return Weights{News: 0.4, Volume: 0.3, Momentum: 0.3}
}

// NewsInput carries one security's news heat into the composite ranking.
type NewsInput struct {
	Count        int     // articles mentioning the security
	AvgSentiment float64 // mean sentiment score, -1..1
	Score        float64 // 0-100, usually NewsScore(Count, AvgSentiment)
}

// NewsInputs aggregates per-security news heat over the window.
func NewsInputs(snap news.Snapshot, now time.Time, window time.Duration) map[string]NewsInput {
	cutoff := now.Add(-window)
	counts := make(map[string]int)
	sums := make(map[string]float64)
	for _, a := range snap.Articles {
		if a.Published.Before(cutoff) {
			continue
		}
		for _, id := range a.Securities {
			counts[id]++
			sums[id] += a.SentimentScore
		}
	}

	out := make(map[string]NewsInput, len(counts))
	for id, n := range counts {
		avg := sums[id] / float64(n)
		out[id] = NewsInput{Count: n, AvgSentiment: avg, Score: NewsScore(n, avg)}
	}
	return out
}

// Namer resolves display metadata for ranked securities.
type Namer interface {
	NameOf(securityID string) string
	IndustryOf(securityID string) string
}

// ---------------------------------------------------------------------------
// Score curves
// ---------------------------------------------------------------------------

// VolumeScore maps a volume ratio onto 0-100. A ratio of 1 scores 50, each
// additional 1x adds 12.5 up to the cap at 5x.
func VolumeScore(ratio float64) float64 {
	switch {
	case ratio >= 5.0:
		return 100
	case ratio >= 1.0:
		return math.Min(100, 50+(ratio-1.0)*12.5)
	default:
		return math.Max(0, ratio*50)
	}
}

// MomentumScore maps short and medium term price changes onto 0-100. The
// 5-day change weighs 60%, the 20-day change 40%; +-30% saturates the scale.
func MomentumScore(change5, change20 float64) float64 {
	raw := change5*0.6 + change20*0.4
	var score float64
	switch {
	case raw >= 30:
		score = 100
	case raw >= -30:
		score = 50 + raw*(50.0/30.0)
	default:
		score = 0
	}
	return math.Max(0, math.Min(100, score))
}

// ---------------------------------------------------------------------------
// Composite ranking
// ---------------------------------------------------------------------------

// HotStock is one fully scored security.
type HotStock struct {
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

// IsHighVolume reports unusually elevated trading volume.
func (h HotStock) IsHighVolume() bool { return h.VolumeRatio >= 2.0 }

// IsPositiveNews reports clearly positive news sentiment.
func (h HotStock) IsPositiveNews() bool { return h.NewsSentiment > 0.2 }

// IsNegativeNews reports clearly negative news sentiment.
func (h HotStock) IsNegativeNews() bool { return h.NewsSentiment < -0.2 }

// TrendDirection buckets the 5-day price change into a readable label.
func (h HotStock) TrendDirection() string {
	switch {
	case h.Change5 > 3:
		return "強勢上漲"
	case h.Change5 > 0:
		return "溫和上漲"
	case h.Change5 > -3:
		return "溫和下跌"
	default:
		return "明顯下跌"
	}
}

// Rank fuses news heat with market metrics into a composite ranking.
//
// Candidates are the news-mentioned securities plus up to 50 more whose
// volume ratio reaches 1.5x. A dimension without data scores the neutral 50,
// except news, which scores 0. Securities below minScore are dropped; ties
// order by id so repeated runs agree.
func Rank(newsIn map[string]NewsInput, metrics map[string]marketdata.SecurityMetrics, names Namer, w Weights, minScore float64, topN int) []HotStock {
	candidates := make(map[string]struct{}, len(newsIn))
	for id := range newsIn {
		candidates[id] = struct{}{}
	}

	// Volume movers join even without news coverage.
	var movers []string
	for id, m := range metrics {
		if _, ok := candidates[id]; ok {
			continue
		}
		if m.HasVolume && m.VolumeRatio >= candidateRatioMin {
			movers = append(movers, id)
		}
	}
	sort.Slice(movers, func(i, j int) bool {
		ri, rj := metrics[movers[i]].VolumeRatio, metrics[movers[j]].VolumeRatio
		if ri != rj {
			return ri > rj
		}
		return movers[i] < movers[j]
	})
	if len(movers) > candidateCap {
		movers = movers[:candidateCap]
	}
	for _, id := range movers {
		candidates[id] = struct{}{}
	}

	results := make([]HotStock, 0, len(candidates))
	for id := range candidates {
		n := newsIn[id]
		m, hasMetrics := metrics[id]

		newsScore := n.Score
		volumeScore := neutralScore
		momentumScore := neutralScore
		if hasMetrics && m.HasVolume {
			volumeScore = VolumeScore(m.VolumeRatio)
		}
		if hasMetrics && m.HasMomentum {
			momentumScore = MomentumScore(m.Change5, m.Change20)
		}

		total := newsScore*w.News + volumeScore*w.Volume + momentumScore*w.Momentum
		if total < minScore {
			continue
		}

		h := HotStock{
			SecurityID:    id,
			Name:          names.NameOf(id),
			Industry:      names.IndustryOf(id),
			TotalScore:    total,
			NewsScore:     newsScore,
			VolumeScore:   volumeScore,
			MomentumScore: momentumScore,
			NewsCount:     n.Count,
			NewsSentiment: n.AvgSentiment,
			VolumeRatio:   1.0,
		}
		if hasMetrics {
			h.LastClose = m.LastClose
			if m.HasVolume {
				h.VolumeRatio = m.VolumeRatio
			}
			if m.HasMomentum {
				h.Change5 = m.Change5
				h.Change20 = m.Change20
			}
		}
		h.Tags = buildTags(h)
		results = append(results, h)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalScore != results[j].TotalScore {
			return results[i].TotalScore > results[j].TotalScore
		}
		return results[i].SecurityID < results[j].SecurityID
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

func buildTags(h HotStock) []string {
	var tags []string
	if h.NewsCount >= 3 {
		tags = append(tags, "新聞熱門")
	}
	if h.NewsSentiment > 0.3 {
		tags = append(tags, "正面報導")
	} else if h.NewsSentiment < -0.3 {
		tags = append(tags, "負面報導")
	}
	if h.VolumeRatio >= 2.0 {
		tags = append(tags, "爆量")
	} else if h.VolumeRatio >= 1.5 {
		tags = append(tags, "量增")
	}
	if h.Change5 >= 5 {
		tags = append(tags, "短線強勢")
	} else if h.Change5 <= -5 {
		tags = append(tags, "短線弱勢")
	}
	return tags
}

// ---------------------------------------------------------------------------
// Volume anomalies and focus report
// ---------------------------------------------------------------------------

// Anomaly is one security trading far above its usual volume.
type Anomaly struct {
	SecurityID  string  `json:"securityId"`
	Name        string  `json:"name"`
	VolumeRatio float64 `json:"volumeRatio"`
	Change5     float64 `json:"priceChange5d"`
	LastClose   float64 `json:"lastClose"`
}

// VolumeAnomalies lists securities whose volume ratio reaches minRatio,
// highest ratio first.
func VolumeAnomalies(metrics map[string]marketdata.SecurityMetrics, names Namer, minRatio float64, topN int) []Anomaly {
	var anomalies []Anomaly
	for id, m := range metrics {
		if !m.HasVolume || m.VolumeRatio < minRatio {
			continue
		}
		anomalies = append(anomalies, Anomaly{
			SecurityID:  id,
			Name:        names.NameOf(id),
			VolumeRatio: m.VolumeRatio,
			Change5:     m.Change5,
			LastClose:   m.LastClose,
		})
	}
	sort.Slice(anomalies, func(i, j int) bool {
		if anomalies[i].VolumeRatio != anomalies[j].VolumeRatio {
			return anomalies[i].VolumeRatio > anomalies[j].VolumeRatio
		}
		return anomalies[i].SecurityID < anomalies[j].SecurityID
	})
	if topN > 0 && len(anomalies) > topN {
		anomalies = anomalies[:topN]
	}
	return anomalies
}

// FocusSummary counts the notable buckets of a focus report.
type FocusSummary struct {
	TotalAnalyzed   int `json:"totalAnalyzed"`
	PositiveCount   int `json:"positiveCount"`
	NegativeCount   int `json:"negativeCount"`
	HighVolumeCount int `json:"highVolumeCount"`
}

// FocusReport groups the day's notable securities by what makes them notable.
type FocusReport struct {
	HotStocks         []HotStock   `json:"hotStocks"`
	PositiveSentiment []HotStock   `json:"positiveSentiment"`
	NegativeSentiment []HotStock   `json:"negativeSentiment"`
	HighVolume        []HotStock   `json:"highVolume"`
	StrongMomentum    []HotStock   `json:"strongMomentum"`
	VolumeAnomalies   []Anomaly    `json:"volumeAnomalies"`
	Summary           FocusSummary `json:"summary"`
}

// Focus builds the daily watch report: a wide ranking pass regrouped into
// sentiment, volume and momentum buckets. Every slice is non-nil so the
// report serializes with empty arrays, never null.
func Focus(newsIn map[string]NewsInput, metrics map[string]marketdata.SecurityMetrics, names Namer, w Weights) FocusReport {
	hot := Rank(newsIn, metrics, names, w, DefaultMinScore, 30)
	anomalies := VolumeAnomalies(metrics, names, 2.0, 10)
	if anomalies == nil {
		anomalies = []Anomaly{}
	}

	positive := []HotStock{}
	negative := []HotStock{}
	highVolume := []HotStock{}
	strongMomentum := []HotStock{}
	for _, h := range hot {
		if h.IsPositiveNews() {
			positive = append(positive, h)
		}
		if h.IsNegativeNews() {
			negative = append(negative, h)
		}
		if h.IsHighVolume() {
			highVolume = append(highVolume, h)
		}
		if h.Change5 >= 5 {
			strongMomentum = append(strongMomentum, h)
		}
	}

	return FocusReport{
		HotStocks:         capStocks(hot, 20),
		PositiveSentiment: capStocks(positive, 10),
		NegativeSentiment: capStocks(negative, 10),
		HighVolume:        capStocks(highVolume, 10),
		StrongMomentum:    capStocks(strongMomentum, 10),
		VolumeAnomalies:   anomalies,
		Summary: FocusSummary{
			TotalAnalyzed:   len(hot),
			PositiveCount:   len(positive),
			NegativeCount:   len(negative),
			HighVolumeCount: len(highVolume),
		},
	}
}

func capStocks(stocks []HotStock, n int) []HotStock {
	if len(stocks) > n {
		return stocks[:n]
	}
	return stocks
}

package marketdata

import (
	"time"

	"taipulse/internal/domain"
)

const (
	volumeLookback  = 5  // recent window, trading days
	volumeAvgDays   = 20 // baseline window, trading days
	momentumMinBars = 21
)

// SecurityMetrics carries the raw activity ingredients derived from a
// security's daily bars. HasVolume and HasMomentum report whether the series
// was long enough for the respective calculation.
type SecurityMetrics struct {
	SecurityID string
	LastClose  float64
	LastDate   time.Time

	VolumeRatio  float64 // recent 5-day mean over the prior 20-day mean
	RecentVolume float64
	AvgVolume    float64
	HasVolume    bool

	Change5     float64 // percent
	Change20    float64 // percent
	HasMomentum bool
}

// Metrics derives activity metrics from daily bars sorted oldest first.
func Metrics(securityID string, bars []domain.Bar) SecurityMetrics {
	m := SecurityMetrics{SecurityID: securityID}
	n := len(bars)
	if n == 0 {
		return m
	}

	last := bars[n-1]
	m.LastClose = last.Close
	m.LastDate = last.Timestamp

	// Volume ratio needs the recent window plus a full baseline behind it.
	if n >= volumeAvgDays+volumeLookback {
		recent := meanVolume(bars[n-volumeLookback:])
		past := meanVolume(bars[n-volumeAvgDays-volumeLookback : n-volumeLookback])
		if past > 0 {
			m.RecentVolume = recent
			m.AvgVolume = past
			m.VolumeRatio = recent / past
			m.HasVolume = true
		}
	}

	if n >= momentumMinBars {
		current := bars[n-1].Close
		price5 := bars[n-6].Close
		price20 := bars[n-21].Close
		if price5 > 0 {
			m.Change5 = (current/price5 - 1) * 100
		}
		if price20 > 0 {
			m.Change20 = (current/price20 - 1) * 100
		}
		m.HasMomentum = true
	}

	return m
}

func meanVolume(bars []domain.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bars {
		sum += float64(b.Volume)
	}
	return sum / float64(len(bars))
}

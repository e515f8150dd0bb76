// Package sentiment scores Taiwan financial news text against weighted
// bullish/bearish lexicons with negation handling. Scoring is lexical only;
// no language model is involved.
package sentiment

import (
	"taipulse/internal/domain"
)

// Config carries the tuning constants of the scorer. The defaults are
// empirical values; they are configuration, not derived quantities.
type Config struct {
	NegationWindow int     // lookback window before a keyword, in runes
	Damping        float64 // weight multiplier for a negated keyword
	Dominance      float64 // one side must exceed the other by this factor
	Floor          float64 // and reach this absolute total
	MaxKeywords    int     // reported keyword cap
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		NegationWindow: 5,
		Damping:        0.8,
		Dominance:      1.5,
		Floor:          2.0,
		MaxKeywords:    8,
	}
}

// Result is the outcome of scoring one text.
type Result struct {
	Label    domain.SentimentLabel
	Score    float64 // in [-1, 1]
	Keywords []string
}

// Scorer matches lexicon keywords in rune space. Safe for concurrent use;
// it holds no per-call state.
type Scorer struct {
	cfg      Config
	positive []keywordRunes
	negative []keywordRunes
	negation [][]rune
}

type keywordRunes struct {
	text   string
	runes  []rune
	weight float64
}

// NewScorer compiles the builtin lexicons under cfg.
func NewScorer(cfg Config) *Scorer {
	s := &Scorer{cfg: cfg}
	for _, kw := range PositiveKeywords {
		s.positive = append(s.positive, keywordRunes{text: kw.Text, runes: []rune(kw.Text), weight: kw.Weight})
	}
	for _, kw := range NegativeKeywords {
		s.negative = append(s.negative, keywordRunes{text: kw.Text, runes: []rune(kw.Text), weight: kw.Weight})
	}
	for _, w := range NegationWords {
		s.negation = append(s.negation, []rune(w))
	}
	return s
}

// Score evaluates text. Every keyword occurrence contributes its weight; an
// occurrence preceded by a negation marker within the window contributes a
// damped weight to the opposite side instead and is not reported as a
// keyword. The label stays neutral unless one side both dominates the other
// and clears the absolute floor.
func (s *Scorer) Score(text string) Result {
	runes := []rune(text)
	if len(runes) == 0 {
		return Result{Label: domain.SentimentNeutral}
	}

	negPositions := s.negationPositions(runes)
	isNegated := func(pos int) bool {
		for _, np := range negPositions {
			if d := pos - np; d > 0 && d <= s.cfg.NegationWindow {
				return true
			}
		}
		return false
	}

	var positiveTotal, negativeTotal float64
	var keywords []string
	seen := make(map[string]struct{})

	for _, kw := range s.positive {
		for _, pos := range runeIndexes(runes, kw.runes) {
			if isNegated(pos) {
				negativeTotal += kw.weight * s.cfg.Damping
			} else {
				positiveTotal += kw.weight
				if _, dup := seen[kw.text]; !dup {
					seen[kw.text] = struct{}{}
					keywords = append(keywords, kw.text)
				}
			}
		}
	}
	for _, kw := range s.negative {
		for _, pos := range runeIndexes(runes, kw.runes) {
			if isNegated(pos) {
				positiveTotal += kw.weight * s.cfg.Damping
			} else {
				negativeTotal += kw.weight
				if _, dup := seen[kw.text]; !dup {
					seen[kw.text] = struct{}{}
					keywords = append(keywords, kw.text)
				}
			}
		}
	}

	var score float64
	if total := positiveTotal + negativeTotal; total > 0 {
		score = (positiveTotal - negativeTotal) / total
	}

	label := domain.SentimentNeutral
	switch {
	case positiveTotal > negativeTotal*s.cfg.Dominance && positiveTotal >= s.cfg.Floor:
		label = domain.SentimentPositive
	case negativeTotal > positiveTotal*s.cfg.Dominance && negativeTotal >= s.cfg.Floor:
		label = domain.SentimentNegative
	}

	if len(keywords) > s.cfg.MaxKeywords {
		keywords = keywords[:s.cfg.MaxKeywords]
	}
	return Result{Label: label, Score: score, Keywords: keywords}
}

// negationPositions collects the rune index of every negation-marker
// occurrence.
func (s *Scorer) negationPositions(runes []rune) []int {
	var positions []int
	for _, marker := range s.negation {
		positions = append(positions, runeIndexes(runes, marker)...)
	}
	return positions
}

// runeIndexes returns the start index of every non-overlapping occurrence
// of sub in runes, leftmost first.
func runeIndexes(runes, sub []rune) []int {
	if len(sub) == 0 || len(sub) > len(runes) {
		return nil
	}
	var indexes []int
	for i := 0; i+len(sub) <= len(runes); {
		match := true
		for j := range sub {
			if runes[i+j] != sub[j] {
				match = false
				break
			}
		}
		if match {
			indexes = append(indexes, i)
			i += len(sub)
		} else {
			i++
		}
	}
	return indexes
}

// Package news holds the canonical article record, the process-wide article
// store with its persisted cache, and the event-cluster index that
// deduplicates multi-outlet coverage.
package news

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"taipulse/internal/domain"
)

// Article is one normalized, fully enriched news item. Enrichment (matched
// securities, sentiment, fingerprint) happens exactly once at ingestion;
// articles are never mutated afterwards.
type Article struct {
	Title          string                `json:"title"`
	Link           string                `json:"link"`
	Source         string                `json:"source"` // display name of the feed
	Published      time.Time             `json:"published"`
	Summary        string                `json:"summary"`
	Securities     []string              `json:"securities"`
	SentimentLabel domain.SentimentLabel `json:"sentiment_label"`
	SentimentScore float64               `json:"sentiment_score"`
	Keywords       []string              `json:"keywords"`
	Fingerprint    string                `json:"fingerprint"`
}

// Mentions reports whether the article's matched securities include id.
func (a Article) Mentions(id string) bool {
	for _, s := range a.Securities {
		if s == id {
			return true
		}
	}
	return false
}

// Normalize strips whitespace and punctuation, keeping letters, digits and
// underscores. Two headlines differing only in spacing or punctuation
// normalize identically.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FingerprintOf derives the content fingerprint: the first 12 hex digits of
// the MD5 of the normalized title and summary. Used only for duplicate
// suppression, not for security.
func FingerprintOf(title, summary string) string {
	sum := md5.Sum([]byte(Normalize(title + summary)))
	return hex.EncodeToString(sum[:])[:12]
}

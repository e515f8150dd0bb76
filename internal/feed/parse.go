package feed

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"taipulse/internal/news"
)

const (
	// Per-source item cap keeps one chatty feed from drowning the rest.
	maxItemsPerSource = 30
	maxSummaryRunes   = 500
)

// ---------------------------------------------------------------------------
// RSS
// ---------------------------------------------------------------------------

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
	Description string `xml:"description"`
}

// parseRSS decodes an RSS 2.0 payload into raw articles. Unparseable dates
// fall back to now rather than dropping the item.
func parseRSS(data []byte, source string, now time.Time) ([]news.Article, error) {
	var doc rssResponse
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	items := doc.Channel.Items
	if len(items) > maxItemsPerSource {
		items = items[:maxItemsPerSource]
	}

	articles := make([]news.Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, news.Article{
			Title:     strings.TrimSpace(item.Title),
			Link:      strings.TrimSpace(item.Link),
			Source:    source,
			Published: parseFeedTime(item.PubDate, now),
			Summary:   truncateRunes(stripHTML(item.Description), maxSummaryRunes),
		})
	}
	return articles, nil
}

func parseFeedTime(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now
	}
	t, err := time.Parse(time.RFC1123Z, value)
	if err != nil {
		t, err = time.Parse(time.RFC1123, value)
		if err != nil {
			t, err = time.Parse("2006-01-02 15:04:05", value)
			if err != nil {
				return now
			}
		}
	}
	return t
}

// ---------------------------------------------------------------------------
// cnyes JSON
// ---------------------------------------------------------------------------

type cnyesResponse struct {
	Items struct {
		Data []cnyesItem `json:"data"`
	} `json:"items"`
}

type cnyesItem struct {
	NewsID    int64  `json:"newsId"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	PublishAt int64  `json:"publishAt"`
}

// parseCnyesJSON decodes the cnyes news API shape. Links are synthesized
// from the numeric news id and publish times arrive as unix seconds.
func parseCnyesJSON(data []byte, source string, now time.Time) ([]news.Article, error) {
	var doc cnyesResponse
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	items := doc.Items.Data
	if len(items) > maxItemsPerSource {
		items = items[:maxItemsPerSource]
	}

	articles := make([]news.Article, 0, len(items))
	for _, item := range items {
		published := now
		if item.PublishAt > 0 {
			published = time.Unix(item.PublishAt, 0)
		}
		articles = append(articles, news.Article{
			Title:     strings.TrimSpace(item.Title),
			Link:      fmt.Sprintf("https://news.cnyes.com/news/id/%d", item.NewsID),
			Source:    source,
			Published: published,
			Summary:   truncateRunes(item.Summary, maxSummaryRunes),
		})
	}
	return articles, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// stripHTML removes markup, unescapes entities and collapses whitespace.
func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

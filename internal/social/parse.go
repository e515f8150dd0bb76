package social

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"taipulse/internal/domain"
)

// Board slang lexicons. Shorter and punchier than the news lexicon; a term
// counts once per title no matter how often it repeats.
var (
	bullishTerms = []string{
		"多", "買", "漲", "噴", "飆", "衝", "強", "讚", "推",
		"利多", "看好", "加碼", "進場", "起飛", "突破", "創高",
		"主力買", "外資買", "投信買", "紅K", "長紅",
	}
	bearishTerms = []string{
		"空", "賣", "跌", "崩", "殺", "弱", "慘", "噓",
		"利空", "看壞", "減碼", "出場", "套牢", "跌破", "創低",
		"主力賣", "外資賣", "投信賣", "黑K", "長黑",
	}
)

// parseListing extracts posts from one board index page. Rows without a
// title anchor are deleted posts and are skipped.
func parseListing(doc *goquery.Document, baseURL string, now time.Time) []Post {
	var posts []Post

	doc.Find("div.r-ent").Each(func(_ int, sel *goquery.Selection) {
		anchor := sel.Find("div.title a").First()
		if anchor.Length() == 0 {
			return
		}
		title := strings.TrimSpace(anchor.Text())
		href, _ := anchor.Attr("href")

		push := parsePushCount(strings.TrimSpace(sel.Find("div.nrec span").Text()))
		dateStr := strings.TrimSpace(sel.Find("div.meta div.date").Text())

		posts = append(posts, Post{
			Title:      title,
			Author:     strings.TrimSpace(sel.Find("div.meta div.author").Text()),
			Date:       dateStr,
			URL:        baseURL + href,
			PushCount:  push,
			Securities: extractSecurities(title),
			Sentiment:  classifyPost(title, push),
			CreatedAt:  parsePostDate(dateStr, now),
		})
	})

	return posts
}

// prevPageURL finds the "previous page" link, which walks the board from
// newest to oldest.
func prevPageURL(doc *goquery.Document) (string, bool) {
	anchors := doc.Find("div.btn-group-paging a")
	if anchors.Length() < 2 {
		return "", false
	}
	href, ok := anchors.Eq(1).Attr("href")
	if !ok || href == "" {
		return "", false
	}
	return href, true
}

// parsePushCount maps the push badge to a number. 爆 marks 100 or more
// pushes, an X prefix marks heavy downvoting.
func parsePushCount(text string) int {
	switch {
	case text == "":
		return 0
	case text == "爆":
		return 100
	case strings.HasPrefix(text, "X"):
		return -10
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

// parsePostDate resolves the listing's M/DD date against the current year.
// Dates that land in the future belong to last year.
func parsePostDate(dateStr string, now time.Time) time.Time {
	parsed, err := time.ParseInLocation("2006/1/2", fmt.Sprintf("%d/%s", now.Year(), strings.TrimSpace(dateStr)), now.Location())
	if err != nil {
		return now
	}
	if parsed.After(now) {
		parsed = parsed.AddDate(-1, 0, 0)
	}
	return parsed
}

// extractSecurities pulls standalone four-digit codes out of a title.
// Digits glued to letters or longer runs are not codes.
func extractSecurities(title string) []string {
	runes := []rune(title)
	seen := make(map[string]bool)
	var ids []string

	for i := 0; i < len(runes); {
		if !unicode.IsDigit(runes[i]) {
			i++
			continue
		}
		j := i
		for j < len(runes) && unicode.IsDigit(runes[j]) {
			j++
		}
		if j-i == 4 && !wordRuneAt(runes, i-1) && !wordRuneAt(runes, j) {
			id := string(runes[i:j])
			if n, err := strconv.Atoi(id); err == nil && n >= 1000 && n <= 9999 && !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		i = j
	}
	return ids
}

func wordRuneAt(runes []rune, i int) bool {
	if i < 0 || i >= len(runes) {
		return false
	}
	return unicode.IsLetter(runes[i]) || runes[i] == '_'
}

// classifyPost labels a title by counting which slang terms appear, with the
// push badge weighing in. Only a strict majority earns a label.
func classifyPost(title string, pushCount int) domain.SentimentLabel {
	var pos, neg int
	for _, term := range bullishTerms {
		if strings.Contains(title, term) {
			pos++
		}
	}
	for _, term := range bearishTerms {
		if strings.Contains(title, term) {
			neg++
		}
	}

	if pushCount >= 50 {
		pos += 2
	} else if pushCount <= -5 {
		neg += 2
	}

	switch {
	case pos > neg:
		return domain.SentimentPositive
	case neg > pos:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

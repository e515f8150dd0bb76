package digest

import (
	"fmt"
	"strings"

	"taipulse/internal/domain"
)

const titleRunes = 40

// Format renders a report as the push message text.
func Format(r Report) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("📰 每日晨報 - %s", r.GeneratedAt.Format("2006/01/02 15:04")))
	lines = append(lines, strings.Repeat("=", 30))
	lines = append(lines, "")

	lines = append(lines, "📊 新聞統計")
	lines = append(lines, fmt.Sprintf("  • 總新聞數: %s", FormatInt(r.Summary.TotalArticles)))
	lines = append(lines, fmt.Sprintf("  • 利多新聞: %s", FormatInt(r.Summary.PositiveCount)))
	lines = append(lines, fmt.Sprintf("  • 利空新聞: %s", FormatInt(r.Summary.NegativeCount)))
	lines = append(lines, "")

	if len(r.HotStocks) > 0 {
		lines = append(lines, "🔥 熱門股票 (依提及次數)")
		for i, h := range r.HotStocks {
			if i == 5 {
				break
			}
			lines = append(lines, fmt.Sprintf("  %d. %s (%s次) %s",
				i+1, h.SecurityID, FormatInt(h.MentionCount), trendIcon(h.Trend)))
		}
		lines = append(lines, "")
	}

	lines = appendArticleSection(lines, "📈 利多消息", r.PositiveNews)
	lines = appendArticleSection(lines, "📉 利空消息", r.NegativeNews)

	lines = append(lines, strings.Repeat("─", 30))
	lines = append(lines, "📱 詳細內容請查看系統晨報頁面")
	return strings.Join(lines, "\n")
}

func appendArticleSection(lines []string, header string, entries []ArticleEntry) []string {
	if len(entries) == 0 {
		return lines
	}
	lines = append(lines, header)
	for i, e := range entries {
		if i == 3 {
			break
		}
		lines = append(lines, "  • "+truncateTitle(e.Title))
		if len(e.Securities) > 0 {
			ids := e.Securities
			if len(ids) > 2 {
				ids = ids[:2]
			}
			lines = append(lines, "    → "+strings.Join(ids, ", "))
		}
	}
	return append(lines, "")
}

func trendIcon(t domain.TrendLabel) string {
	switch t {
	case domain.TrendBullish:
		return "📈"
	case domain.TrendBearish:
		return "📉"
	default:
		return "➖"
	}
}

func truncateTitle(s string) string {
	runes := []rune(s)
	if len(runes) <= titleRunes {
		return s
	}
	return string(runes[:titleRunes]) + "..."
}

// FormatInt formats an integer with comma separators.
func FormatInt(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

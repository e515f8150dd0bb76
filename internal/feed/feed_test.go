package feed

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"taipulse/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParseFormat(t *testing.T) {
	cases := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"xml", FormatXML, false},
		{"RSS", FormatXML, false},
		{"", FormatXML, false},
		{"json", FormatJSON, false},
		{" JSON ", FormatJSON, false},
		{"csv", 0, true},
	}
	for _, c := range cases {
		got, err := ParseFormat(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseFormat(%q) error = nil, want error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q): %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseFormat(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBuildSources(t *testing.T) {
	rows := []config.Source{
		{Key: "yahoo_tw", Name: "Yahoo奇摩股市", URL: "https://tw.stock.yahoo.com/rss?category=news", Category: "stock", Format: "xml", Weight: 1.2},
		{Key: "", URL: "https://example.com/feed"},
		{Key: "bad_format", URL: "https://example.com/feed", Format: "csv"},
		{Key: "disabled", URL: "https://example.com/feed", Format: "xml", Disabled: true},
		{Key: "cnyes_news", URL: "https://api.cnyes.com/media/api/v1/newslist/category/tw_stock", Format: "json"},
	}

	sources := BuildSources(rows, testLogger())
	if len(sources) != 2 {
		t.Fatalf("BuildSources returned %d sources, want 2", len(sources))
	}

	if sources[0].Name != "Yahoo奇摩股市" {
		t.Errorf("sources[0].Name = %q, want %q", sources[0].Name, "Yahoo奇摩股市")
	}
	if sources[0].Weight != 1.2 {
		t.Errorf("sources[0].Weight = %v, want 1.2", sources[0].Weight)
	}
	if sources[0].Format != FormatXML {
		t.Errorf("sources[0].Format = %v, want FormatXML", sources[0].Format)
	}

	// Name falls back to the key and weight to 1.0.
	if sources[1].Name != "cnyes_news" {
		t.Errorf("sources[1].Name = %q, want %q", sources[1].Name, "cnyes_news")
	}
	if sources[1].Weight != 1.0 {
		t.Errorf("sources[1].Weight = %v, want 1.0", sources[1].Weight)
	}
	if sources[1].Format != FormatJSON {
		t.Errorf("sources[1].Format = %v, want FormatJSON", sources[1].Format)
	}
}

func TestWeightOf(t *testing.T) {
	weightOf := WeightOf([]Source{
		{Key: "a", Name: "經濟日報", Weight: 1.3},
		{Key: "b", Name: "Yahoo奇摩股市", Weight: 1.0},
	})

	if got := weightOf("經濟日報"); got != 1.3 {
		t.Errorf("weightOf(經濟日報) = %v, want 1.3", got)
	}
	if got := weightOf("未知來源"); got != 1.0 {
		t.Errorf("weightOf(未知來源) = %v, want 1.0", got)
	}
}

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>測試頻道</title>
    <item>
      <title> 台積電營收創新高 </title>
      <link>https://example.com/news/1</link>
      <pubDate>Mon, 02 Jun 2025 10:30:00 +0800</pubDate>
      <description>&lt;p&gt;晶圓代工龍頭&lt;b&gt;營收&lt;/b&gt;亮眼&lt;/p&gt;</description>
    </item>
    <item>
      <title>盤後快訊</title>
      <link>https://example.com/news/2</link>
      <pubDate>not a date</pubDate>
      <description></description>
    </item>
  </channel>
</rss>`

func TestParseRSS(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	articles, err := parseRSS([]byte(sampleRSS), "Yahoo奇摩股市", now)
	if err != nil {
		t.Fatalf("parseRSS: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("parseRSS returned %d articles, want 2", len(articles))
	}

	a := articles[0]
	if a.Title != "台積電營收創新高" {
		t.Errorf("Title = %q, want %q", a.Title, "台積電營收創新高")
	}
	if a.Link != "https://example.com/news/1" {
		t.Errorf("Link = %q", a.Link)
	}
	if a.Source != "Yahoo奇摩股市" {
		t.Errorf("Source = %q, want %q", a.Source, "Yahoo奇摩股市")
	}
	if a.Summary != "晶圓代工龍頭 營收 亮眼" {
		t.Errorf("Summary = %q, want stripped text", a.Summary)
	}
	want := time.Date(2025, 6, 2, 10, 30, 0, 0, time.FixedZone("", 8*3600))
	if !a.Published.Equal(want) {
		t.Errorf("Published = %v, want %v", a.Published, want)
	}

	// Second item has a junk date and falls back to now.
	if !articles[1].Published.Equal(now) {
		t.Errorf("Published = %v, want fallback %v", articles[1].Published, now)
	}
}

func TestParseFeedTimeFallbacks(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		in   string
		want time.Time
	}{
		{"Mon, 02 Jun 2025 10:30:00 +0800", time.Date(2025, 6, 2, 10, 30, 0, 0, time.FixedZone("", 8*3600))},
		{"Mon, 02 Jun 2025 02:30:00 GMT", time.Date(2025, 6, 2, 2, 30, 0, 0, time.UTC)},
		{"2025-06-02 10:30:00", time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)},
		{"", now},
		{"garbage", now},
	}
	for _, c := range cases {
		got := parseFeedTime(c.in, now)
		if !got.Equal(c.want) {
			t.Errorf("parseFeedTime(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestParseRSSCapsItems(t *testing.T) {
	var b strings.Builder
	b.WriteString(`<rss version="2.0"><channel>`)
	for i := 0; i < 35; i++ {
		fmt.Fprintf(&b, "<item><title>新聞 %d</title><link>https://example.com/%d</link></item>", i, i)
	}
	b.WriteString(`</channel></rss>`)

	articles, err := parseRSS([]byte(b.String()), "來源", time.Now())
	if err != nil {
		t.Fatalf("parseRSS: %v", err)
	}
	if len(articles) != maxItemsPerSource {
		t.Errorf("parseRSS returned %d articles, want %d", len(articles), maxItemsPerSource)
	}
}

func TestParseRSSTruncatesSummary(t *testing.T) {
	long := strings.Repeat("漲", 600)
	rss := `<rss version="2.0"><channel><item><title>t</title><description>` + long + `</description></item></channel></rss>`

	articles, err := parseRSS([]byte(rss), "來源", time.Now())
	if err != nil {
		t.Fatalf("parseRSS: %v", err)
	}
	if got := len([]rune(articles[0].Summary)); got != maxSummaryRunes {
		t.Errorf("summary length = %d runes, want %d", got, maxSummaryRunes)
	}
}

func TestParseCnyesJSON(t *testing.T) {
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	payload := `{"items":{"data":[
		{"newsId":5891234,"title":" 台積電法說會重點 ","summary":"資本支出上修","publishAt":1748833200},
		{"newsId":5891235,"title":"盤後速報","summary":"","publishAt":0}
	]}}`

	articles, err := parseCnyesJSON([]byte(payload), "鉅亨網", now)
	if err != nil {
		t.Fatalf("parseCnyesJSON: %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("parseCnyesJSON returned %d articles, want 2", len(articles))
	}

	a := articles[0]
	if a.Title != "台積電法說會重點" {
		t.Errorf("Title = %q", a.Title)
	}
	if a.Link != "https://news.cnyes.com/news/id/5891234" {
		t.Errorf("Link = %q, want synthesized cnyes link", a.Link)
	}
	if a.Source != "鉅亨網" {
		t.Errorf("Source = %q, want 鉅亨網", a.Source)
	}
	if a.Published.Unix() != 1748833200 {
		t.Errorf("Published.Unix() = %d, want 1748833200", a.Published.Unix())
	}

	// Missing publish time falls back to now.
	if !articles[1].Published.Equal(now) {
		t.Errorf("Published = %v, want fallback %v", articles[1].Published, now)
	}
}

func TestStripHTML(t *testing.T) {
	in := `<p>外資&amp;投信  同步<b>買超</b></p>`
	if got := stripHTML(in); got != "外資&投信 同步 買超" {
		t.Errorf("stripHTML = %q", got)
	}
}

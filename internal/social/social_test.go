package social

import (
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"taipulse/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("NewDocumentFromReader: %v", err)
	}
	return doc
}

const boardFixture = `<html><body>
<div class="r-ent">
  <div class="nrec"><span class="hl f1">爆</span></div>
  <div class="title"><a href="/bbs/Stock/M.1717300000.A.123.html"> [標的] 2330 台積電 漲不停 多到爆 </a></div>
  <div class="meta">
    <div class="author">trader01</div>
    <div class="date"> 6/02</div>
  </div>
</div>
<div class="r-ent">
  <div class="nrec"></div>
  <div class="title"> (本文已被刪除) [ghost] </div>
  <div class="meta">
    <div class="author">-</div>
    <div class="date"> 6/02</div>
  </div>
</div>
<div class="r-ent">
  <div class="nrec"><span class="hl f3">X2</span></div>
  <div class="title"><a href="/bbs/Stock/M.1717200000.A.456.html">[請益] 2603 套牢怎麼辦</a></div>
  <div class="meta">
    <div class="author">sadbags</div>
    <div class="date"> 6/01</div>
  </div>
</div>
<div class="r-ent">
  <div class="nrec"></div>
  <div class="title"><a href="/bbs/Stock/M.1703980800.A.789.html">[心得] 大盤觀察 12345 測試</a></div>
  <div class="meta">
    <div class="author">watcher</div>
    <div class="date">12/31</div>
  </div>
</div>
<div class="btn-group btn-group-paging">
  <a class="btn wide" href="/bbs/Stock/index1.html">最舊</a>
  <a class="btn wide" href="/bbs/Stock/index6092.html">‹ 上頁</a>
  <a class="btn wide disabled">下頁 ›</a>
  <a class="btn wide" href="/bbs/Stock/index.html">最新</a>
</div>
</body></html>`

var scanNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func TestParseListing(t *testing.T) {
	posts := parseListing(docFrom(t, boardFixture), DefaultBaseURL, scanNow)
	if len(posts) != 3 {
		t.Fatalf("len(posts) = %d, want 3 (deleted row skipped)", len(posts))
	}

	first := posts[0]
	if first.Title != "[標的] 2330 台積電 漲不停 多到爆" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.URL != "https://www.ptt.cc/bbs/Stock/M.1717300000.A.123.html" {
		t.Errorf("URL = %q", first.URL)
	}
	if first.Author != "trader01" {
		t.Errorf("Author = %q", first.Author)
	}
	if first.Date != "6/02" {
		t.Errorf("Date = %q", first.Date)
	}
	if first.PushCount != 100 {
		t.Errorf("PushCount = %d, want 100", first.PushCount)
	}
	if len(first.Securities) != 1 || first.Securities[0] != "2330" {
		t.Errorf("Securities = %v, want [2330]", first.Securities)
	}
	if first.Sentiment != domain.SentimentPositive {
		t.Errorf("Sentiment = %q, want positive", first.Sentiment)
	}
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !first.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", first.CreatedAt, want)
	}

	second := posts[1]
	if second.PushCount != -10 {
		t.Errorf("PushCount = %d, want -10", second.PushCount)
	}
	if second.Sentiment != domain.SentimentNegative {
		t.Errorf("Sentiment = %q, want negative", second.Sentiment)
	}

	third := posts[2]
	if len(third.Securities) != 0 {
		t.Errorf("Securities = %v, want none for a five digit run", third.Securities)
	}
	if third.Sentiment != domain.SentimentNeutral {
		t.Errorf("Sentiment = %q, want neutral", third.Sentiment)
	}
	if got := third.CreatedAt.Year(); got != 2024 {
		t.Errorf("CreatedAt year = %d, want 2024 for a future-looking date", got)
	}
}

func TestPrevPageURL(t *testing.T) {
	href, ok := prevPageURL(docFrom(t, boardFixture))
	if !ok {
		t.Fatal("prevPageURL: not found")
	}
	if href != "/bbs/Stock/index6092.html" {
		t.Errorf("href = %q", href)
	}

	if _, ok := prevPageURL(docFrom(t, "<html><body></body></html>")); ok {
		t.Error("prevPageURL on empty page: found link, want none")
	}
}

func TestParsePushCount(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"爆", 100},
		{"X", -10},
		{"X2", -10},
		{"99", 99},
		{"7", 7},
		{"", 0},
		{"~", 0},
	}
	for _, tt := range tests {
		if got := parsePushCount(tt.text); got != tt.want {
			t.Errorf("parsePushCount(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestParsePostDate(t *testing.T) {
	if got := parsePostDate("6/02", scanNow); got.Year() != 2025 || got.Month() != time.June || got.Day() != 2 {
		t.Errorf("parsePostDate(6/02) = %v", got)
	}
	if got := parsePostDate("12/31", scanNow); got.Year() != 2024 {
		t.Errorf("parsePostDate(12/31) year = %d, want 2024", got.Year())
	}
	if got := parsePostDate("junk", scanNow); !got.Equal(scanNow) {
		t.Errorf("parsePostDate(junk) = %v, want now", got)
	}
}

func TestExtractSecurities(t *testing.T) {
	tests := []struct {
		title string
		want  []string
	}{
		{"[標的] 2330 台積電", []string{"2330"}},
		{"台積電(2330)大漲", []string{"2330"}},
		{"2330漲停", nil},
		{"0056 高股息", nil},
		{"大盤 12345 測試", nil},
		{"2330 2317 2330 比較", []string{"2330", "2317"}},
	}
	for _, tt := range tests {
		got := extractSecurities(tt.title)
		if len(got) != len(tt.want) {
			t.Errorf("extractSecurities(%q) = %v, want %v", tt.title, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("extractSecurities(%q) = %v, want %v", tt.title, got, tt.want)
				break
			}
		}
	}
}

func TestClassifyPost(t *testing.T) {
	tests := []struct {
		title string
		push  int
		want  domain.SentimentLabel
	}{
		{"台積電 漲 漲 漲", 0, domain.SentimentPositive},
		{"多空交戰", 0, domain.SentimentNeutral},
		{"外資賣超創高?", 0, domain.SentimentNegative},
		{"盤後閒聊", 60, domain.SentimentPositive},
		{"盤後閒聊", -10, domain.SentimentNegative},
		{"[請益] 新手發問", 0, domain.SentimentNeutral},
	}
	for _, tt := range tests {
		if got := classifyPost(tt.title, tt.push); got != tt.want {
			t.Errorf("classifyPost(%q, %d) = %q, want %q", tt.title, tt.push, got, tt.want)
		}
	}
}

func boardPost(securityID string, age time.Duration, label domain.SentimentLabel) Post {
	return Post{
		Title:      "[標的] " + securityID,
		Author:     "poster",
		URL:        "https://www.ptt.cc/bbs/Stock/M.1.A.html",
		Securities: []string{securityID},
		Sentiment:  label,
		CreatedAt:  scanNow.Add(-age),
	}
}

func TestHotStocks(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "ptt.json"), testLogger())
	s.posts = []Post{
		boardPost("2330", time.Hour, domain.SentimentPositive),
		{Securities: []string{"2330", "2317"}, CreatedAt: scanNow.Add(-2 * time.Hour)},
		boardPost("2317", 30*time.Hour, domain.SentimentNeutral),
		boardPost("2603", 3*time.Hour, domain.SentimentNegative),
	}

	got := s.HotStocks(scanNow, 24*time.Hour)
	want := []MentionCount{
		{SecurityID: "2330", Count: 2},
		{SecurityID: "2317", Count: 1},
		{SecurityID: "2603", Count: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("HotStocks[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestHotStocksCap(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "ptt.json"), testLogger())
	for i := 0; i < 25; i++ {
		s.posts = append(s.posts, boardPost(strconv.Itoa(1000+i), time.Hour, domain.SentimentNeutral))
	}
	if got := s.HotStocks(scanNow, 24*time.Hour); len(got) != 20 {
		t.Errorf("len = %d, want 20", len(got))
	}
}

func TestStockSentiment(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "ptt.json"), testLogger())
	s.posts = []Post{
		boardPost("2330", time.Hour, domain.SentimentPositive),
		boardPost("2330", 2*time.Hour, domain.SentimentPositive),
		boardPost("2330", 3*time.Hour, domain.SentimentNegative),
		boardPost("2330", 40*time.Hour, domain.SentimentNegative),
		boardPost("2317", time.Hour, domain.SentimentNegative),
	}

	got := s.StockSentiment("2330", scanNow, 24*time.Hour)
	if got.TotalPosts != 3 {
		t.Errorf("TotalPosts = %d, want 3", got.TotalPosts)
	}
	if got.Positive != 2 || got.Negative != 1 || got.Neutral != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/1/0", got.Positive, got.Negative, got.Neutral)
	}
	if got.Score != 1 {
		t.Errorf("Score = %d, want 1", got.Score)
	}
	if len(got.Posts) != 3 {
		t.Errorf("len(Posts) = %d, want 3", len(got.Posts))
	}
}

func TestStockSentimentSampleCap(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "ptt.json"), testLogger())
	for i := 0; i < 15; i++ {
		s.posts = append(s.posts, boardPost("2330", time.Hour, domain.SentimentNeutral))
	}

	got := s.StockSentiment("2330", scanNow, 24*time.Hour)
	if got.TotalPosts != 15 {
		t.Errorf("TotalPosts = %d, want 15", got.TotalPosts)
	}
	if len(got.Posts) != 10 {
		t.Errorf("len(Posts) = %d, want 10", len(got.Posts))
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ptt.json")

	s := NewScanner(path, testLogger())
	s.posts = []Post{boardPost("2330", time.Hour, domain.SentimentPositive)}
	s.updatedAt = scanNow
	s.mu.Lock()
	s.saveLocked()
	s.mu.Unlock()

	loaded := NewScanner(path, testLogger())
	loaded.Load()

	posts := loaded.Posts()
	if len(posts) != 1 {
		t.Fatalf("len(posts) = %d, want 1", len(posts))
	}
	if posts[0].Title != "[標的] 2330" || posts[0].Securities[0] != "2330" {
		t.Errorf("post = %+v", posts[0])
	}
	if !loaded.UpdatedAt().Equal(scanNow) {
		t.Errorf("UpdatedAt = %v, want %v", loaded.UpdatedAt(), scanNow)
	}
}

func TestLoadMissingCache(t *testing.T) {
	s := NewScanner(filepath.Join(t.TempDir(), "absent.json"), testLogger())
	s.Load()
	if got := s.Posts(); len(got) != 0 {
		t.Errorf("Posts = %v, want empty", got)
	}
}

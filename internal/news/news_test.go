package news

import (
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"taipulse/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func article(title, source string, published time.Time, securities ...string) Article {
	return Article{
		Title:          title,
		Link:           "https://example.com/" + Normalize(title),
		Source:         source,
		Published:      published,
		Summary:        "摘要 " + title,
		Securities:     securities,
		SentimentLabel: domain.SentimentNeutral,
		Fingerprint:    FingerprintOf(title, "摘要 "+title),
	}
}

func TestNormalizeStripsSpacingAndPunctuation(t *testing.T) {
	a := Normalize("台積電(2330) 大漲！創新高")
	b := Normalize("台積電2330大漲創新高")
	if a != b {
		t.Errorf("Normalize mismatch: %q vs %q", a, b)
	}
}

func TestFingerprintStable(t *testing.T) {
	fp1 := FingerprintOf("台積電 大漲", "盤中衝高")
	fp2 := FingerprintOf("台積電大漲", "盤中 衝高！")
	if fp1 != fp2 {
		t.Errorf("fingerprints differ for equivalent content: %q vs %q", fp1, fp2)
	}
	if len(fp1) != 12 {
		t.Errorf("fingerprint length = %d, want 12", len(fp1))
	}

	other := FingerprintOf("台積電大跌", "盤中走低")
	if other == fp1 {
		t.Error("distinct content produced identical fingerprints")
	}
}

func TestMergeFetchedIdempotent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"), testLogger())
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	batch := []Article{
		article("台積電大漲", "Yahoo 最新新聞", now, "2330"),
		article("鴻海法說會", "中央社 財經", now.Add(-time.Hour), "2317"),
	}

	added, err := s.MergeFetched(batch)
	if err != nil {
		t.Fatalf("MergeFetched: %v", err)
	}
	if added != 2 || s.Len() != 2 {
		t.Fatalf("first merge: added=%d len=%d, want 2/2", added, s.Len())
	}

	added, err = s.MergeFetched(batch)
	if err != nil {
		t.Fatalf("MergeFetched: %v", err)
	}
	if added != 0 || s.Len() != 2 {
		t.Errorf("second merge: added=%d len=%d, want 0/2", added, s.Len())
	}
}

func TestMergeSortsNewestFirst(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"), testLogger())
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	if _, err := s.MergeFetched([]Article{
		article("舊聞", "Yahoo 最新新聞", now.Add(-3*time.Hour)),
		article("最新", "Yahoo 最新新聞", now),
		article("次新", "Yahoo 最新新聞", now.Add(-time.Hour)),
	}); err != nil {
		t.Fatalf("MergeFetched: %v", err)
	}

	snap := s.Snapshot()
	titles := []string{snap.Articles[0].Title, snap.Articles[1].Title, snap.Articles[2].Title}
	want := []string{"最新", "次新", "舊聞"}
	if !reflect.DeepEqual(titles, want) {
		t.Errorf("order = %v, want %v", titles, want)
	}
}

func TestClusterKeyGroupsSameEvent(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	a := article("台積電營收創高 外資喊買", "Yahoo 最新新聞", now, "2330")
	b := article("台積電營收創高，外資喊買", "中央社 財經", now.Add(-time.Minute), "2330")

	if ClusterKey(a) != ClusterKey(b) {
		t.Errorf("keys differ for same event: %q vs %q", ClusterKey(a), ClusterKey(b))
	}

	c := article("台積電營收創高 外資喊買", "Yahoo 最新新聞", now, "2330", "2454")
	if ClusterKey(a) == ClusterKey(c) {
		t.Error("different security sets must not share a cluster key")
	}
}

func TestClusterKeyTruncatesLongTitles(t *testing.T) {
	// First 20 runes identical, divergence after the cut.
	base := "台積電營收創高外資上調目標價至一千兩百元"
	now := time.Now()
	a := article(base+"續創高", "Yahoo 最新新聞", now, "2330")
	b := article(base+"再攀峰", "中央社 財經", now, "2330")

	if ClusterKey(a) != ClusterKey(b) {
		t.Errorf("keys differ beyond the headline prefix: %q vs %q", ClusterKey(a), ClusterKey(b))
	}
}

func TestClusterKeyNoStock(t *testing.T) {
	a := article("大盤震盪整理", "Yahoo 最新新聞", time.Now())
	if got := ClusterKey(a); got[:8] != "no_stock" {
		t.Errorf("ClusterKey = %q, want no_stock prefix", got)
	}
}

func TestClusterKeySecurityOrderInsensitive(t *testing.T) {
	now := time.Now()
	a := article("雙雄齊漲", "Yahoo 最新新聞", now)
	a.Securities = []string{"2330", "2317"}
	b := article("雙雄齊漲", "Yahoo 最新新聞", now)
	b.Securities = []string{"2317", "2330"}

	if ClusterKey(a) != ClusterKey(b) {
		t.Error("cluster key must sort the security set")
	}
}

func TestRepresentativePrefersWeight(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	weights := map[string]float64{"金管會 新聞稿": 1.5, "Yahoo 最新新聞": 1.0}
	weightOf := func(name string) float64 {
		if w, ok := weights[name]; ok {
			return w
		}
		return 1.0
	}

	members := []Article{
		article("重大訊息", "Yahoo 最新新聞", now, "2330"),
		article("重大訊息", "金管會 新聞稿", now.Add(-2*time.Hour), "2330"),
	}
	got := Representative(members, weightOf)
	if got.Source != "金管會 新聞稿" {
		t.Errorf("representative = %q, want the higher-weight source", got.Source)
	}
}

func TestRepresentativeTieBreaksByRecency(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	weightOf := func(string) float64 { return 1.0 }

	members := []Article{
		article("重大訊息", "Yahoo 最新新聞", now.Add(-2*time.Hour), "2330"),
		article("重大訊息", "自由時報 財經", now, "2330"),
		article("重大訊息", "聯合新聞 股市", now.Add(-time.Hour), "2330"),
	}
	got := Representative(members, weightOf)
	if got.Source != "自由時報 財經" {
		t.Errorf("representative = %q, want the most recent on tied weight", got.Source)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	now := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

	first := NewStore(path, testLogger())
	batch := []Article{
		article("台積電大漲", "Yahoo 最新新聞", now, "2330"),
		article("鴻海法說會", "中央社 財經", now.Add(-time.Hour), "2317"),
	}
	batch[0].SentimentLabel = domain.SentimentPositive
	batch[0].SentimentScore = 0.8
	batch[0].Keywords = []string{"大漲"}
	if _, err := first.MergeFetched(batch); err != nil {
		t.Fatalf("MergeFetched: %v", err)
	}

	second := NewStore(path, testLogger())
	second.Load()

	got := second.Snapshot().Articles
	want := first.Snapshot().Articles
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round-trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestCorruptCacheDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt cache: %v", err)
	}

	s := NewStore(path, testLogger())
	s.Load()
	if s.Len() != 0 {
		t.Errorf("Len = %d after corrupt cache, want 0", s.Len())
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(filepath.Join(dir, "cache.json"), testLogger())
	if _, err := s.MergeFetched([]Article{article("測試", "Yahoo 最新新聞", time.Now())}); err != nil {
		t.Fatalf("MergeFetched: %v", err)
	}

	leftovers, err := filepath.Glob(filepath.Join(dir, ".cache-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestReplaceAllDiscardsPrevious(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"), testLogger())
	now := time.Now()

	if _, err := s.MergeFetched([]Article{article("舊資料", "Yahoo 最新新聞", now)}); err != nil {
		t.Fatalf("MergeFetched: %v", err)
	}
	if err := s.ReplaceAll([]Article{article("新資料", "中央社 財經", now)}); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	snap := s.Snapshot()
	if len(snap.Articles) != 1 || snap.Articles[0].Title != "新資料" {
		t.Errorf("store after ReplaceAll = %+v, want only the new batch", snap.Articles)
	}
}

func TestGenerationAdvances(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "cache.json"), testLogger())
	before := s.Generation()
	if _, err := s.MergeFetched([]Article{article("一則", "Yahoo 最新新聞", time.Now())}); err != nil {
		t.Fatalf("MergeFetched: %v", err)
	}
	if s.Generation() == before {
		t.Error("generation should advance on merge")
	}
}

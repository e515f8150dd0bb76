package match

import (
	"reflect"
	"testing"

	"taipulse/internal/refdata"
)

func builtinMatcher() *Matcher {
	return New(refdata.Builtin())
}

func TestExtractCodeAndName(t *testing.T) {
	m := builtinMatcher()

	got := m.Extract("台積電(2330)今日大漲 創新高")
	want := []string{"2330"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v", got, want)
	}
}

func TestExtractRejectsEmbeddedDigits(t *testing.T) {
	m := builtinMatcher()

	if got := m.Extract("編號12330的文件"); len(got) != 0 {
		t.Errorf("Extract(12330) = %v, want no hits", got)
	}
	if got := m.Extract("代碼23305是五位數"); len(got) != 0 {
		t.Errorf("Extract(23305) = %v, want no hits", got)
	}
}

func TestExtractRejectsYearSuffix(t *testing.T) {
	m := builtinMatcher()

	if got := m.Extract("預估2330年完工"); len(got) != 0 {
		t.Errorf("Extract(2330年) = %v, want no hits", got)
	}
	// Same digits without the marker must match.
	if got := m.Extract("買進2330"); !reflect.DeepEqual(got, []string{"2330"}) {
		t.Errorf("Extract(2330) = %v, want [2330]", got)
	}
}

func TestExtractNameBoundary(t *testing.T) {
	m := builtinMatcher()

	// CJK rune after the name extends the token and must block the hit.
	if got := m.Extract("台積電子公司"); len(got) != 0 {
		t.Errorf("Extract(台積電子) = %v, want no hits", got)
	}
	// Digits and punctuation do not extend a token.
	if got := m.Extract("2330台積電"); !reflect.DeepEqual(got, []string{"2330"}) {
		t.Errorf("Extract(2330台積電) = %v, want [2330]", got)
	}
	if got := m.Extract("「長榮」法說會"); !reflect.DeepEqual(got, []string{"2603"}) {
		t.Errorf("Extract(「長榮」) = %v, want [2603]", got)
	}
}

func TestExcludedNamesStillMatchByCode(t *testing.T) {
	secs := append(refdata.Builtin(), refdata.Security{ID: "9151", Name: "中國", Industry: "其他"})
	m := New(secs)

	// Boundary-separated so only the exclusion list can block the hit.
	if got := m.Extract("中國 需求回溫"); len(got) != 0 {
		t.Errorf("Extract(excluded name) = %v, want no hits", got)
	}
	if got := m.Extract("9151盤中爆量"); !reflect.DeepEqual(got, []string{"9151"}) {
		t.Errorf("Extract(9151) = %v, want [9151] via code", got)
	}
}

func TestNameCleaningSuffixes(t *testing.T) {
	m := builtinMatcher()

	// 世芯-KY is stored with its listing suffix; headlines drop it.
	if got := m.Extract("世芯 展望樂觀"); !reflect.DeepEqual(got, []string{"3661"}) {
		t.Errorf("Extract(世芯) = %v, want [3661]", got)
	}
}

func TestShortNamesSkipped(t *testing.T) {
	secs := []refdata.Security{{ID: "1234", Name: "鑫"}}
	m := New(secs)

	if got := m.Extract("鑫公司出貨"); len(got) != 0 {
		t.Errorf("single-rune name should not enter the table, got %v", got)
	}
	if got := m.Extract("看好1234"); !reflect.DeepEqual(got, []string{"1234"}) {
		t.Errorf("Extract(1234) = %v, want code hit", got)
	}
}

func TestExtractMultipleSorted(t *testing.T) {
	m := builtinMatcher()

	got := m.Extract("長榮、陽明、鴻海 齊攻漲停")
	want := []string{"2317", "2603", "2609"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Extract = %v, want %v sorted", got, want)
	}
}

func TestExtractEmptyText(t *testing.T) {
	m := builtinMatcher()
	if got := m.Extract(""); len(got) != 0 {
		t.Errorf("Extract(\"\") = %v, want empty", got)
	}
}

func TestMalformedRowsSkipped(t *testing.T) {
	secs := []refdata.Security{
		{ID: "", Name: "無代號"},
		{ID: "2330", Name: "台積電"},
	}
	m := New(secs)

	if got := m.Extract("無代號 台積電"); !reflect.DeepEqual(got, []string{"2330"}) {
		t.Errorf("Extract = %v, want only the well-formed row", got)
	}
}

package sentiment

// Keyword is one weighted lexicon entry. Order matters: matched keywords
// are reported in lexicon order, so the tables are slices rather than maps.
type Keyword struct {
	Text   string
	Weight float64
}

// PositiveKeywords is the weighted bullish lexicon. Weights: 2.0 strong,
// 1.5 moderate, 1.0 mild.
var PositiveKeywords = []Keyword{
	{"漲停", 2.0}, {"創新高", 2.0}, {"大漲", 2.0}, {"飆漲", 2.0}, {"噴出", 2.0},
	{"轉盈", 2.0}, {"獲利創高", 2.0}, {"營收創高", 2.0}, {"超預期", 2.0}, {"優於預期", 2.0},
	{"目標價調升", 2.0}, {"評等調升", 2.0}, {"法說利多", 2.0},

	{"利多", 1.5}, {"看好", 1.5}, {"上漲", 1.5}, {"成長", 1.5}, {"獲利", 1.5},
	{"營收增", 1.5}, {"年增", 1.5}, {"季增", 1.5}, {"月增", 1.5}, {"買進", 1.5},
	{"加碼", 1.5}, {"擴產", 1.5}, {"訂單", 1.5}, {"出貨", 1.5}, {"突破", 1.5},
	{"反彈", 1.5}, {"回升", 1.5}, {"強勢", 1.5},

	{"動能", 1.0}, {"題材", 1.0}, {"熱門", 1.0}, {"紅盤", 1.0}, {"投資", 1.0},
	{"股利", 1.0}, {"配息", 1.0}, {"殖利率", 1.0}, {"業績", 1.0},

	// US market spillover terms.
	{"道瓊上漲", 1.5}, {"那斯達克漲", 1.5}, {"S&P漲", 1.5}, {"費半漲", 1.5},
	{"降息", 1.5}, {"AI概念", 1.0},
}

// NegativeKeywords is the weighted bearish lexicon.
var NegativeKeywords = []Keyword{
	{"跌停", 2.0}, {"創新低", 2.0}, {"大跌", 2.0}, {"重挫", 2.0}, {"崩盤", 2.0},
	{"轉虧", 2.0}, {"獲利衰退", 2.0}, {"營收衰退", 2.0}, {"低於預期", 2.0}, {"遜於預期", 2.0},
	{"目標價調降", 2.0}, {"評等調降", 2.0}, {"警示", 2.0},

	{"利空", 1.5}, {"看淡", 1.5}, {"下跌", 1.5}, {"衰退", 1.5}, {"虧損", 1.5},
	{"營收減", 1.5}, {"年減", 1.5}, {"季減", 1.5}, {"月減", 1.5}, {"賣出", 1.5},
	{"減碼", 1.5}, {"減產", 1.5}, {"砍單", 1.5}, {"庫存", 1.5}, {"跌破", 1.5},
	{"破底", 1.5}, {"下殺", 1.5}, {"疲軟", 1.5},

	{"風險", 1.0}, {"警訊", 1.0}, {"綠盤", 1.0}, {"萎縮", 1.0}, {"低迷", 1.0},
	{"觀望", 1.0}, {"保守", 1.0}, {"撤資", 1.0},

	// US market spillover terms.
	{"道瓊下跌", 1.5}, {"那斯達克跌", 1.5}, {"S&P跌", 1.5}, {"費半跌", 1.5},
	{"升息", 1.5}, {"衰退疑慮", 1.5}, {"裁員", 1.0},
}

// NegationWords flip the polarity of a keyword appearing shortly after
// them.
var NegationWords = []string{
	"不", "未", "沒", "無", "難", "非", "否認", "否定", "不會", "未必",
	"難以", "無法", "不再", "尚未", "並非", "不見得", "不一定",
}

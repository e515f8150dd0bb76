package refdata

// Builtin returns the baked-in security master rows: the large-cap names
// that dominate Taiwan financial news coverage. Reference CSV rows layer on
// top of (and may override) these.
func Builtin() []Security {
	return []Security{
		{ID: "1101", Name: "台泥", Industry: "水泥"},
		{ID: "1102", Name: "亞泥", Industry: "水泥"},
		{ID: "1216", Name: "統一", Industry: "食品"},
		{ID: "1301", Name: "台塑", Industry: "塑膠"},
		{ID: "1303", Name: "南亞", Industry: "塑膠"},
		{ID: "1326", Name: "台化", Industry: "塑膠"},
		{ID: "2002", Name: "中鋼", Industry: "鋼鐵"},
		{ID: "2303", Name: "聯電", Industry: "半導體"},
		{ID: "2308", Name: "台達電", Industry: "電子零組件"},
		{ID: "2317", Name: "鴻海", Industry: "電子"},
		{ID: "2324", Name: "仁寶", Industry: "電腦週邊"},
		{ID: "2330", Name: "台積電", Industry: "半導體"},
		{ID: "2353", Name: "宏碁", Industry: "電腦週邊"},
		{ID: "2357", Name: "華碩", Industry: "電腦週邊"},
		{ID: "2379", Name: "瑞昱", Industry: "半導體"},
		{ID: "2382", Name: "廣達", Industry: "電腦週邊"},
		{ID: "2409", Name: "友達", Industry: "光電"},
		{ID: "2412", Name: "中華電", Industry: "電信"},
		{ID: "2454", Name: "聯發科", Industry: "半導體"},
		{ID: "2603", Name: "長榮", Industry: "航運"},
		{ID: "2609", Name: "陽明", Industry: "航運"},
		{ID: "2615", Name: "萬海", Industry: "航運"},
		{ID: "2880", Name: "華南金", Industry: "金融"},
		{ID: "2881", Name: "富邦金", Industry: "金融"},
		{ID: "2882", Name: "國泰金", Industry: "金融"},
		{ID: "2884", Name: "玉山金", Industry: "金融"},
		{ID: "2885", Name: "元大金", Industry: "金融"},
		{ID: "2886", Name: "兆豐金", Industry: "金融"},
		{ID: "2887", Name: "台新金", Industry: "金融"},
		{ID: "2891", Name: "中信金", Industry: "金融"},
		{ID: "2892", Name: "第一金", Industry: "金融"},
		{ID: "3008", Name: "大立光", Industry: "光電"},
		{ID: "3034", Name: "聯詠", Industry: "半導體"},
		{ID: "3231", Name: "緯創", Industry: "電腦週邊"},
		{ID: "3443", Name: "創意", Industry: "半導體"},
		{ID: "3481", Name: "群創", Industry: "光電"},
		{ID: "3661", Name: "世芯-KY", Industry: "半導體"},
		{ID: "3711", Name: "日月光投控", Industry: "半導體"},
		{ID: "4938", Name: "和碩", Industry: "電腦週邊"},
		{ID: "5269", Name: "祥碩", Industry: "半導體"},
		{ID: "5274", Name: "信驊", Industry: "半導體"},
		{ID: "6415", Name: "矽力-KY", Industry: "半導體"},
	}
}

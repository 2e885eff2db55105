package dictionary

var defaultStopWords = []string{
	"的", "了", "是", "有", "在", "和", "我", "你", "他", "想", "要", "看", "找", "帮",
	"推荐", "给", "一下", "一部", "吗", "呢", "啊", "吧", "请", "能", "可以", "什么",
}

var defaultGenres = []Genre{
	{Key: "科幻", Synonyms: []string{"科幻片", "科幻电影", "sci-fi", "太空", "未来"}},
	{Key: "动作", Synonyms: []string{"动作片", "打斗", "格斗", "武打", "功夫"}},
	{Key: "喜剧", Synonyms: []string{"喜剧片", "搞笑", "幽默", "轻松"}},
	{Key: "爱情", Synonyms: []string{"爱情片", "浪漫", "恋爱", "情感"}},
	{Key: "恐怖", Synonyms: []string{"恐怖片", "惊悚", "吓人", "鬼片"}},
	{Key: "悬疑", Synonyms: []string{"悬疑片", "推理", "烧脑", "解密"}},
	{Key: "动画", Synonyms: []string{"动画片", "动漫", "卡通"}},
	{Key: "战争", Synonyms: []string{"战争片", "军事", "二战", "抗战"}},
	{Key: "犯罪", Synonyms: []string{"犯罪片", "黑帮", "警匪"}},
}

var defaultQuality = []Quality{
	{Key: "好看", Term: "高分"},
	{Key: "经典", Term: "经典"},
	{Key: "热门", Term: "热门"},
	{Key: "新片", Term: "最新"},
	{Key: "高分", Term: "高分"},
	{Key: "豆瓣", Term: "高分"},
}

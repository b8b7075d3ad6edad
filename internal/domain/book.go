package domain

// Book 是从详情页解析得到的完整书目记录。
//
// 约束：
// - Authors 保持来源顺序；译者（若有）追加在最后
// - PublishYear==0 表示缺失（有效年份只会落在 [1000, 2999]）
// - Edition/Notes 为空表示缺失
// - 要么完整构造，要么不存在：不会返回半成品
type Book struct {
	Title       string   `json:"title" yaml:"title"`
	Authors     []string `json:"authors" yaml:"authors"`
	ISBN        string   `json:"isbn" yaml:"isbn"`
	Publisher   string   `json:"publisher" yaml:"publisher"`
	PublishYear int      `json:"publish_year,omitempty" yaml:"publish_year,omitempty"`
	Edition     string   `json:"edition,omitempty" yaml:"edition,omitempty"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// CoverImageRef 是封面图 URL（已相对站点根解析，并带上尺寸参数）。
type CoverImageRef string

// Result 是一条搜索结果：书目 + 可选封面。
type Result struct {
	Book  Book          `json:"book" yaml:"book"`
	Cover CoverImageRef `json:"cover,omitempty" yaml:"cover,omitempty"`
	// Website 是稳定的详情页链接；目前的站点不提供，始终为空。
	Website string `json:"website,omitempty" yaml:"website,omitempty"`
}

// ResultStub 是搜索结果列表中的一条，仅足以定位详情页。
// 解析后立即被消费，不持久化。
type ResultStub struct {
	Title     string
	Authors   []string
	Publisher string
	DetailURL string
}

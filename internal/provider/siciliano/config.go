package siciliano

import (
	"strings"

	"github.com/John-Robertt/bookmeta/internal/textenc"
)

const (
	// DefaultBaseURL 是站点根地址。
	DefaultBaseURL = "http://www.siciliano.com.br"
	// DefaultCoverSuffix 选择较大尺寸的封面图。
	DefaultCoverSuffix = "tam=2"
)

// searchPath 是固定的搜索 URL 模板：
// 第 1 个 %s 是编码后的搜索词；第 2、3 个都是类型代码（一次作为过滤条件，一次作为排序键）。
const searchPath = "/pesquisaweb/pesquisaweb.dll/pesquisa?" +
	"&FIL_ID=102" +
	"&PALAVRASN1=%s" +
	"&FILTRON1=%s" +
	"&ORDEMN1=%s" +
	"&ESTRUTN1=0301&ORDEMN2=E"

// Config 是 provider 的静态配置；构造后不再修改。
type Config struct {
	// BaseURL 允许指向镜像或测试服务器；为空时使用 DefaultBaseURL。
	BaseURL string
	// Charset 是站点期望的查询编码与页面编码；为空时使用 ISO-8859-1。
	Charset string
	// CoverSuffix 是追加到封面 URL 的查询参数；为空时使用 DefaultCoverSuffix。
	CoverSuffix string
}

func (c Config) baseURL() string {
	u := strings.TrimSpace(c.BaseURL)
	if u == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

func (c Config) charset() string {
	if s := strings.TrimSpace(c.Charset); s != "" {
		return s
	}
	return textenc.DefaultCharset
}

func (c Config) coverSuffix() string {
	if s := strings.TrimSpace(c.CoverSuffix); s != "" {
		return strings.TrimLeft(s, "?&")
	}
	return DefaultCoverSuffix
}

// resolve 把站内链接解析为绝对 URL：只有 href 不以 '/' 开头时才补 '/'。
func (c Config) resolve(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if strings.HasPrefix(href, "//") {
		return "http:" + href
	}
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return c.baseURL() + href
}

// coverURL 把脚本中找到的图片路径拼成最终的 CoverImageRef。
//
// 尺寸参数的分隔符取决于路径：已带查询串时用 '&'，否则用 '?'。
// 例如 "/imagem/imagem.dll?pro_id=1" → "...?pro_id=1&tam=2"，"/imagem/x.jpg" → ".../x.jpg?tam=2"。
func (c Config) coverURL(path string) string {
	u := c.resolve(path)
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + c.coverSuffix()
}

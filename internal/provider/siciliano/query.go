package siciliano

import (
	"fmt"
	"net/url"

	"github.com/John-Robertt/bookmeta/internal/domain"
	"github.com/John-Robertt/bookmeta/internal/isbn"
)

// typeCode 把搜索类型映射为站点的单字母代码；未知类型按关键字处理。
func typeCode(k domain.SearchKind) string {
	switch k {
	case domain.KindISBN:
		return "G"
	case domain.KindTitle:
		return "A"
	case domain.KindAuthor:
		return "B"
	default:
		return "X"
	}
}

// SearchURL 构造一次搜索请求的 URL（纯函数，无网络副作用）。
//
// term 必须已经转码为站点编码（见 textenc.Transcode）。
// ISBN：attempt 1 使用 13 位形式，attempt 2 使用 10 位形式；其他类型忽略 attempt。
func (c Config) SearchURL(kind domain.SearchKind, term string, attempt int) (string, error) {
	var encoded string
	if kind == domain.KindISBN {
		var (
			s   string
			err error
		)
		switch attempt {
		case 1:
			s, err = isbn.To13(term)
		case 2:
			s, err = isbn.To10(term)
		default:
			return "", fmt.Errorf("ISBN 搜索只有 2 次尝试，实际 attempt=%d", attempt)
		}
		if err != nil {
			return "", err
		}
		encoded = s
	} else {
		encoded = url.QueryEscape(term)
	}

	code := typeCode(kind)
	return c.baseURL() + fmt.Sprintf(searchPath, encoded, code, code), nil
}

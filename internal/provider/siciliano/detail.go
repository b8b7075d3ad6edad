package siciliano

import (
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/bookmeta/internal/domain"
	"github.com/John-Robertt/bookmeta/internal/textnorm"
)

// 详情页字段表中的 key（已规范化：只保留基本拉丁字母）。
const (
	keyISBN       = "ISBN"
	keyTranslator = "Tradutor"
	keyEdition    = "Edio" // "Edição"
)

// ErrMalformedPage 表示详情页结构不符合预期。
// 这是软失败：调用方应理解为“这个 URL 没有产出记录”，而不是致命错误。
var ErrMalformedPage = errors.New("malformed detail page")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedPage, fmt.Sprintf(format, args...))
}

// parseDetail 把一个详情页解析为完整的 Result。
//
// 约束：
// - 纯函数：相同输入 => 相同输出（没有跨调用的可变状态）
// - 任一必需部分出错时整条记录丢弃，返回 ErrMalformedPage；不会返回半成品
// - publisher 取自 stub：详情页并不可靠地重复它
func (c Config) parseDetail(doc *goquery.Document, stub domain.ResultStub) (domain.Result, error) {
	titleSel := doc.Find("div.titulo h2.produto").First()
	if titleSel.Length() == 0 {
		return domain.Result{}, fmt.Errorf("%w: %w: 缺少标题元素 div.titulo h2.produto", ErrMalformedPage, domain.ErrNoResults)
	}
	title := firstNonEmptyText(titleSel)
	if title == "" {
		return domain.Result{}, malformed("标题为空")
	}

	var authors []string
	if sel := doc.Find("div.titulo h3.autor").First(); sel.Length() > 0 {
		a, err := textnorm.ReorderAuthors(firstNonEmptyText(sel))
		if err != nil {
			return domain.Result{}, malformed("作者：%v", err)
		}
		authors = a
	}

	fields := textnorm.FieldMap(textLines(doc.Find("div#tab-caracteristica")))
	// 译者条目存在且非空时追加为最后一位作者；"Tradutor:" 后为空视同缺失。
	if tr, ok := fields[keyTranslator]; ok && tr != "" {
		authors = append(authors, tr)
	}

	if authors == nil {
		authors = []string{}
	}

	edition := fields[keyEdition]
	year, _ := textnorm.PublishYear(edition)

	book := domain.Book{
		Title:       title,
		Authors:     authors,
		ISBN:        fields[keyISBN],
		Publisher:   stub.Publisher,
		PublishYear: year,
		Edition:     edition,
	}

	if sel := doc.Find("div#tab-sinopse").First(); sel.Length() > 0 {
		book.Notes = textnorm.Reflow(textnorm.CollapseSynopsis(firstNonEmptyText(sel)))
	}

	var cover domain.CoverImageRef
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		p, ok := textnorm.ScriptImagePath(s.Text())
		if !ok {
			return true
		}
		cover = domain.CoverImageRef(c.coverURL(p))
		return false
	})

	return domain.Result{Book: book, Cover: cover}, nil
}

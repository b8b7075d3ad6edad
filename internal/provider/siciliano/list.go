package siciliano

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/bookmeta/internal/domain"
	"github.com/John-Robertt/bookmeta/internal/textnorm"
)

// 结果列表的页面结构（每个条目一个块）：
//
//	<td class="normal">                                    <- 块：pesquisa-item-lista-conteudo 的父元素
//	  <a href="/livro/...">                                <- 标题/链接元素：vitrine_nome_produto 的父元素
//	    <span class="vitrine_nome_produto">1. Título</span><br>
//	    Sobrenome, Nome; Sobrenome, Nome / EDITORA
//	  </a>
//	  <div class="pesquisa-item-lista-conteudo">...</div> <- 价格等，不解析
//	</td>

// ItemError 描述一个被跳过的结果条目（软失败，只用于日志/指标）。
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string { return fmt.Sprintf("条目 #%d: %v", e.Index, e.Err) }

func (e *ItemError) Unwrap() error { return e.Err }

// parseList 按页面顺序提取结果条目。
//
// 任一条目结构不符（缺元素、文本形状不对）都只跳过该条目，并把原因放进 skipped；
// 不会产出半成品 stub，也不会让整页失败。
func (c Config) parseList(doc *goquery.Document) (stubs []domain.ResultStub, skipped []error) {
	doc.Find("div.pesquisa-item-lista-conteudo").Parent().Each(func(i int, block *goquery.Selection) {
		stub, err := c.parseListItem(block)
		if err != nil {
			skipped = append(skipped, &ItemError{Index: i, Err: err})
			return
		}
		stubs = append(stubs, stub)
	})
	return stubs, skipped
}

func (c Config) parseListItem(block *goquery.Selection) (domain.ResultStub, error) {
	span := block.Find("span.vitrine_nome_produto").First()
	if span.Length() == 0 {
		return domain.ResultStub{}, errors.New("缺少 span.vitrine_nome_produto")
	}

	// 标题与“作者 / 出版社”挤在同一个元素里，中间隔一个换行；只按第一个换行切分。
	text := strings.TrimSpace(renderText(span.Parent()))
	titleLine, rest, ok := strings.Cut(text, "\n")
	if !ok {
		return domain.ResultStub{}, fmt.Errorf("标题元素缺少第二行：%q", text)
	}
	title := textnorm.StripOrdinal(titleLine)
	if title == "" {
		return domain.ResultStub{}, errors.New("标题为空")
	}

	byline, _, _ := strings.Cut(strings.TrimSpace(rest), "\n")
	authorsPart, publisherPart, ok := strings.Cut(byline, "/")
	if !ok {
		return domain.ResultStub{}, fmt.Errorf("第二行不是 \"autores / editora\" 形式：%q", byline)
	}
	authors, err := textnorm.ReorderAuthors(strings.TrimSpace(authorsPart))
	if err != nil {
		return domain.ResultStub{}, err
	}

	href, ok := block.Find("a").First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return domain.ResultStub{}, errors.New("缺少详情页链接")
	}

	return domain.ResultStub{
		Title:     title,
		Authors:   authors,
		Publisher: textnorm.Capitalize(publisherPart),
		DetailURL: c.resolve(href),
	}, nil
}

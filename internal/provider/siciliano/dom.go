package siciliano

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/bookmeta/internal/textnorm"
)

const textNode = "#text"

// firstNonEmptyText 返回元素直接子节点中第一个非空白的文本节点（已 trim）。
// 内联格式子元素（<b>、<i> 等）只是被跳过，不参与拼接。
func firstNonEmptyText(sel *goquery.Selection) string {
	var out string
	sel.First().Contents().EachWithBreak(func(_ int, n *goquery.Selection) bool {
		if goquery.NodeName(n) != textNode {
			return true
		}
		out = strings.TrimSpace(n.Text())
		return out == ""
	})
	return out
}

// textLines 把“文本 + <br> 交错”的块切成行；trim 后丢弃空行。
func textLines(sel *goquery.Selection) []string {
	return textnorm.SplitLines(renderText(sel))
}

// renderText 递归渲染元素文本，<br> 渲染为 '\n'（goquery 的 Text() 会丢掉 <br>）。
func renderText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(s *goquery.Selection)
	walk = func(s *goquery.Selection) {
		s.Contents().Each(func(_ int, n *goquery.Selection) {
			switch goquery.NodeName(n) {
			case textNode:
				b.WriteString(n.Text())
			case "br":
				b.WriteByte('\n')
			case "script", "style", "#comment":
				// 不是可见文本
			default:
				walk(n)
			}
		})
	}
	walk(sel.First())
	return b.String()
}

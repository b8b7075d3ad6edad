// Package textnorm 收纳解析器共用的纯文本规整规则。
//
// 约束：这里的函数都是纯函数（相同输入 => 相同输出），不依赖 DOM 类型，
// 以便对每条规则单独做测试。
package textnorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ReorderAuthors 把 "Sobrenome, Nome; Sobrenome, Nome" 转为 ["Nome Sobrenome", ...]。
//
// 规则：
// - 按 ';' 切分，保持输入顺序，不排序
// - 每段只在第一个 ',' 处切分
// - 空段跳过；不含 ',' 的段视为形状错误
func ReorderAuthors(s string) ([]string, error) {
	var out []string
	for _, entry := range strings.Split(s, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		last, first, ok := strings.Cut(entry, ",")
		if !ok {
			return nil, fmt.Errorf("作者 %q 不是 \"Sobrenome, Nome\" 形式", entry)
		}
		name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
		if name == "" {
			continue
		}
		out = append(out, name)
	}
	return out, nil
}

// CanonicalKey 只保留基本拉丁字母（A-Z a-z）。
// 站点对字段名中重音字符的编码并不一致，这样 "Edição" 总能落到 "Edio"。
func CanonicalKey(k string) string {
	var b strings.Builder
	b.Grow(len(k))
	for i := 0; i < len(k); i++ {
		c := k[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// FieldMap 把 "Chave: Valor" 行转为 map（key 已规范化，value 已 trim）。
//
// - 只在第一个 ':' 处切分，value 中的 ':' 原样保留
// - 没有 ':' 的行忽略
// - 规范化后同名的 key：后出现的覆盖先出现的
func FieldMap(lines []string) map[string]string {
	m := make(map[string]string, len(lines))
	for _, line := range lines {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := CanonicalKey(k)
		if key == "" {
			continue
		}
		m[key] = strings.TrimSpace(v)
	}
	return m
}

// SplitLines 按 '\n' 切行，trim 后丢弃空行。
func SplitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// yearRE 匹配恰好 4 位数字（两侧不是数字），首位限定 1 或 2。
var yearRE = regexp.MustCompile(`(?:^|[^0-9])([12][0-9]{3})(?:[^0-9]|$)`)

// PublishYear 从版次文本中取第一个落在 [1000, 2999] 的 4 位数字串。
func PublishYear(edition string) (int, bool) {
	m := yearRE.FindStringSubmatch(edition)
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// CollapseSynopsis 把 CRLF 换成空格，再把连续空格压成一个。
func CollapseSynopsis(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}

// ReflowGroup 是 Reflow 每行的 token 数。
const ReflowGroup = 10

// Reflow 按空白切 token，每 ReflowGroup 个一行。
//
// 输出格式是兼容性契约（逐字节）：
// 每个 token 后跟一个空格，但每组第 10 个 token 后跟 "\r\n"。
// 因此最后一组不满 10 个时，结尾会保留一个空格。
func Reflow(s string) string {
	tokens := strings.Fields(s)
	var b strings.Builder
	for i, tok := range tokens {
		b.WriteString(tok)
		if (i+1)%ReflowGroup == 0 {
			b.WriteString("\r\n")
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

var imgSrcRE = regexp.MustCompile(`ImgSrc\[[0-9]\]\s*=\s*"([^"]+)"`)

// ScriptImagePath 逐行扫描脚本文本，返回第一处 ImgSrc[<d>]="<path>" 的 path。
// path 不以 '/' 开头时补上。
func ScriptImagePath(script string) (string, bool) {
	for _, line := range strings.Split(script, "\n") {
		m := imgSrcRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p := strings.TrimSpace(m[1])
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		return p, true
	}
	return "", false
}

var ordinalRE = regexp.MustCompile(`^[0-9]+\.\s*`)

// StripOrdinal 去掉结果列表标题前的序号（例如 "12. "）。
func StripOrdinal(title string) string {
	return strings.TrimSpace(ordinalRE.ReplaceAllString(strings.TrimSpace(title), ""))
}

// Capitalize 首字母大写、其余小写（"EDITORA GLOBO" -> "Editora globo"）。
func Capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(s)
	head := strings.ToUpper(string(r))
	// Caser 有状态，不能跨 goroutine 共享：每次新建。
	return head + cases.Lower(language.BrazilianPortuguese).String(s[size:])
}

package run

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/John-Robertt/bookmeta/internal/domain"
)

// maxLineBytes 是查询文件单行的上限（远大于任何合理的书名/ISBN）。
const maxLineBytes = 64 << 10

// Query 是批量输入中的一行。
type Query struct {
	// Line 是在输入中的行号（从 1 开始）。
	Line int
	// Raw 是去掉首尾空白后的原始行。
	Raw       string
	Criterion domain.SearchCriterion
	// Err 非空表示该行无法解析；Execute 会把它记为 invalid_query 而不发请求。
	Err error
}

// ReadQueries 读取批量查询文件：每行一条 `kind:term`（省略 kind 视为 keyword）。
// 空行与以 '#' 开头的注释行被跳过；UTF-8 BOM 被忽略。
func ReadQueries(r io.Reader) ([]Query, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)

	var out []Query
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Text()
		if line == 1 {
			raw = strings.TrimPrefix(raw, "\ufeff")
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		c, err := domain.ParseQuery(raw)
		out = append(out, Query{Line: line, Raw: raw, Criterion: c, Err: err})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("读取查询失败（第 %d 行附近）：%w", line+1, err)
	}
	return out, nil
}

package domain

import (
	"fmt"
	"strings"
)

// SearchKind 是一次搜索的类型标签。
// 只有 QueryBuilder 与 SearchOrchestrator 按它分支；解析器与类型无关。
type SearchKind int

const (
	KindKeyword SearchKind = iota
	KindISBN
	KindTitle
	KindAuthor
)

func (k SearchKind) String() string {
	switch k {
	case KindISBN:
		return "isbn"
	case KindTitle:
		return "title"
	case KindAuthor:
		return "author"
	default:
		return "keyword"
	}
}

// ParseKind 解析 CLI/批量文件中的类型名（大小写不敏感）。
func ParseKind(s string) (SearchKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "isbn", "ean":
		return KindISBN, nil
	case "title":
		return KindTitle, nil
	case "author", "authors":
		return KindAuthor, nil
	case "keyword", "":
		return KindKeyword, nil
	default:
		return KindKeyword, fmt.Errorf("未知搜索类型：%q（可选 isbn|title|author|keyword）", s)
	}
}

// SearchCriterion 是调用方给出的搜索条件。Text 由调用方保证非空。
type SearchCriterion struct {
	Kind SearchKind
	Text string
}

// ParseQuery 解析批量文件中的一行：`kind:term`，省略 kind 时视为 keyword。
//
// 注意：只有冒号前是已知类型名时才当作前缀，避免把 "Título: subtítulo" 这类关键字切坏。
func ParseQuery(line string) (SearchCriterion, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return SearchCriterion{}, fmt.Errorf("查询为空")
	}
	if prefix, rest, ok := strings.Cut(line, ":"); ok {
		if k, err := ParseKind(prefix); err == nil && strings.TrimSpace(prefix) != "" {
			rest = strings.TrimSpace(rest)
			if rest == "" {
				return SearchCriterion{}, fmt.Errorf("查询 %q 缺少搜索词", line)
			}
			return SearchCriterion{Kind: k, Text: rest}, nil
		}
	}
	return SearchCriterion{Kind: KindKeyword, Text: line}, nil
}

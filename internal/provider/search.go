package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/bookmeta/internal/domain"
)

const (
	StageLookup = "lookup"
	StageSearch = "search"
)

// Error 是 provider 阶段的可追溯错误。
// 上层可以据此把失败归类为 no_results / fetch_failed，并写入 report。
type Error struct {
	Provider string // provider name（小写）
	Stage    string // "lookup" 或 "search"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Search 在注册表中找到 name 对应的 provider 并执行一次搜索。
//
// 空结果且无错误原样返回（非 nil 空切片）：是否算“没有结果”由调用方决定。
//
// 不做跨 provider 回退：聚合多个站点的结果不在本工具范围内。
func Search(ctx context.Context, reg Registry, name string, c domain.SearchCriterion) ([]domain.Result, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, fmt.Errorf("provider 不能为空")
	}
	if strings.TrimSpace(c.Text) == "" {
		return nil, fmt.Errorf("搜索词不能为空")
	}

	p, ok := reg.Get(name)
	if !ok {
		return nil, &Error{Provider: name, Stage: StageLookup, Err: fmt.Errorf("provider 未注册：%q（可选：%s）", name, strings.Join(reg.Names(), ", "))}
	}

	results, err := p.Search(ctx, c)
	if err != nil {
		return nil, &Error{Provider: name, Stage: StageSearch, Err: err}
	}
	if results == nil {
		results = []domain.Result{}
	}
	for i := range results {
		if u, ok := p.Permalink(results[i].Book); ok {
			results[i].Website = u
		}
	}
	return results, nil
}

// IsNoResults 判断 err 是否表示“没有结果”（而不是传输/配置错误）。
func IsNoResults(err error) bool {
	return errors.Is(err, domain.ErrNoResults)
}

package provider

import (
	"context"

	"github.com/John-Robertt/bookmeta/internal/domain"
)

// Provider 把“站点变化”限制在 provider 包内部；核心流程只依赖统一接口与稳定的 domain.Result。
//
// 约束：
// - Search 不做缓存、不做网络层重试（这些由 http 层统一实现）
// - Search 失败只有两类：domain.ErrNoResults（可能被包装）或原样透传的传输错误
// - 实例只持有静态配置，不持有请求级状态；可并发调用
type Provider interface {
	Name() string
	Search(ctx context.Context, c domain.SearchCriterion) ([]domain.Result, error)
	// Permalink 返回书目在站点上的稳定链接；站点不提供时 ok=false。
	Permalink(b domain.Book) (url string, ok bool)
}

// Fetcher 抓取一个 URL 的原始内容（不做解码）。
// 实现可以返回 *HTTPStatusError；provider 不捕获传输错误。
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc 让普通函数满足 Fetcher（主要用于测试）。
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) { return f(ctx, url) }

// Package siciliano 实现 Livraria Siciliano（巴西）目录的搜索与页面解析。
package siciliano

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/bookmeta/internal/domain"
	"github.com/John-Robertt/bookmeta/internal/isbn"
	"github.com/John-Robertt/bookmeta/internal/logx"
	"github.com/John-Robertt/bookmeta/internal/metrics"
	providerx "github.com/John-Robertt/bookmeta/internal/provider"
	"github.com/John-Robertt/bookmeta/internal/textenc"
)

// Name 是注册表中的 provider 名。
const Name = "siciliano"

var _ providerx.Provider = Provider{}

// Provider 实现 Siciliano 的搜索流程：构造查询 -> 抓列表 -> 解析列表 -> 逐条抓详情 -> 解析详情。
//
// 约束：
// - 实例只持有静态配置与协作者；每次 Search 互不影响，可并发调用
// - 单次 Search 内部严格串行：一次列表抓取，然后按列表顺序逐个抓详情
// - 解析错误在最小范围内被吞掉（一个条目 / 一个详情页），只会让结果变少
type Provider struct {
	Config  Config
	Fetcher providerx.Fetcher
	Log     *logrus.Entry
	Metrics *metrics.Metrics
}

func (Provider) Name() string { return Name }

// Permalink 站点的详情页链接基于内部商品 id，不是稳定的 ISBN 链接：始终返回 ok=false。
func (Provider) Permalink(domain.Book) (string, bool) { return "", false }

// Search 执行一次搜索。
//
// 状态机：
// - 搜索词无法转为站点编码 => NoResults，不发任何请求
// - attempt 1 列表为空：ISBN 类型再试一次（10 位形式），其他类型直接 NoResults
// - attempt 2 列表仍为空 => NoResults
// - ISBN 只取第一条详情；其他类型逐条解析，失败的条目静默丢弃
//
// 列表非空但详情页全部被丢弃时返回空切片与 nil：结果只是“更少”，不是 NoResults。
// 列表页的传输错误原样返回（不包装为 NoResults）。
func (p Provider) Search(ctx context.Context, c domain.SearchCriterion) ([]domain.Result, error) {
	if p.Fetcher == nil {
		return nil, errors.New("fetcher 不能为空")
	}
	kind := c.Kind.String()
	log := logx.OrDiscard(p.Log).WithFields(logrus.Fields{
		"provider": Name,
		"kind":     kind,
		"term":     c.Text,
	})

	results, err := p.search(ctx, log, c)
	switch {
	case err == nil && len(results) == 0:
		p.Metrics.ObserveSearch(Name, kind, "empty")
		log.Info("列表有条目，但详情页都未能解析")
	case err == nil:
		p.Metrics.ObserveSearch(Name, kind, "found")
		log.WithField("results", len(results)).Info("搜索完成")
	case errors.Is(err, domain.ErrNoResults):
		p.Metrics.ObserveSearch(Name, kind, "no_results")
		log.WithError(err).Info("没有结果")
	default:
		p.Metrics.ObserveSearch(Name, kind, "error")
	}
	return results, err
}

func (p Provider) search(ctx context.Context, log *logrus.Entry, c domain.SearchCriterion) ([]domain.Result, error) {
	term, err := textenc.Transcode(c.Text, p.Config.charset())
	if err != nil {
		// 无法表示的查询不可能在该站点命中任何内容。
		return nil, fmt.Errorf("%w: %v", domain.ErrNoResults, err)
	}

	var stubs []domain.ResultStub
	for attempt := 1; ; attempt++ {
		stubs, err = p.list(ctx, log, c.Kind, term, attempt)
		if err != nil {
			if attempt == 2 && errors.Is(err, isbn.ErrNoISBN10) {
				return nil, fmt.Errorf("%w: %v", domain.ErrNoResults, err)
			}
			return nil, err
		}
		if len(stubs) > 0 {
			break
		}
		// 站点有的记录按 10 位索引、有的按 13 位索引；只有 ISBN 搜索存在这种歧义。
		if c.Kind != domain.KindISBN || attempt >= 2 {
			return nil, fmt.Errorf("%w: attempts=%d", domain.ErrNoResults, attempt)
		}
		log.WithField("attempt", attempt+1).Debug("ISBN-13 无结果，改用 ISBN-10 重试")
	}

	if c.Kind == domain.KindISBN {
		r, err := p.detail(ctx, stubs[0])
		if err != nil {
			if errors.Is(err, ErrMalformedPage) {
				p.softFailure(log, "detail", stubs[0].DetailURL, err)
				return []domain.Result{}, nil
			}
			return nil, err
		}
		return []domain.Result{r}, nil
	}

	out := make([]domain.Result, 0, len(stubs))
	for _, stub := range stubs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := p.detail(ctx, stub)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// 单个详情页失败（抓取或解析）不影响其余条目。
			p.softFailure(log, "detail", stub.DetailURL, err)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// list 执行一次列表查询并解析。
func (p Provider) list(ctx context.Context, log *logrus.Entry, kind domain.SearchKind, term string, attempt int) ([]domain.ResultStub, error) {
	u, err := p.Config.SearchURL(kind, term, attempt)
	if err != nil {
		return nil, err
	}
	p.Metrics.ObserveAttempt(Name, kind.String(), attempt)
	log.WithFields(logrus.Fields{"attempt": attempt, "url": u}).Debug("搜索请求")

	doc, err := p.fetchDocument(ctx, "list", u)
	if err != nil {
		return nil, err
	}
	stubs, skipped := p.Config.parseList(doc)
	for _, e := range skipped {
		p.softFailure(log, "list", u, e)
	}
	return stubs, nil
}

// detail 抓取并解析一个详情页。解析错误包装为 ErrMalformedPage；抓取错误原样返回。
func (p Provider) detail(ctx context.Context, stub domain.ResultStub) (domain.Result, error) {
	doc, err := p.fetchDocument(ctx, "detail", stub.DetailURL)
	if err != nil {
		return domain.Result{}, err
	}
	return p.Config.parseDetail(doc, stub)
}

func (p Provider) fetchDocument(ctx context.Context, page, u string) (*goquery.Document, error) {
	started := time.Now()
	b, err := p.Fetcher.Fetch(ctx, u)
	p.Metrics.ObserveFetch(Name, page, time.Since(started))
	if err != nil {
		return nil, err
	}
	return p.Config.document(b)
}

// document 把站点编码的页面字节解码为 UTF-8 后交给 goquery。
// 解码/解析失败视为页面结构问题（软失败），而不是传输错误。
func (c Config) document(page []byte) (*goquery.Document, error) {
	r, err := textenc.NewDecodingReader(page, c.charset())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPage, err)
	}
	return doc, nil
}

// ParseListPage 解析一个（站点编码的）结果列表页；被跳过的条目通过 skipped 返回。
func (c Config) ParseListPage(page []byte) (stubs []domain.ResultStub, skipped []error, err error) {
	doc, err := c.document(page)
	if err != nil {
		return nil, nil, err
	}
	stubs, skipped = c.parseList(doc)
	return stubs, skipped, nil
}

// ParseDetailPage 解析一个（站点编码的）详情页。
func (c Config) ParseDetailPage(page []byte, stub domain.ResultStub) (domain.Result, error) {
	doc, err := c.document(page)
	if err != nil {
		return domain.Result{}, err
	}
	return c.parseDetail(doc, stub)
}

func (p Provider) softFailure(log *logrus.Entry, stage, u string, err error) {
	p.Metrics.ObserveSoftFailure(Name, stage)
	log.WithFields(logrus.Fields{"stage": stage, "url": u}).WithError(err).Warn("跳过无法解析的条目")
}

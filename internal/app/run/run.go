package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/bookmeta/internal/config"
	"github.com/John-Robertt/bookmeta/internal/domain"
	"github.com/John-Robertt/bookmeta/internal/isbn"
	"github.com/John-Robertt/bookmeta/internal/logx"
	"github.com/John-Robertt/bookmeta/internal/provider"
)

// Execute 执行一批相互独立的搜索，并返回对外稳定的 RunReport。
// 该函数把错误“降级”为 item 级失败（单条失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, reg provider.Registry, source string, queries []Query) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, reg, source, queries, nil, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 输出进度，以及 logger 记录每条结果。
//
// 并发模型：按查询并发（worker pool，大小为 eff.Concurrency），单次搜索内部串行。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, reg provider.Registry, source string, queries []Query, obs Observer, log *logrus.Entry) domain.RunReport {
	started := time.Now().UTC()
	log = logx.OrDiscard(log).WithField("component", "run")

	if obs != nil {
		obs.OnStart(eff, source)
	}

	rr := domain.RunReport{
		Provider:  eff.Provider,
		Source:    source,
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, len(queries)),
	}

	valid := make([]Query, 0, len(queries))
	for _, q := range queries {
		if q.Err != nil {
			rr.Items = append(rr.Items, invalidItem(q))
			continue
		}
		valid = append(valid, q)
	}
	if obs != nil {
		obs.OnPhaseDone("read", map[string]any{
			"queries": len(queries),
			"invalid": len(queries) - len(valid),
		}, time.Since(started))
	}

	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(valid) && len(valid) > 0 {
		workers = len(valid)
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers":     workers,
			"total_items": len(valid),
		}, 0)
	}

	type execResult struct {
		idx int
		res domain.ItemResult
		dur time.Duration
	}

	jobs := make(chan int)
	results := make(chan execResult, len(valid))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				oneStarted := time.Now()
				r := SearchOne(ctx, eff.Provider, reg, valid[i])
				results <- execResult{idx: i, res: r, dur: time.Since(oneStarted)}
			}
		}()
	}

	go func() {
		defer func() {
			close(jobs)
			wg.Wait()
			close(results)
		}()
		for i := range valid {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	seen := make([]bool, len(valid))
	done := 0
	for it := range results {
		done++
		seen[it.idx] = true
		rr.Items = append(rr.Items, it.res)
		logItem(log, it.res, it.dur)
		if obs != nil {
			obs.OnItemDone(done, len(valid), valid[it.idx], it.res, it.dur)
		}
	}

	// ctx 取消后未派发的查询也要出现在报告中（否则用户无法区分“没跑”与“没结果”）。
	for i, q := range valid {
		if seen[i] {
			continue
		}
		rr.Items = append(rr.Items, canceledItem(q, ctx.Err()))
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// SearchOne 执行单条查询并把结果或错误归类为 ItemResult（search 子命令与批量 worker 共用）。
func SearchOne(ctx context.Context, providerName string, reg provider.Registry, q Query) domain.ItemResult {
	item := newItem(q)
	if err := ctx.Err(); err != nil {
		return canceledItem(q, err)
	}
	results, err := provider.Search(ctx, reg, providerName, q.Criterion)
	if err != nil {
		fillSearchError(&item, err)
		return item
	}
	if len(results) == 0 {
		// 列表命中但详情页全部被丢弃：对报告而言同样是“没有可用结果”。
		item.Status = domain.StatusNoResults
		item.ErrorCode = domain.ErrCodeNoResults
		item.ErrorMsg = "站点列出了匹配条目，但详情页都未能解析"
		return item
	}
	item.Status = domain.StatusFound
	item.Results = results
	return item
}

func newItem(q Query) domain.ItemResult {
	return domain.ItemResult{
		Line:    q.Line,
		Kind:    q.Criterion.Kind.String(),
		Query:   q.Criterion.Text,
		Results: []domain.Result{},
	}
}

func invalidItem(q Query) domain.ItemResult {
	item := newItem(q)
	item.Query = q.Raw
	item.Status = domain.StatusFailed
	item.ErrorCode = domain.ErrCodeInvalidQuery
	item.ErrorMsg = fmt.Sprintf("第 %d 行无法解析：%v", q.Line, q.Err)
	return item
}

func canceledItem(q Query, err error) domain.ItemResult {
	item := newItem(q)
	item.Status = domain.StatusFailed
	item.ErrorCode = domain.ErrCodeFetchFailed
	if err == nil {
		err = context.Canceled
	}
	item.ErrorMsg = fmt.Sprintf("已取消：%v", err)
	return item
}

// fillSearchError 把 provider.Search 的错误归类为 report 的 status/error_code。
func fillSearchError(item *domain.ItemResult, err error) {
	item.Results = []domain.Result{}

	switch {
	case provider.IsNoResults(err):
		item.Status = domain.StatusNoResults
		item.ErrorCode = domain.ErrCodeNoResults
		item.ErrorMsg = "站点没有匹配的记录"
		return
	case errors.Is(err, isbn.ErrInvalid):
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeInvalidQuery
		item.ErrorMsg = fmt.Sprintf("ISBN 无效：%v", err)
		return
	}

	item.Status = domain.StatusFailed
	item.ErrorCode = domain.ErrCodeFetchFailed

	name := "provider"
	var pe *provider.Error
	if errors.As(err, &pe) {
		name = pe.Provider
		if pe.Stage == provider.StageLookup {
			item.ErrorCode = domain.ErrCodeConfigInvalid
			item.ErrorMsg = pe.Err.Error()
			return
		}
		err = pe.Err
	}
	item.ErrorMsg = HumanizeFetchError(name, err)
}

// HumanizeFetchError 尽量给出可操作的提示（限流/代理/超时是最常见问题）。
func HumanizeFetchError(providerName string, err error) string {
	if err == nil {
		return providerName + " 抓取失败"
	}

	var hs *provider.HTTPStatusError
	if errors.As(err, &hs) {
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("%s 返回 HTTP %d（可能触发反爬/限流）。建议降低 rate_limit/concurrency 或配置 proxy.url。", providerName, hs.StatusCode)
		case 404:
			return fmt.Sprintf("%s 返回 HTTP 404（页面不存在或已下架）。", providerName)
		default:
			if loc := strings.TrimSpace(hs.Location); loc != "" {
				return fmt.Sprintf("%s 返回 HTTP %d（重定向）：%s", providerName, hs.StatusCode, loc)
			}
			return fmt.Sprintf("%s 返回 HTTP %d。", providerName, hs.StatusCode)
		}
	}

	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("%s 请求已取消。", providerName)
	}
	low := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return fmt.Sprintf("%s 抓取超时。建议检查网络/代理，或调大 timeout 后重试。", providerName)
	}
	if strings.Contains(low, "tls") || strings.Contains(low, "handshake") {
		return fmt.Sprintf("%s 连接失败（TLS/SSL）。可在 bookmeta.yaml 设置 siciliano.base_url 指向可用镜像，或配置 proxy.url。", providerName)
	}

	return fmt.Sprintf("%s 抓取失败：%v", providerName, err)
}

func logItem(log *logrus.Entry, res domain.ItemResult, dur time.Duration) {
	e := log.WithFields(logrus.Fields{
		"line":   res.Line,
		"kind":   res.Kind,
		"status": res.Status,
		"dur":    dur.Round(time.Millisecond).String(),
	})
	switch res.Status {
	case domain.StatusFailed:
		e.WithField("error_code", res.ErrorCode).Warn(res.ErrorMsg)
	default:
		e.WithField("books", len(res.Results)).Debug("查询完成")
	}
}

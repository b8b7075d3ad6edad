package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxPageBytes 限制单页读取大小，防止异常响应把内存打满。
const maxPageBytes = 8 << 20

// ErrPageTooLarge 表示响应体超过 maxPageBytes；不会返回截断后的页面。
var ErrPageTooLarge = errors.New("页面过大")

// HTTPFetcher 是基于 *http.Client 的 Fetcher。
// UA/重试/限速/代理都由 Client 的 Transport 负责（见 infra/httpx）。
type HTTPFetcher struct {
	Client *http.Client
}

func (f HTTPFetcher) Fetch(ctx context.Context, u string) ([]byte, error) {
	if f.Client == nil {
		return nil, errors.New("http client 不能为空")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > maxPageBytes {
		return nil, fmt.Errorf("%w：超过 %d 字节上限：%s", ErrPageTooLarge, maxPageBytes, u)
	}
	return b, nil
}

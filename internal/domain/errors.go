package domain

import "errors"

// ErrNoResults 表示（按重试策略用尽后）没有任何匹配结果，或搜索词无法转码为站点编码。
// 这是 search 唯一面向调用方的“业务失败”；传输错误原样透传，不会被包装成它。
var ErrNoResults = errors.New("no results")

package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusFound     = "found"
	StatusNoResults = "no_results"
	StatusFailed    = "failed"
)

const (
	ErrCodeNoResults     = "no_results"
	ErrCodeFetchFailed   = "fetch_failed"
	ErrCodeInvalidQuery  = "invalid_query"
	ErrCodeConfigInvalid = "config_invalid"
)

// RunReport 是 batch 对外稳定输出（stdout JSON / --out 文件）的结构。
type RunReport struct {
	Provider string `json:"provider" yaml:"provider"`
	Source   string `json:"source" yaml:"source"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Summary ReportSummary `json:"summary" yaml:"summary"`
	Items   []ItemResult  `json:"items" yaml:"items"`
}

type ReportSummary struct {
	Found     int `json:"found" yaml:"found"`
	NoResults int `json:"no_results" yaml:"no_results"`
	Failed    int `json:"failed" yaml:"failed"`
	Books     int `json:"books" yaml:"books"`
}

type ItemResult struct {
	// Line 是该查询在输入中的行号（从 1 开始）；合成条目为 0。
	Line  int    `json:"line" yaml:"line"`
	Kind  string `json:"kind" yaml:"kind"`
	Query string `json:"query" yaml:"query"`

	Status    string `json:"status" yaml:"status"`
	ErrorCode string `json:"error_code" yaml:"error_code"`
	ErrorMsg  string `json:"error_msg" yaml:"error_msg"`

	Results []Result `json:"results" yaml:"results"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 按输入行号稳定排序；Line==0 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Line
		b := r.Items[j].Line
		if a == 0 {
			return false
		}
		if b == 0 {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusFound:
			s.Found++
		case StatusNoResults:
			s.NoResults++
		case StatusFailed:
			s.Failed++
		}
		s.Books += len(it.Results)
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（nil 切片输出为 []，而不是 null）。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	a := Alias(r)
	a.Items = make([]ItemResult, len(r.Items))
	copy(a.Items, r.Items)
	for i := range a.Items {
		if a.Items[i].Results == nil {
			a.Items[i].Results = []Result{}
		}
	}
	return json.Marshal(a)
}

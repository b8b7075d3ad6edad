package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/bookmeta/internal/app/run"
	"github.com/John-Robertt/bookmeta/internal/config"
	"github.com/John-Robertt/bookmeta/internal/domain"
)

func TestProgressUI_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	p.tickerInterval = time.Hour

	p.OnStart(config.EffectiveConfig{Provider: "siciliano", Concurrency: 2, ProxyURL: "http://u:p@127.0.0.1:8080", Format: "json"}, "stdin")
	p.OnPhaseDone("read", map[string]any{"queries": 3, "invalid": 1}, 0)
	p.OnPhaseDone("exec", map[string]any{"workers": 2, "total_items": 2}, 0)

	q1 := run.Query{Line: 1, Criterion: domain.SearchCriterion{Kind: domain.KindTitle, Text: "Dom Casmurro"}}
	q2 := run.Query{Line: 3, Criterion: domain.SearchCriterion{Kind: domain.KindISBN, Text: "9788535902778"}}
	p.OnItemDone(1, 2, q1, domain.ItemResult{Status: domain.StatusFound, Results: make([]domain.Result, 2)}, time.Second)
	if !p.tickerStarted {
		t.Fatalf("未完成时 ticker 应仍在运行")
	}
	p.OnItemDone(2, 2, q2, domain.ItemResult{Status: domain.StatusFailed, ErrorCode: domain.ErrCodeFetchFailed, ErrorMsg: "HTTP 403"}, time.Second)
	if p.tickerStarted {
		t.Fatalf("全部完成后 ticker 应已停止")
	}
	p.stop() // 重复 stop 不应 panic

	out := buf.String()
	for _, want := range []string{
		"source: stdin",
		"proxy: on (http://127.0.0.1:8080, auth=on)",
		"读取: queries=3 invalid=1",
		"执行: workers=2 total_items=2",
		"[1/2] L1 title:Dom Casmurro OK books=2",
		"[2/2] L3 isbn:9788535902778 FAIL fetch_failed: HTTP 403",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("输出缺少 %q：\n%s", want, out)
		}
	}
	if strings.Contains(out, "u:p") {
		t.Fatalf("不应回显代理凭据：\n%s", out)
	}
	if p.found != 1 || p.fail != 1 || p.noRes != 0 {
		t.Fatalf("计数不对：found=%d fail=%d none=%d", p.found, p.fail, p.noRes)
	}
}

func TestProgressUI_KeepaliveLine(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	p.mu.Lock()
	p.startedAt = time.Now()
	p.workers = 4
	p.total = 5
	p.done = 3
	p.found = 2
	p.fail = 1
	p.printProgressLocked()
	p.mu.Unlock()

	want := "进度: done=3/5 found=2 none=0 fail=1 active=2 elapsed=00:00:00\n"
	if buf.String() != want {
		t.Fatalf("期望 %q，实际 %q", want, buf.String())
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  Memórias Póstumas de Brás Cubas  ", 10); got != "Memória..." {
		t.Fatalf("期望按 rune 截断，实际 %q", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Fatalf("短字符串不应截断，实际 %q", got)
	}
}

func TestFormatRate(t *testing.T) {
	if formatRate(0) != "off" || formatRate(1.5) != "1.5/s" {
		t.Fatalf("formatRate 输出不对：%q %q", formatRate(0), formatRate(1.5))
	}
}

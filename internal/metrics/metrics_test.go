package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveAttempt("siciliano", "isbn", 1)
	m.ObserveAttempt("siciliano", "isbn", 2)
	m.ObserveSearch("siciliano", "isbn", "no_results")
	m.ObserveSoftFailure("siciliano", "list")
	m.ObserveSoftFailure("siciliano", "list")
	m.ObserveFetch("siciliano", "detail", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.Attempts.WithLabelValues("siciliano", "isbn", "2")); got != 1 {
		t.Fatalf("attempt=2 计数期望 1，实际 %v", got)
	}
	if got := testutil.ToFloat64(m.SoftFailures.WithLabelValues("siciliano", "list")); got != 2 {
		t.Fatalf("soft failure 计数期望 2，实际 %v", got)
	}
	if got := testutil.ToFloat64(m.Searches.WithLabelValues("siciliano", "isbn", "no_results")); got != 1 {
		t.Fatalf("search 计数期望 1，实际 %v", got)
	}
	if n := testutil.CollectAndCount(m.FetchDuration); n != 1 {
		t.Fatalf("histogram series 期望 1，实际 %d", n)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt("p", "k", 1)
	m.ObserveSearch("p", "k", "found")
	m.ObserveSoftFailure("p", "detail")
	m.ObserveFetch("p", "list", time.Second)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
		t.Fatalf("nil metrics 不应报错：%v", err)
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.ObserveSearch("siciliano", "title", "found")

	path := filepath.Join(t.TempDir(), "bookmeta.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("写入 textfile 失败：%v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取 textfile 失败：%v", err)
	}
	if !strings.Contains(string(b), `bookmeta_searches_total{kind="title",outcome="found",provider="siciliano"} 1`) {
		t.Fatalf("textfile 内容不符合预期：%s", b)
	}
}

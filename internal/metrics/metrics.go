// Package metrics 汇总搜索流程的 Prometheus 指标。
//
// 使用私有 Registry（而不是全局默认注册表），便于测试与一次性 CLI 导出 textfile。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Registry *prometheus.Registry

	Searches      *prometheus.CounterVec
	Attempts      *prometheus.CounterVec
	SoftFailures  *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookmeta_searches_total",
			Help: "Searches by provider, kind and outcome.",
		}, []string{"provider", "kind", "outcome"}),
		Attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookmeta_search_attempts_total",
			Help: "Listing queries issued, by attempt number.",
		}, []string{"provider", "kind", "attempt"}),
		SoftFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bookmeta_soft_failures_total",
			Help: "Listing items or detail pages dropped during parsing.",
		}, []string{"provider", "stage"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bookmeta_fetch_duration_seconds",
			Help:    "Duration of page fetches in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "page"}),
	}
	reg.MustRegister(m.Searches, m.Attempts, m.SoftFailures, m.FetchDuration)
	return m
}

// 以下方法对 nil *Metrics 安全：未启用指标时调用方无需判空。

func (m *Metrics) ObserveSearch(provider, kind, outcome string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(provider, kind, outcome).Inc()
}

func (m *Metrics) ObserveAttempt(provider, kind string, attempt int) {
	if m == nil {
		return
	}
	m.Attempts.WithLabelValues(provider, kind, strconv.Itoa(attempt)).Inc()
}

func (m *Metrics) ObserveSoftFailure(provider, stage string) {
	if m == nil {
		return
	}
	m.SoftFailures.WithLabelValues(provider, stage).Inc()
}

func (m *Metrics) ObserveFetch(provider, page string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(provider, page).Observe(d.Seconds())
}

// WriteTextfile 把当前指标写成 node_exporter textfile collector 可读的文件（原子替换）。
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}

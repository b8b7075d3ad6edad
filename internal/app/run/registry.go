package run

import (
	"github.com/sirupsen/logrus"

	"github.com/John-Robertt/bookmeta/internal/config"
	"github.com/John-Robertt/bookmeta/internal/infra/httpx"
	"github.com/John-Robertt/bookmeta/internal/logx"
	"github.com/John-Robertt/bookmeta/internal/metrics"
	"github.com/John-Robertt/bookmeta/internal/provider"
	"github.com/John-Robertt/bookmeta/internal/provider/siciliano"
)

// BuildRegistry 按最终配置构造共享的 HTTP client 与全部 provider。
//
// 所有 provider 共用同一个 client：限速令牌桶因此是全局的（并发 worker 也不会超速）。
func BuildRegistry(eff config.EffectiveConfig, log *logrus.Entry, m *metrics.Metrics) (provider.Registry, error) {
	client, err := httpx.NewClient(httpx.Options{
		ProxyURL:  eff.ProxyURL,
		Timeout:   eff.Timeout,
		RetryMax:  httpx.DefaultRetryMax,
		RateLimit: eff.RateLimit,
	})
	if err != nil {
		return provider.Registry{}, err
	}
	fetcher := provider.HTTPFetcher{Client: client}

	return provider.NewRegistry(
		siciliano.Provider{
			Config: siciliano.Config{
				BaseURL:     eff.Siciliano.BaseURL,
				Charset:     eff.Siciliano.Charset,
				CoverSuffix: eff.Siciliano.CoverSuffix,
			},
			Fetcher: fetcher,
			Log:     logx.OrDiscard(log).WithField("component", "provider"),
			Metrics: m,
		},
	)
}

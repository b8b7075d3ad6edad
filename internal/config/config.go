package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/bookmeta/internal/textenc"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是在 cwd 下自动发现的配置文件名。
const FileName = "bookmeta.yaml"

const (
	// DefaultProvider 是 provider 的最终默认值（当 CLI 与配置文件都未指定时）。
	DefaultProvider = "siciliano"
	// DefaultConcurrency 是批量模式 worker 数的内置默认值。
	DefaultConcurrency = 4
	// DefaultTimeout 是单次 HTTP 请求（含重试）的总超时。
	DefaultTimeout = 20 * time.Second

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultFormat    = "json"

	maxConcurrency = 32
)

// CLIArgs 保留“是否显式指定”的信息，保证覆盖优先级可实现：
// 例如 --rate-limit=0 必须能覆盖配置文件中的 rate_limit: 2。
type CLIArgs struct {
	// ConfigPath 非空时必须存在；为空时尝试 <cwd>/bookmeta.yaml（可选）。
	ConfigPath string

	Provider    string
	ProviderSet bool

	Concurrency    int
	ConcurrencySet bool

	Format    string
	FormatSet bool

	LogLevel    string
	LogLevelSet bool

	RateLimit    float64
	RateLimitSet bool

	ProxyURL    string
	ProxyURLSet bool

	MetricsFile    string
	MetricsFileSet bool
}

// FileConfig 对应 bookmeta.yaml 的解析结构。未知字段被忽略。
type FileConfig struct {
	Provider    string           `yaml:"provider"`
	Concurrency int              `yaml:"concurrency"`
	Timeout     time.Duration    `yaml:"timeout"`
	RateLimit   *float64         `yaml:"rate_limit"`
	Proxy       *ProxyConfig     `yaml:"proxy"`
	LogLevel    string           `yaml:"log_level"`
	LogFormat   string           `yaml:"log_format"`
	Format      string           `yaml:"format"`
	MetricsFile string           `yaml:"metrics_file"`
	Siciliano   *SicilianoConfig `yaml:"siciliano"`
}

type ProxyConfig struct {
	URL string `yaml:"url"`
}

// SicilianoConfig 是站点级的高级配置，仅通过配置文件设置，不暴露 CLI 参数。
type SicilianoConfig struct {
	// BaseURL 允许在主域名不可达时切换到镜像（可选）。
	BaseURL     string `yaml:"base_url"`
	Charset     string `yaml:"charset"`
	CoverSuffix string `yaml:"cover_suffix"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	// File 是实际读取到的配置文件路径；没有读取任何文件时为空。
	File string

	Provider    string
	Concurrency int
	Timeout     time.Duration
	RateLimit   float64
	ProxyURL    string

	LogLevel  string
	LogFormat string
	Format    string

	MetricsFile string

	Siciliano SicilianoConfig
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Path == "" {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则（固定）：
// 1) CLI 提供 --config：必须存在，否则 config_not_found
// 2) 否则尝试 <cwd>/bookmeta.yaml（可选，不存在不报错）
//
// 覆盖优先级（固定）：CLI 显式指定 > 配置文件 > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath := absCleanFrom(cwdAbs, cli.ConfigPath)
		fc, exists, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		return merge(cli, fc, cfgPath)
	}

	cfgPath := filepath.Join(cwdAbs, FileName)
	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		cfgPath = ""
	}
	return merge(cli, fc, cfgPath)
}

func merge(cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	provider := pick(cli.ProviderSet, cli.Provider, fc.Provider, DefaultProvider)
	if err := validateProvider(provider); err != nil {
		return invalid(err)
	}

	concurrency := fc.Concurrency
	if cli.ConcurrencySet {
		concurrency = cli.Concurrency
	}
	if concurrency == 0 {
		concurrency = DefaultConcurrency
	}
	// 范围 [1, 32]；超出截断。
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > maxConcurrency {
		concurrency = maxConcurrency
	}

	timeout := fc.Timeout
	if timeout < 0 {
		return invalid(fmt.Errorf("timeout 不能为负数：%v", timeout))
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	rateLimit := 0.0
	if cli.RateLimitSet {
		rateLimit = cli.RateLimit
	} else if fc.RateLimit != nil {
		rateLimit = *fc.RateLimit
	}
	if rateLimit < 0 {
		return invalid(fmt.Errorf("rate_limit 不能为负数：%v", rateLimit))
	}

	fileProxy := ""
	if fc.Proxy != nil {
		fileProxy = fc.Proxy.URL
	}
	proxyURL := strings.TrimSpace(fileProxy)
	if cli.ProxyURLSet {
		proxyURL = strings.TrimSpace(cli.ProxyURL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("proxy.url 无效：%q", proxyURL))
		}
	}

	logLevel := strings.ToLower(pick(cli.LogLevelSet, cli.LogLevel, fc.LogLevel, DefaultLogLevel))
	if _, err := logrus.ParseLevel(logLevel); err != nil {
		return invalid(fmt.Errorf("log_level 无效：%w", err))
	}
	logFormat := strings.ToLower(pick(false, "", fc.LogFormat, DefaultLogFormat))
	if logFormat != "text" && logFormat != "json" {
		return invalid(fmt.Errorf("log_format 只能是 text 或 json，实际是 %q", logFormat))
	}

	format := strings.ToLower(pick(cli.FormatSet, cli.Format, fc.Format, DefaultFormat))
	switch format {
	case "json", "yaml", "xml":
	default:
		return invalid(fmt.Errorf("format 只能是 json/yaml/xml，实际是 %q", format))
	}

	metricsFile := strings.TrimSpace(fc.MetricsFile)
	if cli.MetricsFileSet {
		metricsFile = strings.TrimSpace(cli.MetricsFile)
	}

	var sc SicilianoConfig
	if fc.Siciliano != nil {
		sc = SicilianoConfig{
			BaseURL:     strings.TrimSpace(fc.Siciliano.BaseURL),
			Charset:     strings.TrimSpace(fc.Siciliano.Charset),
			CoverSuffix: strings.TrimSpace(fc.Siciliano.CoverSuffix),
		}
	}
	if sc.BaseURL != "" {
		u, err := url.Parse(sc.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return invalid(fmt.Errorf("siciliano.base_url 无效：%q", sc.BaseURL))
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return invalid(fmt.Errorf("siciliano.base_url 必须是 http/https：%q", sc.BaseURL))
		}
	}
	if sc.Charset != "" {
		if _, err := textenc.Lookup(sc.Charset); err != nil {
			return invalid(fmt.Errorf("siciliano.charset 无效：%w", err))
		}
	}

	return EffectiveConfig{
		File:        cfgPath,
		Provider:    provider,
		Concurrency: concurrency,
		Timeout:     timeout,
		RateLimit:   rateLimit,
		ProxyURL:    proxyURL,
		LogLevel:    logLevel,
		LogFormat:   logFormat,
		Format:      format,
		MetricsFile: metricsFile,
		Siciliano:   sc,
	}, nil
}

// pick 实现“CLI 显式指定 > 配置文件非空 > 默认”。
func pick(cliSet bool, cliVal, fileVal, def string) string {
	if cliSet {
		return strings.TrimSpace(cliVal)
	}
	if v := strings.TrimSpace(fileVal); v != "" {
		return v
	}
	return def
}

func validateProvider(p string) error {
	switch p {
	case "siciliano":
		return nil
	case "":
		return fmt.Errorf("provider 不能为空")
	default:
		return fmt.Errorf("provider 只能是 siciliano，实际是 %q", p)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := yaml.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}

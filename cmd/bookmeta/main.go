package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/bookmeta/internal/app/run"
	"github.com/John-Robertt/bookmeta/internal/config"
	"github.com/John-Robertt/bookmeta/internal/infra/fsx"
	"github.com/John-Robertt/bookmeta/internal/logx"
	"github.com/John-Robertt/bookmeta/internal/metrics"
	"github.com/John-Robertt/bookmeta/internal/provider"
)

// version 由构建时 -ldflags "-X main.version=..." 注入。
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// exitError 携带进程退出码；err 为 nil 时只设置退出码，不再额外打印。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error { return &exitError{code: code, err: err} }

// cli 持有一次进程运行的 IO、工作目录与全局参数；测试在进程内通过它驱动命令。
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cwd    string

	flags globalFlags
}

type globalFlags struct {
	configPath  string
	provider    string
	concurrency int
	format      string
	logLevel    string
	rateLimit   float64
	proxy       string
	metricsFile string
	out         string
	force       bool
}

// execute 运行 CLI 并返回退出码：0 成功；1 运行失败或无结果；2 用法错误。
func execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, cwd: cwd}
	root := c.rootCmd()
	root.SetArgs(args)

	err = root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, ee.err)
		}
		return ee.code
	}
	// 其余错误来自 cobra 的参数解析。
	fmt.Fprintf(stderr, "参数错误：%v\n使用 \"bookmeta --help\" 查看用法。\n", err)
	return 2
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookmeta",
		Short:         "从在线书店目录检索图书元数据（书名/作者/ISBN/出版社/封面）",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.flags.configPath, "config", "", "配置文件路径（默认尝试 ./"+config.FileName+"，不存在不报错）")
	pf.StringVar(&c.flags.provider, "provider", config.DefaultProvider, "目录站点 provider")
	pf.StringVarP(&c.flags.format, "format", "f", config.DefaultFormat, "输出格式：json|yaml|xml")
	pf.StringVar(&c.flags.logLevel, "log-level", config.DefaultLogLevel, "日志级别：debug|info|warn|error")
	pf.Float64Var(&c.flags.rateLimit, "rate-limit", 0, "每秒请求数上限（0 表示不限速）")
	pf.StringVar(&c.flags.proxy, "proxy", "", "HTTP 代理 URL（--proxy= 可关闭配置文件中的代理）")
	pf.StringVar(&c.flags.metricsFile, "metrics-file", "", "结束时把 Prometheus 指标写入该 textfile")
	pf.StringVarP(&c.flags.out, "out", "o", "", "把结果写入文件而不是 stdout（原子写入）")
	pf.BoolVar(&c.flags.force, "force", false, "允许 --out 覆盖已存在的文件")

	root.AddCommand(c.newSearchCmd(), c.newBatchCmd(), c.newVersionCmd())
	return root
}

func (c *cli) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bookmeta %s\n", version)
		},
	}
}

// cliArgs 只把“显式出现在命令行上”的参数标记为 Set，保证 CLI > 配置文件 > 默认。
func (c *cli) cliArgs(cmd *cobra.Command) config.CLIArgs {
	f := cmd.Flags()
	return config.CLIArgs{
		ConfigPath:     c.flags.configPath,
		Provider:       c.flags.provider,
		ProviderSet:    f.Changed("provider"),
		Concurrency:    c.flags.concurrency,
		ConcurrencySet: f.Changed("concurrency"),
		Format:         c.flags.format,
		FormatSet:      f.Changed("format"),
		LogLevel:       c.flags.logLevel,
		LogLevelSet:    f.Changed("log-level"),
		RateLimit:      c.flags.rateLimit,
		RateLimitSet:   f.Changed("rate-limit"),
		ProxyURL:       c.flags.proxy,
		ProxyURLSet:    f.Changed("proxy"),
		MetricsFile:    c.flags.metricsFile,
		MetricsFileSet: f.Changed("metrics-file"),
	}
}

func (c *cli) abs(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.cwd, p)
}

// session 是一次命令执行所需的已初始化依赖。
type session struct {
	cli     *cli
	eff     config.EffectiveConfig
	log     *logrus.Entry
	metrics *metrics.Metrics
	reg     provider.Registry
}

func (c *cli) open(cmd *cobra.Command) (*session, error) {
	eff, err := config.LoadEffective(c.cwd, c.cliArgs(cmd))
	if err != nil {
		return nil, err
	}
	logger, err := logx.New(eff.LogLevel, eff.LogFormat, c.stderr)
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Path: eff.File, Err: err}
	}
	log := logrus.NewEntry(logger).WithField("cmd", cmd.Name())
	if eff.File != "" {
		log.WithField("file", eff.File).Debug("已读取配置文件")
	}

	m := metrics.New()
	reg, err := run.BuildRegistry(eff, log, m)
	if err != nil {
		return nil, &config.Error{Code: config.ErrCodeInvalid, Path: eff.File, Err: err}
	}
	return &session{cli: c, eff: eff, log: log, metrics: m, reg: reg}, nil
}

// emit 把编码后的结果写到 --out（若指定）或 stdout。
func (s *session) emit(b []byte) error {
	out := s.cli.abs(s.cli.flags.out)
	if out == "" {
		_, err := s.cli.stdout.Write(b)
		return err
	}
	if err := fsx.WriteFile(out, b, s.cli.flags.force); err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("输出文件已存在：%s（使用 --force 覆盖）", out)
		}
		return fmt.Errorf("写入输出文件失败：%w", err)
	}
	s.log.WithField("path", out).Info("结果已写入文件")
	return nil
}

// flushMetrics 在命令结束时写出 metrics textfile；失败只记 warning，不影响退出码。
func (s *session) flushMetrics() {
	path := s.cli.abs(s.eff.MetricsFile)
	if path == "" {
		return
	}
	if err := s.metrics.WriteTextfile(path); err != nil {
		s.log.WithError(err).WithField("path", path).Warn("写入 metrics 文件失败")
		return
	}
	s.log.WithField("path", path).Debug("metrics 已写出")
}

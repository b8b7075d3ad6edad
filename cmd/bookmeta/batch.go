package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/bookmeta/internal/app/run"
	"github.com/John-Robertt/bookmeta/internal/config"
	"github.com/John-Robertt/bookmeta/internal/domain"
	"github.com/John-Robertt/bookmeta/internal/export"
)

func (c *cli) newBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE|-",
		Short: "逐行读取查询（文件或 stdin）并输出运行报告",
		Long: `逐行读取查询并并发执行，最后输出一份运行报告。

每行一条查询：kind:term（kind 为 isbn|title|author|keyword，省略时视为 keyword）。
空行与以 # 开头的行被忽略。FILE 为 "-" 时从 stdin 读取。
全部查询都找到结果时退出码为 0，否则为 1。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := c.sourceName(args[0])

			s, err := c.open(cmd)
			if err != nil {
				// 配置错误同样输出一份报告：stdout 始终是一个完整文档。
				c.emitConfigErrorReport(source, err)
				return fail(1, err)
			}
			defer s.flushMetrics()

			r, closeFn, err := c.openSource(args[0])
			if err != nil {
				return fail(1, err)
			}
			queries, err := run.ReadQueries(r)
			closeFn()
			if err != nil {
				return fail(1, fmt.Errorf("读取查询失败：%w", err))
			}

			var obs run.Observer
			if w, ok := c.progressWriter(); ok {
				ui := newProgressUI(w)
				defer ui.stop()
				obs = ui
			}

			rr := run.ExecuteWithObserver(cmd.Context(), s.eff, s.reg, source, queries, obs, s.log)

			b, err := export.Report(s.eff.Format, rr)
			if err != nil {
				return fail(1, err)
			}
			if err := s.emit(b); err != nil {
				return fail(1, err)
			}
			fmt.Fprintf(c.stderr, "完成：found=%d no_results=%d failed=%d books=%d\n",
				rr.Summary.Found, rr.Summary.NoResults, rr.Summary.Failed, rr.Summary.Books,
			)
			if rr.Summary.Failed == 0 && rr.Summary.NoResults == 0 {
				return nil
			}
			return fail(1, nil)
		},
	}
	cmd.Flags().IntVarP(&c.flags.concurrency, "concurrency", "j", config.DefaultConcurrency, "并发查询数（1-32）")
	return cmd
}

func (c *cli) sourceName(arg string) string {
	if strings.TrimSpace(arg) == "-" {
		return "stdin"
	}
	return c.abs(arg)
}

func (c *cli) openSource(arg string) (io.Reader, func(), error) {
	if strings.TrimSpace(arg) == "-" {
		return c.stdin, func() {}, nil
	}
	f, err := os.Open(c.abs(arg))
	if err != nil {
		return nil, nil, fmt.Errorf("打开查询文件失败：%w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func (c *cli) emitConfigErrorReport(source string, err error) {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Provider:   c.flags.provider,
		Source:     source,
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.ItemResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
			Results:   []domain.Result{},
		}},
	}
	rr.Finalize()

	b, e := export.Report(c.flags.format, rr)
	if e != nil {
		// format 本身可能就是配置错误的来源。
		b, _ = export.Report(export.FormatJSON, rr)
	}
	_, _ = c.stdout.Write(b)
}

// progressWriter 只在交互终端启用进度输出；默认走 stderr（不污染 stdout 的报告）。
func (c *cli) progressWriter() (io.Writer, bool) {
	f, ok := c.stderr.(*os.File)
	if !ok || !isTTY(f) {
		return nil, false
	}
	return f, true
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

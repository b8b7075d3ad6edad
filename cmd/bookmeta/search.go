package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/John-Robertt/bookmeta/internal/app/run"
	"github.com/John-Robertt/bookmeta/internal/domain"
	"github.com/John-Robertt/bookmeta/internal/export"
)

func (c *cli) newSearchCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "search [--type isbn|title|author|keyword] TERM...",
		Short: "执行一次搜索并输出匹配的图书",
		Long: `执行一次搜索并输出匹配的图书列表。

多个 TERM 以空格拼接为一个搜索词。ISBN 可带连字符；13 位形式无结果时自动改用 10 位形式重试一次。
没有匹配结果时输出空列表并以退出码 1 结束。`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseKind(kind)
			if err != nil {
				return fail(2, err)
			}
			term := strings.TrimSpace(strings.Join(args, " "))
			if term == "" {
				return fail(2, errors.New("搜索词不能为空"))
			}

			s, err := c.open(cmd)
			if err != nil {
				return fail(1, err)
			}
			defer s.flushMetrics()

			q := run.Query{Line: 1, Raw: term, Criterion: domain.SearchCriterion{Kind: k, Text: term}}
			item := run.SearchOne(cmd.Context(), s.eff.Provider, s.reg, q)
			if item.Status == domain.StatusFailed {
				return fail(1, fmt.Errorf("%s：%s", item.ErrorCode, item.ErrorMsg))
			}

			b, err := export.Results(s.eff.Format, item.Results)
			if err != nil {
				return fail(1, err)
			}
			if err := s.emit(b); err != nil {
				return fail(1, err)
			}
			if item.Status == domain.StatusNoResults {
				return fail(1, fmt.Errorf("没有找到匹配的图书：%s:%s", k, term))
			}
			s.log.WithField("books", len(item.Results)).Debug("搜索完成")
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", domain.KindKeyword.String(), "搜索类型：isbn|title|author|keyword")
	return cmd
}

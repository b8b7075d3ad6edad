package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/John-Robertt/bookmeta/internal/domain"
)

// newCatalogServer 模拟目录站点：搜索页与详情页都返回 ISO-8859-1 编码的 fixture。
func newCatalogServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	search := latin1Fixture(t, "search.html")
	detail := latin1Fixture(t, "detail.html")

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		switch {
		case strings.HasPrefix(r.URL.Path, "/pesquisaweb/"):
			_, _ = w.Write(search)
		case strings.HasPrefix(r.URL.Path, "/livro/"):
			_, _ = w.Write(detail)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func latin1Fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "..", "internal", "provider", "siciliano", "testdata", name))
	if err != nil {
		t.Fatalf("读取 fixture %s 失败：%v", name, err)
	}
	out, err := charmap.ISO8859_1.NewEncoder().Bytes(b)
	if err != nil {
		t.Fatalf("编码 fixture %s 失败：%v", name, err)
	}
	return out
}

// writeConfig 在临时目录写一份指向测试站点的配置文件，返回其路径。
func writeConfig(t *testing.T, dir, baseURL string) string {
	t.Helper()
	path := filepath.Join(dir, "bookmeta.yaml")
	body := "timeout: 5s\nlog_level: error\nsiciliano:\n  base_url: " + baseURL + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
	return path
}

func runCLI(t *testing.T, stdin string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_SearchKeyword(t *testing.T) {
	srv, hits := newCatalogServer(t)
	cfg := writeConfig(t, t.TempDir(), srv.URL)

	code, stdout, stderr := runCLI(t, "", "--config", cfg, "search", "dom", "casmurro")
	if code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr)
	}

	var results []domain.Result
	if err := json.Unmarshal([]byte(stdout), &results); err != nil {
		t.Fatalf("stdout 不是合法 JSON：%v\n%s", err, stdout)
	}
	// 列表页有 4 个条目，其中 1 个格式错误被跳过。
	if len(results) != 3 {
		t.Fatalf("期望 3 条结果，实际 %d", len(results))
	}
	if results[0].Book.Title != "Dom Casmurro" || results[0].Book.ISBN != "9788535902778" {
		t.Fatalf("首条结果不对：%+v", results[0].Book)
	}
	if !strings.HasPrefix(string(results[0].Cover), srv.URL+"/imagem/") {
		t.Fatalf("封面应相对配置的站点解析，实际 %q", results[0].Cover)
	}
	if got := atomic.LoadInt32(hits); got != 4 {
		t.Fatalf("期望 1 次列表请求 + 3 次详情请求，实际 %d", got)
	}
}

func TestCLI_SearchInvalidISBN(t *testing.T) {
	srv, hits := newCatalogServer(t)
	cfg := writeConfig(t, t.TempDir(), srv.URL)

	code, stdout, stderr := runCLI(t, "", "--config", cfg, "search", "--type", "isbn", "123")
	if code != 1 {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	if stdout != "" {
		t.Fatalf("失败时 stdout 应为空，实际 %q", stdout)
	}
	if !strings.Contains(stderr, domain.ErrCodeInvalidQuery) {
		t.Fatalf("stderr 应包含 %s：%q", domain.ErrCodeInvalidQuery, stderr)
	}
	if atomic.LoadInt32(hits) != 0 {
		t.Fatalf("无效 ISBN 不应发出请求")
	}
}

func TestCLI_SearchOutAndForce(t *testing.T) {
	srv, _ := newCatalogServer(t)
	dir := t.TempDir()
	cfg := writeConfig(t, dir, srv.URL)
	out := filepath.Join(dir, "out", "books.xml")

	code, stdout, stderr := runCLI(t, "", "--config", cfg, "--format", "xml", "--out", out, "search", "-t", "title", "Dom Casmurro")
	if code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr)
	}
	if stdout != "" {
		t.Fatalf("指定 --out 时 stdout 应为空，实际 %q", stdout)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("读取输出文件失败：%v", err)
	}
	if !strings.HasPrefix(string(b), "<?xml") || !strings.Contains(string(b), "<title>Dom Casmurro</title>") {
		t.Fatalf("输出文件内容不对：\n%s", b)
	}

	code, _, stderr = runCLI(t, "", "--config", cfg, "--out", out, "search", "Dom Casmurro")
	if code != 1 || !strings.Contains(stderr, "--force") {
		t.Fatalf("已存在的输出文件应拒绝覆盖：code=%d stderr=%q", code, stderr)
	}

	code, _, stderr = runCLI(t, "", "--config", cfg, "--out", out, "--force", "search", "Dom Casmurro")
	if code != 0 {
		t.Fatalf("--force 应允许覆盖：code=%d stderr=%q", code, stderr)
	}
	b, _ = os.ReadFile(out)
	if !strings.HasPrefix(string(b), "[") {
		t.Fatalf("覆盖后应为 JSON 输出，实际：\n%s", b)
	}
}

func TestCLI_BatchFromStdin(t *testing.T) {
	srv, _ := newCatalogServer(t)
	dir := t.TempDir()
	cfg := writeConfig(t, dir, srv.URL)
	metricsPath := filepath.Join(dir, "bookmeta.prom")

	input := "# 示例\ntitle:Dom Casmurro\n\nisbn:123\nnope:\n"
	code, stdout, stderr := runCLI(t, input, "--config", cfg, "--metrics-file", metricsPath, "batch", "-j", "2", "-")
	if code != 1 {
		t.Fatalf("存在失败条目时期望退出码 1，实际 %d\nstderr=%s", code, stderr)
	}

	var rr domain.RunReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("stdout 不是合法的 RunReport JSON：%v\n%s", err, stdout)
	}
	if rr.Source != "stdin" || rr.Provider != "siciliano" {
		t.Fatalf("报告头不对：source=%q provider=%q", rr.Source, rr.Provider)
	}
	if len(rr.Items) != 3 {
		t.Fatalf("期望 3 个条目，实际 %d：%+v", len(rr.Items), rr.Items)
	}
	if rr.Items[0].Line != 2 || rr.Items[0].Status != domain.StatusFound || len(rr.Items[0].Results) != 3 {
		t.Fatalf("第 2 行应找到 3 本书：%+v", rr.Items[0])
	}
	if rr.Items[1].Line != 4 || rr.Items[1].ErrorCode != domain.ErrCodeInvalidQuery {
		t.Fatalf("第 4 行应为 invalid_query：%+v", rr.Items[1])
	}
	// "nope:" 不是已知类型前缀，按关键字处理。
	if rr.Items[2].Line != 5 || rr.Items[2].Kind != "keyword" || rr.Items[2].Status != domain.StatusFound {
		t.Fatalf("第 5 行应按 keyword 搜索：%+v", rr.Items[2])
	}
	if rr.Summary.Found != 2 || rr.Summary.Failed != 1 || rr.Summary.Books != 6 {
		t.Fatalf("summary 不对：%+v", rr.Summary)
	}
	if !strings.Contains(stderr, "完成：found=2 no_results=0 failed=1 books=6") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("读取 metrics 文件失败：%v", err)
	}
	if !strings.Contains(string(prom), "bookmeta_searches_total") {
		t.Fatalf("metrics 文件缺少 bookmeta_searches_total：\n%s", prom)
	}
}

func TestCLI_BatchConfigNotFound(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "batch", "-")
	if code != 1 {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	var rr domain.RunReport
	if err := json.Unmarshal([]byte(stdout), &rr); err != nil {
		t.Fatalf("配置错误时 stdout 仍应是 RunReport JSON：%v\n%s", err, stdout)
	}
	if len(rr.Items) != 1 || rr.Items[0].ErrorCode != "config_not_found" || rr.Summary.Failed != 1 {
		t.Fatalf("报告内容不对：%+v", rr)
	}
}

func TestCLI_UsageErrors(t *testing.T) {
	if code, _, _ := runCLI(t, "", "search"); code != 2 {
		t.Fatalf("缺少搜索词应返回 2，实际 %d", code)
	}
	if code, _, _ := runCLI(t, "", "search", "--type", "isbn13", "x"); code != 2 {
		t.Fatalf("未知搜索类型应返回 2，实际 %d", code)
	}
	if code, _, _ := runCLI(t, "", "--bogus"); code != 2 {
		t.Fatalf("未知参数应返回 2，实际 %d", code)
	}
}

func TestCLI_HelpAndVersion(t *testing.T) {
	code, stdout, _ := runCLI(t, "", "--help")
	if code != 0 || !strings.Contains(stdout, "batch") || !strings.Contains(stdout, "search") {
		t.Fatalf("help 输出不对：code=%d\n%s", code, stdout)
	}
	code, stdout, _ = runCLI(t, "", "version")
	if code != 0 || stdout != "bookmeta dev\n" {
		t.Fatalf("version 输出不对：code=%d %q", code, stdout)
	}
}

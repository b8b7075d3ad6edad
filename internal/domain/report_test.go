package domain

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestRunReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := RunReport{
		Provider:   "siciliano",
		Source:     "queries.txt",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Line: 3, Status: StatusNoResults},
			{Line: 0, Status: StatusFailed}, // config 等合成项
			{Line: 1, Status: StatusFound, Results: []Result{{Book: Book{Title: "a"}}, {Book: Book{Title: "b"}}}},
			{Line: 2, Status: StatusFailed},
		},
	}

	r.Finalize()

	if r.Items[0].Line != 1 || r.Items[1].Line != 2 || r.Items[2].Line != 3 || r.Items[3].Line != 0 {
		t.Fatalf("items 排序不符合契约：%v", []int{r.Items[0].Line, r.Items[1].Line, r.Items[2].Line, r.Items[3].Line})
	}
	if r.Summary.Found != 1 || r.Summary.NoResults != 1 || r.Summary.Failed != 2 || r.Summary.Books != 2 {
		t.Fatalf("summary 统计不正确：%+v", r.Summary)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal 失败：%v", err)
	}
	if !bytes.Contains(b, []byte("\"started_at\":\"2026-02-09T02:00:00Z\"")) {
		t.Fatalf("started_at 不是 UTC RFC3339：%s", string(b))
	}
	// nil results 必须输出为 []，且不能改写调用方的切片。
	if !bytes.Contains(b, []byte("\"results\":[]")) {
		t.Fatalf("nil results 应输出为 []：%s", string(b))
	}
	if r.Items[1].Results != nil {
		t.Fatalf("MarshalJSON 不应修改原始 items")
	}
}

func TestParseQuery(t *testing.T) {
	cases := []struct {
		in   string
		kind SearchKind
		text string
	}{
		{"isbn:978-85-359-0277-8", KindISBN, "978-85-359-0277-8"},
		{"Title: Dom Casmurro", KindTitle, "Dom Casmurro"},
		{"author:Assis, Machado de", KindAuthor, "Assis, Machado de"},
		{"memórias póstumas", KindKeyword, "memórias póstumas"},
		{"Capítulo: um", KindKeyword, "Capítulo: um"},
	}
	for _, c := range cases {
		got, err := ParseQuery(c.in)
		if err != nil {
			t.Fatalf("ParseQuery(%q) 不期望错误：%v", c.in, err)
		}
		if got.Kind != c.kind || got.Text != c.text {
			t.Fatalf("ParseQuery(%q)=%+v，期望 kind=%v text=%q", c.in, got, c.kind, c.text)
		}
	}

	for _, bad := range []string{"", "   ", "isbn:  "} {
		if _, err := ParseQuery(bad); err == nil {
			t.Fatalf("ParseQuery(%q) 期望错误，但得到 nil", bad)
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]SearchKind{
		"ISBN":    KindISBN,
		"title":   KindTitle,
		"Author":  KindAuthor,
		"keyword": KindKeyword,
	} {
		got, err := ParseKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseKind(%q)=%v,%v，期望 %v", in, got, err, want)
		}
		if got.String() == "" {
			t.Fatalf("String() 不应为空")
		}
	}
	if _, err := ParseKind("publisher"); err == nil {
		t.Fatalf("期望未知类型报错")
	}
}

// Package export 把搜索结果与批量报告编码为 json / yaml / xml。
package export

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/bookmeta/internal/domain"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatXML  = "xml"
)

// 约定：输出带 standalone="yes" 的 XML 头。
const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes" ?>` + "\n"

type xmlBooks struct {
	XMLName xml.Name  `xml:"books"`
	Books   []xmlBook `xml:"book"`
}

type xmlBook struct {
	XMLName xml.Name `xml:"book"`

	Title   string   `xml:"title"`
	Authors []string `xml:"authors>author,omitempty"`
	ISBN    string   `xml:"isbn,omitempty"`

	Publisher   string `xml:"publisher,omitempty"`
	PublishYear int    `xml:"year,omitempty"`
	Edition     string `xml:"edition,omitempty"`
	Notes       string `xml:"notes,omitempty"`

	Cover   string `xml:"cover,omitempty"`
	Website string `xml:"website,omitempty"`
}

type xmlReport struct {
	XMLName    xml.Name `xml:"report"`
	Provider   string   `xml:"provider,attr"`
	Source     string   `xml:"source,attr,omitempty"`
	StartedAt  string   `xml:"started_at,attr"`
	FinishedAt string   `xml:"finished_at,attr"`

	Summary struct {
		Found     int `xml:"found,attr"`
		NoResults int `xml:"no_results,attr"`
		Failed    int `xml:"failed,attr"`
		Books     int `xml:"books,attr"`
	} `xml:"summary"`

	Items []xmlItem `xml:"item"`
}

type xmlItem struct {
	Line      int       `xml:"line,attr"`
	Kind      string    `xml:"kind,attr"`
	Status    string    `xml:"status,attr"`
	ErrorCode string    `xml:"error_code,attr,omitempty"`
	Query     string    `xml:"query"`
	ErrorMsg  string    `xml:"error,omitempty"`
	Books     []xmlBook `xml:"book"`
}

// Results 编码一次搜索的结果列表。
//
// 规则：
// - 字段去首尾空白；作者去空、去重，保持来源顺序
// - nil 列表在 json/yaml 中输出为空列表而不是 null
func Results(format string, results []domain.Result) ([]byte, error) {
	norm := make([]domain.Result, 0, len(results))
	for _, r := range results {
		norm = append(norm, normResult(r))
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		return marshalJSON(norm)
	case FormatYAML:
		return yaml.Marshal(norm)
	case FormatXML:
		doc := xmlBooks{Books: make([]xmlBook, 0, len(norm))}
		for _, r := range norm {
			doc.Books = append(doc.Books, toXMLBook(r))
		}
		return marshalXML(doc)
	default:
		return nil, fmt.Errorf("不支持的输出格式：%q", format)
	}
}

// Report 编码批量运行报告。调用方应先调用 RunReport.Finalize。
func Report(format string, rep domain.RunReport) ([]byte, error) {
	// Items 与调用方共享底层数组：先复制再规范化。
	rep.Items = append([]domain.ItemResult(nil), rep.Items...)
	for i := range rep.Items {
		if len(rep.Items[i].Results) == 0 {
			continue
		}
		rs := make([]domain.Result, 0, len(rep.Items[i].Results))
		for _, r := range rep.Items[i].Results {
			rs = append(rs, normResult(r))
		}
		rep.Items[i].Results = rs
	}

	switch strings.ToLower(format) {
	case FormatJSON:
		return marshalJSON(rep)
	case FormatYAML:
		return yaml.Marshal(rep)
	case FormatXML:
		doc := xmlReport{
			Provider:   rep.Provider,
			Source:     rep.Source,
			StartedAt:  rep.StartedAt.UTC().Format(time.RFC3339),
			FinishedAt: rep.FinishedAt.UTC().Format(time.RFC3339),
		}
		doc.Summary.Found = rep.Summary.Found
		doc.Summary.NoResults = rep.Summary.NoResults
		doc.Summary.Failed = rep.Summary.Failed
		doc.Summary.Books = rep.Summary.Books
		for _, it := range rep.Items {
			xi := xmlItem{
				Line:      it.Line,
				Kind:      it.Kind,
				Status:    it.Status,
				ErrorCode: it.ErrorCode,
				Query:     it.Query,
				ErrorMsg:  it.ErrorMsg,
			}
			for _, r := range it.Results {
				xi.Books = append(xi.Books, toXMLBook(r))
			}
			doc.Items = append(doc.Items, xi)
		}
		return marshalXML(doc)
	default:
		return nil, fmt.Errorf("不支持的输出格式：%q", format)
	}
}

func marshalJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func marshalXML(v any) ([]byte, error) {
	b, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	out := append([]byte(xmlHeader), b...)
	return append(out, '\n'), nil
}

func normResult(r domain.Result) domain.Result {
	b := r.Book
	b.Title = strings.TrimSpace(b.Title)
	b.Authors = normList(b.Authors)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Publisher = strings.TrimSpace(b.Publisher)
	b.Edition = strings.TrimSpace(b.Edition)
	// Notes 的空白与换行是兼容性格式的一部分，原样保留。
	return domain.Result{
		Book:    b,
		Cover:   domain.CoverImageRef(strings.TrimSpace(string(r.Cover))),
		Website: strings.TrimSpace(r.Website),
	}
}

func toXMLBook(r domain.Result) xmlBook {
	return xmlBook{
		Title:       r.Book.Title,
		Authors:     r.Book.Authors,
		ISBN:        r.Book.ISBN,
		Publisher:   r.Book.Publisher,
		PublishYear: r.Book.PublishYear,
		Edition:     r.Book.Edition,
		Notes:       r.Book.Notes,
		Cover:       string(r.Cover),
		Website:     r.Website,
	}
}

func normList(in []string) []string {
	m := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := m[s]; ok {
			continue
		}
		m[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Package textenc 封装站点遗留单字节编码与 UTF-8 之间的转换。
package textenc

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultCharset 是目标站点期望的编码。
const DefaultCharset = "iso-8859-1"

// ErrUnrepresentable 表示文本中存在目标编码无法表示的字符。
var ErrUnrepresentable = errors.New("textenc: text not representable in target charset")

// Lookup 按名称查找编码（"iso-8859-1"、"latin1"、"utf-8" 等）。
//
// 注意：WHATWG 把 latin1 系列标签映射到 windows-1252；这里对它们固定使用严格的 ISO-8859-1，
// 否则 "€" 之类的字符会被当成可表示。
func Lookup(charset string) (encoding.Encoding, error) {
	charset = strings.ToLower(strings.TrimSpace(charset))
	switch charset {
	case "", "iso-8859-1", "iso8859-1", "latin1", "l1":
		return charmap.ISO8859_1, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("textenc: 未知编码 %q: %w", charset, err)
	}
	return enc, nil
}

// Transcode 把 UTF-8 文本转为 charset 的字节串（以 string 承载）。
// 任一字符无法表示时返回 ErrUnrepresentable，不做替换。
func Transcode(text, charset string) (string, error) {
	enc, err := Lookup(charset)
	if err != nil {
		return "", err
	}
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnrepresentable, text, err)
	}
	return out, nil
}

// NewDecodingReader 把 charset 编码的页面字节解码为 UTF-8 流。
func NewDecodingReader(page []byte, charset string) (io.Reader, error) {
	enc, err := Lookup(charset)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(bytes.NewReader(page), enc.NewDecoder()), nil
}

package logx

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New 构造进程级 logger。日志只写 w（通常是 stderr），stdout 留给结果输出。
//
// format: "text"（默认，带完整时间戳）或 "json"。
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	lvl := logrus.InfoLevel
	if s := strings.TrimSpace(level); s != "" {
		l, err := logrus.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("log_level 无效：%q", level)
		}
		lvl = l
	}

	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(lvl)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("log_format 只能是 text 或 json，实际是 %q", format)
	}
	return l, nil
}

// Discard 返回丢弃一切输出的 entry；用于调用方未提供 logger 的场景（例如测试）。
func Discard() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// OrDiscard 在 e 为 nil 时返回 Discard()。
func OrDiscard(e *logrus.Entry) *logrus.Entry {
	if e == nil {
		return Discard()
	}
	return e
}

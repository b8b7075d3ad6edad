// Package isbn 负责 ISBN-10 / EAN-13 的规范化与互转。
package isbn

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid 表示输入不是合法的 ISBN-10 / ISBN-13（长度、字符或校验位不对）。
var ErrInvalid = errors.New("isbn: invalid")

// ErrNoISBN10 表示该 ISBN-13 没有对应的 ISBN-10 形式（只有 978 前缀可以转换）。
var ErrNoISBN10 = errors.New("isbn: no ISBN-10 form")

// Normalize 去掉连字符与空白，并把小写 x 统一为 X。
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'x' || r == 'X':
			b.WriteByte('X')
		case r == '-' || r == ' ' || r == '\t':
			// skip
		default:
			// 保留非法字符，交给校验阶段报错。
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid 判断 s（规范化后）是否为合法的 ISBN-10 或 ISBN-13。
func Valid(s string) bool {
	s = Normalize(s)
	switch len(s) {
	case 10:
		return valid10(s)
	case 13:
		return valid13(s)
	default:
		return false
	}
}

// To13 把输入规范化为 13 位（EAN）形式。
func To13(s string) (string, error) {
	n := Normalize(s)
	switch len(n) {
	case 13:
		if !valid13(n) {
			return "", fmt.Errorf("%w: %q 校验位错误", ErrInvalid, s)
		}
		return n, nil
	case 10:
		if !valid10(n) {
			return "", fmt.Errorf("%w: %q 校验位错误", ErrInvalid, s)
		}
		body := "978" + n[:9]
		return body + string(check13(body)), nil
	default:
		return "", fmt.Errorf("%w: %q 长度必须是 10 或 13", ErrInvalid, s)
	}
}

// To10 把输入规范化为 10 位形式。
func To10(s string) (string, error) {
	n := Normalize(s)
	switch len(n) {
	case 10:
		if !valid10(n) {
			return "", fmt.Errorf("%w: %q 校验位错误", ErrInvalid, s)
		}
		return n, nil
	case 13:
		if !valid13(n) {
			return "", fmt.Errorf("%w: %q 校验位错误", ErrInvalid, s)
		}
		if !strings.HasPrefix(n, "978") {
			return "", fmt.Errorf("%w: %q", ErrNoISBN10, s)
		}
		body := n[3:12]
		return body + string(check10(body)), nil
	default:
		return "", fmt.Errorf("%w: %q 长度必须是 10 或 13", ErrInvalid, s)
	}
}

func valid10(s string) bool {
	if len(s) != 10 || !allDigits(s[:9]) {
		return false
	}
	last := s[9]
	if last != 'X' && (last < '0' || last > '9') {
		return false
	}
	return check10(s[:9]) == last
}

func valid13(s string) bool {
	if len(s) != 13 || !allDigits(s) {
		return false
	}
	return check13(s[:12]) == s[12]
}

// check10 计算 ISBN-10 校验位（mod 11，10 记作 X）。body 必须是 9 位数字。
func check10(body string) byte {
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(body[i]-'0') * (10 - i)
	}
	c := (11 - sum%11) % 11
	if c == 10 {
		return 'X'
	}
	return byte('0' + c)
}

// check13 计算 EAN-13 校验位（权重 1/3 交替，mod 10）。body 必须是 12 位数字。
func check13(body string) byte {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(body[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return byte('0' + (10-sum%10)%10)
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

package util

import (
	"strings"
	"unicode"
)

// SanitizeText 清洗消息文本：剔除控制字符（保留换行与制表符），去除首尾空白
func SanitizeText(raw string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, raw)

	return strings.TrimSpace(cleaned)
}

// TruncateRunes 按字符截断，用于会话预览
func TruncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

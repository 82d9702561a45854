package util

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"普通文本", "hello", "hello"},
		{"首尾空白", "  你好  ", "你好"},
		{"控制字符剔除", "a\x00b\x07c", "abc"},
		{"保留换行制表", "line1\nline2\tend", "line1\nline2\tend"},
		{"纯空白", "   \n\t  ", ""},
		{"DEL字符", "a\x7fb", "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.in); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("hello", 10); got != "hello" {
		t.Errorf("短文本不应截断: %q", got)
	}
	if got := TruncateRunes(strings.Repeat("x", 300), 255); len([]rune(got)) != 255 {
		t.Errorf("截断长度 = %d, want 255", len([]rune(got)))
	}
	// 多字节字符按字符截断，不能截出半个字
	if got := TruncateRunes("你好世界", 2); got != "你好" {
		t.Errorf("TruncateRunes 多字节 = %q, want 你好", got)
	}
}

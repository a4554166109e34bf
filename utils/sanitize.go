package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// 任务标题、描述、备注只允许纯文本
var sanitizer = bluemonday.StrictPolicy()

// SanitizeText 去掉所有标签，实体还原为原字符，输出端负责转义
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(input)))
}

// SanitizeOptional nil 保持 nil，清洗后为空串时也返回 nil
func SanitizeOptional(input *string) *string {
	if input == nil {
		return nil
	}
	cleaned := SanitizeText(*input)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// TruncateRunes 按字符截断，保证写入 varchar(n) 不超长
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

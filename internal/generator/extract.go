package generator

import (
	"encoding/json"
	"fmt"

	"DopamineBreaker/pkg/errors"
)

// ExtractJSONObject 返回文本中第一个括号配平且是合法 JSON 的 {...}，字符串内的括号和转义不计入。
// 模型常在正文前写 ":-{"、"{tip}" 之类的片段，候选不配平或不合法时从下一个 '{' 重新开始
func ExtractJSONObject(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end, ok := matchBrace(text, start)
		if !ok {
			continue
		}
		if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate, true
		}
	}
	return "", false
}

// matchBrace 从 text[start]=='{' 开始找到与之配平的 '}'
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ParseBatch 从模型原始输出中提取并校验 Batch
func ParseBatch(raw string) (*Batch, error) {
	block, ok := ExtractJSONObject(raw)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in response", errors.ErrGeneration)
	}

	var batch Batch
	if err := json.Unmarshal([]byte(block), &batch); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", errors.ErrGeneration, err)
	}

	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return &batch, nil
}

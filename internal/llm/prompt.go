package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

const instructions = `以下のJSON形式で回答してください：
{
  "suggestions": [
    {
      "original": "修正が必要な箇所（校正対象テキストからそのまま抜き出す）",
      "suggestion": "修正後のテキスト",
      "explanation": "修正理由の説明",
      "confidence": 0.0〜1.0の確信度
    }
  ]
}

修正が不要な場合は "suggestions" を空の配列にしてください。
JSONのみを出力し、それ以外のテキストは含めないでください。`

// BuildPrompt renders the proofreading prompt for req.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	sb.WriteString("あなたは日本語校正の専門家です。以下のテキストを校正し、修正案を提示してください。\n\n")
	if req.Context != "" {
		fmt.Fprintf(&sb, "【文脈】\n%s\n\n", req.Context)
	}
	fmt.Fprintf(&sb, "【校正対象テキスト】\n%s\n\n", req.Text)
	if req.Issue != "" {
		fmt.Fprintf(&sb, "【検出された問題】\n%s\n\n", req.Issue)
	}
	sb.WriteString(instructions)
	return sb.String()
}

// ParseResponse decodes the model answer. It accepts the suggestions
// envelope, a bare array, or a single suggestion object; a single object
// without "original" applies to the whole request text.
func ParseResponse(response string, req Request) ([]Suggestion, error) {
	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var list []Suggestion
	switch raw[0] {
	case '[':
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
		}
	default:
		var envelope struct {
			Suggestions *[]Suggestion `json:"suggestions"`
			Suggestion
		}
		if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
		}
		switch {
		case envelope.Suggestions != nil:
			list = *envelope.Suggestions
		case envelope.Suggestion.Suggestion != "":
			s := envelope.Suggestion
			if s.Original == "" {
				s.Original = req.Text
			}
			list = []Suggestion{s}
		default:
			return nil, fmt.Errorf("%w: no suggestion in %.80q", ErrResponseInvalid, raw)
		}
	}

	out := list[:0]
	for _, s := range list {
		s.Confidence = min(max(s.Confidence, 0), 1)
		if s.Original == "" || s.Suggestion == s.Original {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ExtractJSON finds the JSON value in a model answer: the answer itself
// when it starts with a balanced object or array, a fenced json block, or
// the text between the first opening and the last closing bracket.
func ExtractJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty response", ErrResponseInvalid)
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		if end := balanced(trimmed); end > 0 {
			return trimmed[:end], nil
		}
	}

	if start := strings.Index(trimmed, "```json"); start >= 0 {
		body := trimmed[start+len("```json"):]
		if end := strings.Index(body, "```"); end >= 0 {
			if block := strings.TrimSpace(body[:end]); block != "" {
				return block, nil
			}
		}
	}

	start := strings.IndexAny(trimmed, "{[")
	if start >= 0 {
		closer := "}"
		if trimmed[start] == '[' {
			closer = "]"
		}
		if end := strings.LastIndex(trimmed, closer); end > start {
			return trimmed[start : end+1], nil
		}
	}
	return "", fmt.Errorf("%w: no JSON in %.80q", ErrResponseInvalid, response)
}

// balanced returns the length of the bracketed value at the start of s, or
// 0 if it is never closed. Brackets inside strings are ignored.
func balanced(s string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}

package augment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"mozuku/internal/diagnostic"
	"mozuku/internal/extract"
	"mozuku/internal/llm"
)

// RuleID tags diagnostics produced by the model.
const RuleID = "llm-suggestion"

const contextRunes = 200

// convert places suggestions in seg and maps them to document offsets.
// Suggestions whose original text cannot be found are dropped. Repeated
// originals are matched left to right.
func (c *Coordinator) convert(seg *extract.Segment, suggestions []llm.Suggestion) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	from := make(map[string]int)
	for _, s := range suggestions {
		if s.Confidence < c.opts.MinConfidence || s.Original == "" {
			continue
		}
		start := locate(seg.Text, s.Original, from[s.Original])
		if start < 0 {
			log.Debugf("suggestion for %q not found in segment", s.Original)
			continue
		}
		end := start + len(s.Original)
		from[s.Original] = end

		d := diagnostic.Diagnostic{
			Rule:     RuleID,
			Severity: diagnostic.Information,
			Message:  message(s),
			Start:    start,
			End:      end,
			Fixes: []diagnostic.Fix{
				diagnostic.Replace(fmt.Sprintf("「%s」に修正", s.Suggestion), start, end, s.Suggestion),
			},
		}
		out = append(out, seg.Rebase(d))
	}
	return out
}

// locate finds needle at or after from, wrapping to the start of text.
func locate(text, needle string, from int) int {
	if from < len(text) {
		if i := strings.Index(text[from:], needle); i >= 0 {
			return from + i
		}
	}
	return strings.Index(text, needle)
}

func message(s llm.Suggestion) string {
	msg := fmt.Sprintf("「%s」→「%s」", s.Original, s.Suggestion)
	if s.Explanation != "" {
		msg += ": " + s.Explanation
	}
	return msg
}

// excerpt is the tail of the preceding segment shown to the model as context.
func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= contextRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[len(runes)-contextRunes:])
}

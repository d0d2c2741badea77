package rules

import (
	"fmt"
	"strings"

	"mozuku/internal/diagnostic"
	"mozuku/internal/morph"
)

// consecutiveEndings flags a sentence ending (です, ます, である, …) that
// repeats in threshold or more consecutive sentences. The first sentence of
// a run is left alone.
type consecutiveEndings struct {
	threshold int
}

func (consecutiveEndings) Name() string { return "consecutive_endings" }
func (consecutiveEndings) ID() string   { return "consecutive-endings" }

type ending struct {
	key        string
	start, end int
}

// sentenceEnding returns the trailing auxiliary chain of tokens[s:e],
// ignoring closing symbols. Sentences that do not end in an auxiliary have
// an empty key.
func sentenceEnding(tokens []morph.Token, s, e int) ending {
	last := e - 1
	for last >= s && tokens[last].Is(morph.Symbol) {
		last--
	}
	first := last
	for first >= s && tokens[first].Is(morph.AuxVerb) {
		first--
	}
	first++
	if first > last {
		return ending{}
	}
	var sb strings.Builder
	for i := first; i <= last; i++ {
		sb.WriteString(tokens[i].Surface)
	}
	return ending{key: sb.String(), start: tokens[first].Start, end: tokens[last].End}
}

func (r consecutiveEndings) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var endings []ending
	for _, s := range sentences(tokens) {
		endings = append(endings, sentenceEnding(tokens, s[0], s[1]))
	}

	var out []diagnostic.Diagnostic
	for i := 0; i < len(endings); {
		j := i + 1
		for j < len(endings) && endings[i].key != "" && endings[j].key == endings[i].key {
			j++
		}
		if n := j - i; endings[i].key != "" && n >= r.threshold {
			for _, e := range endings[i+1 : j] {
				out = append(out, diagnostic.Diagnostic{
					Rule:     r.ID(),
					Severity: diagnostic.Hint,
					Message:  fmt.Sprintf("文末表現「%s」が%d回連続しています。", e.key, n),
					Start:    e.start,
					End:      e.end,
				})
			}
		}
		i = j
	}
	return out
}

package morph

import (
	"fmt"
	"strings"
)

// SemanticLegend lists the semantic token types in index order.
var SemanticLegend = []string{
	"keyword",  // 名詞
	"function", // 動詞
	"property", // 形容詞
	"variable", // 副詞
	"operator", // 助詞
	"string",   // 助動詞
	"number",   // 接続詞
	"comment",  // everything else
}

// SemanticType returns the index into SemanticLegend for the token.
func SemanticType(t Token) int {
	switch {
	case t.Is(Noun):
		return 0
	case t.Is(Verb):
		return 1
	case t.Is(Adjective):
		return 2
	case t.Is(Adverb):
		return 3
	case t.Is(Particle):
		return 4
	case t.Is(AuxVerb):
		return 5
	case t.Is(Conjunction):
		return 6
	}
	return 7
}

// HoverMarkdown renders the token details shown on hover.
func HoverMarkdown(t Token) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", t.Surface)

	tag := string(t.POS)
	if tag == "" {
		tag = "未知語"
	}
	parts := []string{tag}
	for _, d := range t.Detail {
		if d != "" {
			parts = append(parts, d)
		}
	}
	fmt.Fprintf(&sb, "**品詞**: %s\n\n", strings.Join(parts, "-"))

	if t.Lemma != "" && t.Lemma != t.Surface {
		fmt.Fprintf(&sb, "**基本形**: %s\n\n", t.Lemma)
	}
	if t.ConjType != "" {
		fmt.Fprintf(&sb, "**活用型**: %s\n\n", t.ConjType)
	}
	if t.ConjForm != "" {
		fmt.Fprintf(&sb, "**活用形**: %s\n\n", t.ConjForm)
	}
	if t.Reading != "" {
		fmt.Fprintf(&sb, "**読み**: %s\n\n", t.Reading)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// At returns the index of the token covering byte offset off, or -1.
func At(tokens []Token, off int) int {
	for i, t := range tokens {
		if off >= t.Start && off < t.End {
			return i
		}
		if t.Start > off {
			break
		}
	}
	return -1
}

package rules

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"mozuku/internal/diagnostic"
	"mozuku/internal/morph"
)

// raNuki flags potential forms of 一段 and カ変 verbs that drop the ら of
// られる, such as 食べれる or 来れる.
type raNuki struct{}

func (raNuki) Name() string { return "ra_nuki" }
func (raNuki) ID() string   { return "ra-nuki" }

func (r raNuki) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for i := 1; i < len(tokens); i++ {
		stem, suffix := tokens[i-1], tokens[i]
		if !suffix.Is(morph.Verb) || suffix.Lemma != "れる" || !suffix.HasDetail("接尾") {
			continue
		}
		if !stem.Is(morph.Verb) || !adjacent(stem, suffix) {
			continue
		}
		if !strings.HasPrefix(stem.ConjType, "一段") && !strings.HasPrefix(stem.ConjType, "カ変") {
			continue
		}
		if stem.ConjForm != "未然形" && stem.ConjForm != "連用形" {
			continue
		}
		wrong := stem.Surface + suffix.Surface
		right := stem.Surface + "ら" + suffix.Surface
		out = append(out, diagnostic.Diagnostic{
			Rule:     r.ID(),
			Severity: diagnostic.Warning,
			Message:  fmt.Sprintf("「%s」は「ら抜き言葉」です。「%s」が正しい形です。", wrong, right),
			Start:    stem.Start,
			End:      suffix.End,
			Fixes: []diagnostic.Fix{
				diagnostic.Replace(fmt.Sprintf("「%s」に修正", right), stem.Start, suffix.End, right),
			},
		})
	}
	return out
}

// iNuki flags the progressive ている/でいる contracted to てる/でる.
type iNuki struct{}

func (iNuki) Name() string { return "i_nuki" }
func (iNuki) ID() string   { return "i-nuki" }

func (r iNuki) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for i := 1; i < len(tokens); i++ {
		prev, tok := tokens[i-1], tokens[i]
		if tok.Lemma != "てる" && tok.Lemma != "でる" {
			continue
		}
		if !tok.Is(morph.AuxVerb) && !(tok.Is(morph.Verb) && tok.HasDetail("非自立")) {
			continue
		}
		if !prev.Is(morph.Verb) || !adjacent(prev, tok) {
			continue
		}
		_, size := utf8.DecodeRuneInString(tok.Surface)
		right := tok.Surface[:size] + "い" + tok.Surface[size:]
		out = append(out, diagnostic.Diagnostic{
			Rule:     r.ID(),
			Severity: diagnostic.Hint,
			Message: fmt.Sprintf("「%s」は「い抜き言葉」です。「%s」が正しい形です。",
				prev.Surface+tok.Surface, prev.Surface+right),
			Start: tok.Start,
			End:   tok.End,
			Fixes: []diagnostic.Fix{
				diagnostic.Replace(fmt.Sprintf("「%s」に修正", right), tok.Start, tok.End, right),
			},
		})
	}
	return out
}

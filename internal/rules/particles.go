package rules

import (
	"fmt"

	"mozuku/internal/diagnostic"
	"mozuku/internal/morph"
)

type doubleParticle struct {
	particles map[string]bool
}

func (doubleParticle) Name() string { return "double_particle" }
func (doubleParticle) ID() string   { return "double-particle" }

func (r doubleParticle) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for i := 1; i < len(tokens); i++ {
		a, b := tokens[i-1], tokens[i]
		if !a.Is(morph.Particle) || !b.Is(morph.Particle) || a.Surface != b.Surface {
			continue
		}
		if !r.particles[morph.Normalize(a.Surface)] {
			continue
		}
		out = append(out, diagnostic.Diagnostic{
			Rule:     r.ID(),
			Severity: diagnostic.Error,
			Message:  fmt.Sprintf("助詞「%s」が重複しています。", a.Surface),
			Start:    a.Start,
			End:      b.End,
			Fixes: []diagnostic.Fix{
				diagnostic.Replace(fmt.Sprintf("重複した「%s」を削除", b.Surface), b.Start, b.End, ""),
			},
		})
		i++
	}
	return out
}

// consecutiveNo flags noun runs chained by the possessive の at least
// threshold times, e.g. 東京の大学の先生の本.
type consecutiveNo struct {
	threshold int
}

func (consecutiveNo) Name() string { return "consecutive_no" }
func (consecutiveNo) ID() string   { return "consecutive-no" }

func isPossessiveNo(t morph.Token) bool {
	return t.Is(morph.Particle) && t.Surface == "の" && (t.HasDetail("連体化") || t.HasDetail("格助詞"))
}

func (r consecutiveNo) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	start, end, count := -1, -1, 0

	flush := func() {
		if start >= 0 && count >= r.threshold {
			out = append(out, diagnostic.Diagnostic{
				Rule:     r.ID(),
				Severity: diagnostic.Hint,
				Message:  fmt.Sprintf("「の」が%d回連続しています。文を分けるか表現を見直してください。", count),
				Start:    tokens[start].Start,
				End:      tokens[end].End,
			})
		}
		start, end, count = -1, -1, 0
	}

	for i, t := range tokens {
		switch {
		case t.Is(morph.Noun):
			if start < 0 {
				start = i
			}
			end = i
		case isPossessiveNo(t) && start >= 0 && end == i-1 && tokens[end].Is(morph.Noun):
			count++
			end = i
		default:
			flush()
		}
	}
	flush()
	return out
}

// tariParallel flags a clause that uses たり only once before a verb, where
// the paired form 〜たり〜たりする is expected.
type tariParallel struct{}

func (tariParallel) Name() string { return "tari_parallel" }
func (tariParallel) ID() string   { return "incomplete-tari" }

func isTari(t morph.Token) bool {
	return t.Is(morph.Particle) && (t.Lemma == "たり" || t.Lemma == "だり")
}

func (r tariParallel) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, s := range sentences(tokens) {
		var tari []int
		for i := s[0]; i < s[1]; i++ {
			if isTari(tokens[i]) {
				tari = append(tari, i)
			}
		}
		if len(tari) != 1 {
			continue
		}
		k := tari[0]
		verbAfter := false
		for i := k + 1; i < s[1]; i++ {
			if tokens[i].Is(morph.Verb) {
				verbAfter = true
				break
			}
		}
		if !verbAfter {
			continue
		}
		out = append(out, diagnostic.Diagnostic{
			Rule:     r.ID(),
			Severity: diagnostic.Warning,
			Message:  fmt.Sprintf("「%s」を使う場合は「〜%[1]s〜%[1]sする」の形が適切です。", tokens[k].Surface),
			Start:    tokens[k].Start,
			End:      tokens[k].End,
		})
	}
	return out
}

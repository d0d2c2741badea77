package rules

import (
	"fmt"
	"strconv"
	"strings"

	"mozuku/internal/diagnostic"
	"mozuku/internal/morph"
)

type redundantExpression struct {
	phrases []Phrase
}

func (redundantExpression) Name() string { return "redundant_expression" }
func (redundantExpression) ID() string   { return "redundant-expression" }

func (r redundantExpression) match(tokens []morph.Token, i int) (Phrase, bool) {
	for _, p := range r.phrases {
		if i+len(p.Pattern) > len(tokens) {
			continue
		}
		ok := true
		for k, lemma := range p.Pattern {
			t := tokens[i+k]
			if t.POS == morph.Unknown || t.Lemma != lemma {
				ok = false
				break
			}
		}
		if ok {
			return p, true
		}
	}
	return Phrase{}, false
}

func (r redundantExpression) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for i := 0; i < len(tokens); {
		p, ok := r.match(tokens, i)
		if !ok {
			i++
			continue
		}
		matched := tokens[i : i+len(p.Pattern)]
		start, end := matched[0].Start, matched[len(matched)-1].End
		wrong := text[start:end]

		d := diagnostic.Diagnostic{
			Rule:     r.ID(),
			Severity: diagnostic.Hint,
			Message:  p.Message,
			Start:    start,
			End:      end,
		}
		if p.Replacement != "" {
			right := expand(p.Replacement, matched)
			if d.Message == "" {
				d.Message = fmt.Sprintf("「%s」は冗長な表現です。「%s」で十分です。", wrong, right)
			}
			d.Fixes = []diagnostic.Fix{
				diagnostic.Replace(fmt.Sprintf("「%s」に修正", right), start, end, right),
			}
		}
		if d.Message == "" {
			d.Message = fmt.Sprintf("「%s」は冗長な表現です。", wrong)
		}
		out = append(out, d)
		i += len(p.Pattern)
	}
	return out
}

// expand replaces {n} with the surface of the n-th matched token.
func expand(template string, matched []morph.Token) string {
	var sb strings.Builder
	for i := 0; i < len(template); i++ {
		if template[i] == '{' {
			if j := strings.IndexByte(template[i:], '}'); j > 0 {
				if n, err := strconv.Atoi(template[i+1 : i+j]); err == nil && n >= 0 && n < len(matched) {
					sb.WriteString(matched[n].Surface)
					i += j
					continue
				}
			}
		}
		sb.WriteByte(template[i])
	}
	return sb.String()
}

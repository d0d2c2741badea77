package rules

import (
	"fmt"

	"mozuku/internal/diagnostic"
	"mozuku/internal/morph"
)

// doubleHonorific flags respectful forms stacked on an already honorific
// verb: おっしゃられる, or お待ちになられる where お〜になる is already
// respectful.
type doubleHonorific struct {
	entries []Honorific
}

func (doubleHonorific) Name() string { return "double_honorific" }
func (doubleHonorific) ID() string   { return "double-honorific" }

func isRespectSuffix(t morph.Token) bool {
	return t.Is(morph.Verb) && t.HasDetail("接尾") && (t.Lemma == "れる" || t.Lemma == "られる")
}

func (r doubleHonorific) lookup(lemma string) (Honorific, bool) {
	for _, e := range r.entries {
		if morph.Normalize(e.Lemma) == lemma {
			return e, true
		}
	}
	return Honorific{}, false
}

func (r doubleHonorific) Check(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for i := 0; i+1 < len(tokens); i++ {
		verb, suffix := tokens[i], tokens[i+1]
		if !verb.Is(morph.Verb) || !isRespectSuffix(suffix) || !adjacent(verb, suffix) {
			continue
		}

		polite := i+2 < len(tokens) && tokens[i+2].Lemma == "ます"

		if e, ok := r.lookup(verb.Lemma); ok {
			right := ""
			switch {
			case suffix.ConjForm == "基本形":
				right = e.Lemma
			case suffix.ConjForm == "連用形" && polite:
				right = e.Continuative
			}
			out = append(out, r.diagnostic(verb.Start, verb.Start, suffix.End, right, text))
			continue
		}

		if verb.Lemma == "なる" {
			start, ok := honorificPrefixStart(tokens, i)
			if !ok {
				continue
			}
			right := ""
			switch {
			case suffix.ConjForm == "基本形":
				right = "なる"
			case suffix.ConjForm == "連用形" && polite:
				right = "なり"
			}
			out = append(out, r.diagnostic(tokens[start].Start, verb.Start, suffix.End, right, text))
		}
	}
	return out
}

// honorificPrefixStart finds the お/ご that opens an お〜になる form ending
// with the なる token at index i.
func honorificPrefixStart(tokens []morph.Token, i int) (int, bool) {
	if i < 2 || !tokens[i-1].Is(morph.Particle) || tokens[i-1].Surface != "に" {
		return 0, false
	}
	if i >= 3 && tokens[i-3].Is(morph.Prefix) && isHonorificPrefix(tokens[i-3].Surface) {
		return i - 3, true
	}
	body := tokens[i-2].Surface
	for _, p := range []string{"お", "ご", "御"} {
		if len(body) > len(p) && body[:len(p)] == p {
			return i - 2, true
		}
	}
	return 0, false
}

func isHonorificPrefix(s string) bool {
	return s == "お" || s == "ご" || s == "御"
}

// diagnostic reports [start, end). The fix replaces [fixStart, end) with
// right. An empty right means no replacement is offered: past and te forms
// need euphonic changes the dictionary does not carry.
func (r doubleHonorific) diagnostic(start, fixStart, end int, right string, text string) diagnostic.Diagnostic {
	wrong := text[start:end]
	d := diagnostic.Diagnostic{
		Rule:     r.ID(),
		Severity: diagnostic.Warning,
		Message:  fmt.Sprintf("「%s」は二重敬語です。", wrong),
		Start:    start,
		End:      end,
	}
	if right != "" {
		corrected := text[start:fixStart] + right
		d.Message = fmt.Sprintf("「%s」は二重敬語です。「%s」が適切です。", wrong, corrected)
		d.Fixes = []diagnostic.Fix{
			diagnostic.Replace(fmt.Sprintf("「%s」に修正", corrected), fixStart, end, right),
		}
	}
	return d
}

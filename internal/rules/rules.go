// Package rules implements the grammar checks run over the token stream of
// a segment. Every rule is a pure function of its input and emits
// diagnostics in segment-local byte offsets, in token order.
package rules

import (
	"mozuku/internal/diagnostic"
	"mozuku/internal/morph"
)

// Rule is one named grammar check.
type Rule interface {
	// Name is the configuration key of the rule.
	Name() string
	// ID is the diagnostic code reported to the client.
	ID() string
	Check(tokens []morph.Token, text string) []diagnostic.Diagnostic
}

// All returns every rule in their fixed execution order.
func All(dict Dictionary) []Rule {
	return []Rule{
		raNuki{},
		iNuki{},
		doubleParticle{particles: set(dict.Particles)},
		doubleHonorific{entries: dict.Honorifics},
		redundantExpression{phrases: dict.sortedPhrases()},
		consecutiveEndings{threshold: dict.EndingThreshold},
		tariParallel{},
		consecutiveNo{threshold: dict.PossessiveThreshold},
	}
}

// Names lists the configuration keys of all rules.
func Names() []string {
	var names []string
	for _, r := range All(DefaultDictionary()) {
		names = append(names, r.Name())
	}
	return names
}

// Engine runs a configured subset of the rules.
type Engine struct {
	rules []Rule
}

// NewEngine builds an engine from the rules whose name maps to true in
// enabled. A nil map enables every rule.
func NewEngine(enabled map[string]bool, dict Dictionary) *Engine {
	e := &Engine{}
	for _, r := range All(dict.withDefaults()) {
		if enabled == nil || enabled[r.Name()] {
			e.rules = append(e.rules, r)
		}
	}
	return e
}

// Rules returns the enabled rules.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Run checks one segment. The result is ordered by position and is
// identical for identical input.
func (e *Engine) Run(tokens []morph.Token, text string) []diagnostic.Diagnostic {
	var out []diagnostic.Diagnostic
	for _, r := range e.rules {
		out = append(out, r.Check(tokens, text)...)
	}
	diagnostic.Sort(out)
	return out
}

func set(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		m[morph.Normalize(s)] = true
	}
	return m
}

// adjacent reports whether b directly follows a without a gap.
func adjacent(a, b morph.Token) bool {
	return a.End == b.Start
}

// sentences splits tokens at sentence terminators. The terminators are not
// part of the returned ranges.
func sentences(tokens []morph.Token) [][2]int {
	var out [][2]int
	start := 0
	for i, t := range tokens {
		if isTerminator(t) {
			if i > start {
				out = append(out, [2]int{start, i})
			}
			start = i + 1
		}
	}
	if start < len(tokens) {
		out = append(out, [2]int{start, len(tokens)})
	}
	return out
}

func isTerminator(t morph.Token) bool {
	if t.Is(morph.Symbol) && t.HasDetail("句点") {
		return true
	}
	switch t.Surface {
	case "。", "！", "？", "!", "?", "．":
		return true
	}
	return false
}

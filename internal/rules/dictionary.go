package rules

import (
	"cmp"
	"slices"

	"mozuku/internal/morph"
)

// Honorific is a verb that is already honorific and must not take the
// respectful auxiliary れる/られる on top.
type Honorific struct {
	Lemma        string `toml:"lemma"        json:"lemma"`
	Continuative string `toml:"continuative" json:"continuative"`
}

// Phrase is a redundant lemma sequence. Replacement may reference the
// surface of the n-th matched token as {n}; an empty replacement offers no
// fix.
type Phrase struct {
	Pattern     []string `toml:"pattern"     json:"pattern"`
	Replacement string   `toml:"replacement" json:"replacement"`
	Message     string   `toml:"message"     json:"message"`
}

// Dictionary is the linguistic data the rules match against.
type Dictionary struct {
	Particles           []string    `toml:"particles"            json:"particles"`
	Honorifics          []Honorific `toml:"honorific"            json:"honorific"`
	Phrases             []Phrase    `toml:"redundant"            json:"redundant"`
	EndingThreshold     int         `toml:"ending_threshold"     json:"ending_threshold"`
	PossessiveThreshold int         `toml:"possessive_threshold" json:"possessive_threshold"`
}

// DefaultDictionary returns the built-in data.
func DefaultDictionary() Dictionary {
	return Dictionary{
		Particles: []string{"が", "を", "に", "へ", "で", "と", "から", "まで", "より"},
		Honorifics: []Honorific{
			{Lemma: "おっしゃる", Continuative: "おっしゃい"},
			{Lemma: "いらっしゃる", Continuative: "いらっしゃい"},
			{Lemma: "なさる", Continuative: "なさい"},
			{Lemma: "くださる", Continuative: "ください"},
			{Lemma: "召し上がる", Continuative: "召し上がり"},
			{Lemma: "申し上げる", Continuative: "申し上げ"},
		},
		Phrases: []Phrase{
			{
				Pattern:     []string{"する", "こと", "が", "できる"},
				Replacement: "{3}",
				Message:     "「〜することができる」は「〜できる」と簡潔に書けます。",
			},
			{
				Pattern: []string{"こと", "が", "できる"},
				Message: "「〜ことができる」は「〜できる」と簡潔に書ける場合があります。",
			},
			{
				Pattern: []string{"こと", "が", "可能"},
				Message: "「〜ことが可能」は「〜できる」と簡潔に書ける場合があります。",
			},
			{Pattern: []string{"まず", "最初", "に"}, Replacement: "{1}{2}"},
			{Pattern: []string{"一番", "最初"}, Replacement: "{1}"},
			{Pattern: []string{"一番", "最後"}, Replacement: "{1}"},
			{Pattern: []string{"後", "で", "後悔"}, Replacement: "{2}"},
			{Pattern: []string{"必ず", "必要"}, Replacement: "{1}"},
		},
		EndingThreshold:     3,
		PossessiveThreshold: 3,
	}
}

// withDefaults fills unset fields from DefaultDictionary.
func (d Dictionary) withDefaults() Dictionary {
	def := DefaultDictionary()
	if d.Particles == nil {
		d.Particles = def.Particles
	}
	if d.Honorifics == nil {
		d.Honorifics = def.Honorifics
	}
	if d.Phrases == nil {
		d.Phrases = def.Phrases
	}
	if d.EndingThreshold < 2 {
		d.EndingThreshold = def.EndingThreshold
	}
	if d.PossessiveThreshold < 2 {
		d.PossessiveThreshold = def.PossessiveThreshold
	}
	return d
}

// sortedPhrases normalizes the patterns and orders them longest first so
// that the longest entry wins at a position.
func (d Dictionary) sortedPhrases() []Phrase {
	out := make([]Phrase, 0, len(d.Phrases))
	for _, p := range d.Phrases {
		if len(p.Pattern) == 0 {
			continue
		}
		norm := make([]string, len(p.Pattern))
		for i, s := range p.Pattern {
			norm[i] = morph.Normalize(s)
		}
		p.Pattern = norm
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b Phrase) int {
		return cmp.Compare(len(b.Pattern), len(a.Pattern))
	})
	return out
}

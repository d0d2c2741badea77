// Package morph tokenizes Japanese prose into morphemes. The tokenizer is an
// oracle behind the Tokenizer interface; Analyzer adds a per-document cache.
package morph

import (
	"golang.org/x/text/unicode/norm"
)

// POS is the top-level part-of-speech tag of the IPA dictionary.
type POS string

const (
	Unknown      POS = ""
	Noun         POS = "名詞"
	Verb         POS = "動詞"
	Adjective    POS = "形容詞"
	Adverb       POS = "副詞"
	Particle     POS = "助詞"
	AuxVerb      POS = "助動詞"
	Conjunction  POS = "接続詞"
	Symbol       POS = "記号"
	Prefix       POS = "接頭詞"
	Adnominal    POS = "連体詞"
	Interjection POS = "感動詞"
	Filler       POS = "フィラー"
	Other        POS = "その他"
)

var knownPOS = map[POS]bool{
	Noun: true, Verb: true, Adjective: true, Adverb: true, Particle: true,
	AuxVerb: true, Conjunction: true, Symbol: true, Prefix: true,
	Adnominal: true, Interjection: true, Filler: true, Other: true,
}

// ParsePOS maps a dictionary tag to a POS, returning Unknown for anything
// outside the tag set.
func ParsePOS(tag string) POS {
	if p := POS(tag); knownPOS[p] {
		return p
	}
	return Unknown
}

// Token is one morpheme of a segment. Start and End are byte offsets into
// the segment text.
type Token struct {
	Surface       string
	Lemma         string
	POS           POS
	Detail        [3]string
	ConjType      string
	ConjForm      string
	Reading       string
	Pronunciation string
	Start         int
	End           int
	LeadingSpace  bool
}

// Is reports whether the token has the given tag. Tokens with an
// unrecognized tag never match.
func (t Token) Is(p POS) bool {
	return t.POS != Unknown && t.POS == p
}

// HasDetail reports whether any detail level equals d.
func (t Token) HasDetail(d string) bool {
	for _, x := range t.Detail {
		if x == d {
			return true
		}
	}
	return false
}

// Normalize folds width and compatibility variants so that dictionary
// lookups match both full-width and half-width input.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}

func field(s string) string {
	if s == "*" {
		return ""
	}
	return s
}

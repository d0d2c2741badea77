// Package morphtest provides a small dictionary tokenizer with fixed
// output, so rule and session tests do not depend on the statistical model.
package morphtest

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"mozuku/internal/morph"
)

// Entry is one dictionary word: "surface,pos,detail,conjType,conjForm,lemma".
type Entry string

// Lexicon tokenizes by greedy longest match over its entries. Characters not
// covered by any entry become single-rune tokens with an unknown tag.
type Lexicon struct {
	words []morph.Token
	calls int
}

func New(entries ...Entry) *Lexicon {
	l := &Lexicon{}
	for _, e := range entries {
		f := strings.Split(string(e), ",")
		for len(f) < 6 {
			f = append(f, "")
		}
		lemma := f[5]
		if lemma == "" {
			lemma = f[0]
		}
		l.words = append(l.words, morph.Token{
			Surface:  f[0],
			POS:      morph.ParsePOS(f[1]),
			Detail:   [3]string{f[2]},
			ConjType: f[3],
			ConjForm: f[4],
			Lemma:    lemma,
		})
	}
	sort.SliceStable(l.words, func(i, j int) bool {
		return len(l.words[i].Surface) > len(l.words[j].Surface)
	})
	return l
}

// Calls reports how many times Tokenize ran.
func (l *Lexicon) Calls() int {
	return l.calls
}

func (l *Lexicon) Tokenize(text string) ([]morph.Token, error) {
	l.calls++
	var out []morph.Token
	space := false
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) {
			space = true
			i += size
			continue
		}
		tok := morph.Token{Surface: text[i : i+size], Lemma: text[i : i+size]}
		for _, w := range l.words {
			if strings.HasPrefix(text[i:], w.Surface) {
				tok = w
				break
			}
		}
		tok.Start, tok.End = i, i+len(tok.Surface)
		tok.LeadingSpace = space
		space = false
		out = append(out, tok)
		i = tok.End
	}
	return out, nil
}

// Default covers the vocabulary used by the repository's tests.
func Default() *Lexicon {
	return New(
		"私,名詞,代名詞",
		"彼,名詞,代名詞",
		"先生,名詞,一般",
		"東京,名詞,固有名詞",
		"大学,名詞,一般",
		"友達,名詞,一般",
		"本,名詞,一般",
		"晴れ,名詞,一般",
		"雨,名詞,一般",
		"雪,名詞,一般",
		"今日,名詞,副詞可能",
		"明日,名詞,副詞可能",
		"参加,名詞,サ変接続",
		"こと,名詞,非自立",
		"最初,名詞,副詞可能",
		"一番,名詞,副詞可能",
		"可能,名詞,形容動詞語幹",
		"まず,副詞,一般",
		"が,助詞,格助詞",
		"を,助詞,格助詞",
		"に,助詞,格助詞",
		"で,助詞,格助詞",
		"は,助詞,係助詞",
		"の,助詞,連体化",
		"たり,助詞,並立助詞",
		"だり,助詞,並立助詞",
		"行く,動詞,自立,五段・カ行促音便,基本形,行く",
		"食べ,動詞,自立,一段,未然形,食べる",
		"見,動詞,自立,一段,未然形,見る",
		"来,動詞,自立,カ変・来ル,未然形,来る",
		"書か,動詞,自立,五段・カ行イ音便,未然形,書く",
		"読ん,動詞,自立,五段・マ行,連用タ接続,読む",
		"歩い,動詞,自立,五段・カ行イ音便,連用タ接続,歩く",
		"走っ,動詞,自立,五段・ラ行,連用タ接続,走る",
		"する,動詞,自立,サ変・スル,基本形,する",
		"し,動詞,自立,サ変・スル,連用形,する",
		"でき,動詞,自立,一段,連用形,できる",
		"できる,動詞,自立,一段,基本形,できる",
		"おっしゃら,動詞,自立,五段・ラ行特殊,未然形,おっしゃる",
		"待ち,動詞,自立,五段・タ行,連用形,待つ",
		"なら,動詞,自立,五段・ラ行,未然形,なる",
		"れる,動詞,接尾,一段,基本形,れる",
		"れ,動詞,接尾,一段,連用形,れる",
		"てる,動詞,非自立,一段,基本形,てる",
		"でる,動詞,非自立,一段,基本形,でる",
		"お,接頭詞,名詞接続",
		"ます,助動詞,,特殊・マス,基本形,ます",
		"まし,助動詞,,特殊・マス,連用形,ます",
		"です,助動詞,,特殊・デス,基本形,です",
		"だ,助動詞,,特殊・ダ,基本形,だ",
		"た,助動詞,,特殊・タ,基本形,た",
		"。,記号,句点",
		"、,記号,読点",
	)
}

package morph

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Tokenizer is the morphological oracle: deterministic and total for any
// UTF-8 input.
type Tokenizer interface {
	Tokenize(text string) ([]Token, error)
}

// Kagome tokenizes with kagome and the embedded IPA dictionary. It is safe
// for concurrent use.
type Kagome struct {
	t *tokenizer.Tokenizer
}

// NewKagome loads the IPA dictionary. A failure here leaves the process
// unable to analyze anything.
func NewKagome() (*Kagome, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("load ipa dictionary: %w", err)
	}
	return &Kagome{t: t}, nil
}

func (k *Kagome) Tokenize(text string) (tokens []Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kagome: %v", r)
		}
	}()
	return convert(text, k.t.Tokenize(text)), nil
}

// convert maps kagome tokens onto byte offsets of text. Whitespace-only
// tokens are dropped and recorded as LeadingSpace on the next token.
func convert(text string, kts []tokenizer.Token) []Token {
	out := make([]Token, 0, len(kts))
	cursor := 0
	space := false
	for _, kt := range kts {
		i := strings.Index(text[cursor:], kt.Surface)
		if i < 0 {
			continue
		}
		start := cursor + i
		end := start + len(kt.Surface)
		if start > cursor && strings.TrimFunc(text[cursor:start], unicode.IsSpace) == "" {
			space = true
		}
		cursor = end
		if strings.TrimFunc(kt.Surface, unicode.IsSpace) == "" {
			space = true
			continue
		}

		tok := Token{
			Surface:      kt.Surface,
			Start:        start,
			End:          end,
			LeadingSpace: space,
		}
		space = false

		pos := kt.POS()
		if len(pos) > 0 {
			tok.POS = ParsePOS(pos[0])
		}
		for j := 1; j < len(pos) && j <= 3; j++ {
			tok.Detail[j-1] = field(pos[j])
		}
		if v, ok := kt.InflectionalType(); ok {
			tok.ConjType = field(v)
		}
		if v, ok := kt.InflectionalForm(); ok {
			tok.ConjForm = field(v)
		}
		lemma, ok := kt.BaseForm()
		if !ok || field(lemma) == "" {
			lemma = kt.Surface
		}
		tok.Lemma = Normalize(lemma)
		if v, ok := kt.Reading(); ok {
			tok.Reading = field(v)
		}
		if v, ok := kt.Pronunciation(); ok {
			tok.Pronunciation = field(v)
		}
		out = append(out, tok)
	}
	return out
}

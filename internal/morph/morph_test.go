package morph_test

import (
	"strings"
	"testing"

	"mozuku/internal/morph"
	"mozuku/internal/morph/morphtest"
)

func TestAnalyzerCachesPerVersion(t *testing.T) {
	lex := morphtest.Default()
	a := morph.NewAnalyzer(lex)

	a.Commit(1)
	first := a.Analyze(1, "k1", "私が行く。")
	a.Analyze(1, "k1", "私が行く。")
	if lex.Calls() != 1 || a.Misses() != 1 {
		t.Fatalf("calls = %d, misses = %d", lex.Calls(), a.Misses())
	}
	if len(first) == 0 || first[0].Surface != "私" {
		t.Fatalf("tokens %+v", first)
	}

	a.Commit(2)
	a.Analyze(2, "k1", "私が行く。")
	if lex.Calls() != 2 {
		t.Fatalf("commit kept the old entries, calls = %d", lex.Calls())
	}

	// A late request for an old version is answered but not cached.
	a.Analyze(1, "k2", "彼が行く。")
	a.Analyze(2, "k2", "彼が行く。")
	if lex.Calls() != 4 {
		t.Fatalf("calls = %d, want 4", lex.Calls())
	}
}

func TestParsePOS(t *testing.T) {
	if morph.ParsePOS("名詞") != morph.Noun {
		t.Error("名詞")
	}
	if morph.ParsePOS("謎") != morph.Unknown {
		t.Error("unknown tag should map to Unknown")
	}
	if (morph.Token{}).Is(morph.Unknown) {
		t.Error("Unknown must never match")
	}
}

func TestNormalize(t *testing.T) {
	if morph.Normalize("ｶﾞ") != "ガ" {
		t.Errorf("half-width not folded: %q", morph.Normalize("ｶﾞ"))
	}
	if morph.Normalize("ＡＢＣ") != "ABC" {
		t.Errorf("full-width not folded")
	}
}

func TestAt(t *testing.T) {
	toks, _ := morphtest.Default().Tokenize("私が行く")
	tests := []struct {
		off  int
		want int
	}{
		{0, 0},
		{2, 0},
		{3, 1},
		{6, 2},
		{len("私が行く"), -1},
	}
	for _, tt := range tests {
		if got := morph.At(toks, tt.off); got != tt.want {
			t.Errorf("At(%d) = %d, want %d", tt.off, got, tt.want)
		}
	}
}

func TestPresentation(t *testing.T) {
	tok := morph.Token{
		Surface:  "行っ",
		Lemma:    "行く",
		POS:      morph.Verb,
		Detail:   [3]string{"自立"},
		ConjType: "五段・カ行促音便",
		ConjForm: "連用タ接続",
		Reading:  "イッ",
	}
	md := morph.HoverMarkdown(tok)
	for _, want := range []string{"## 行っ", "動詞-自立", "**基本形**: 行く", "**活用形**: 連用タ接続", "**読み**: イッ"} {
		if !strings.Contains(md, want) {
			t.Errorf("hover lacks %q:\n%s", want, md)
		}
	}
	if morph.SemanticLegend[morph.SemanticType(tok)] != "function" {
		t.Errorf("verb type = %d", morph.SemanticType(tok))
	}
	if morph.SemanticType(morph.Token{Surface: "?"}) != len(morph.SemanticLegend)-1 {
		t.Error("unknown tokens should use the last legend entry")
	}
	if !strings.Contains(morph.HoverMarkdown(morph.Token{Surface: "?"}), "未知語") {
		t.Error("unknown tag not rendered")
	}
}

func TestKagome(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the IPA dictionary")
	}
	k, err := morph.NewKagome()
	if err != nil {
		t.Fatal(err)
	}
	text := "私は 東京に行きました。"
	toks, err := k.Tokenize(text)
	if err != nil {
		t.Fatal(err)
	}
	if len(toks) < 5 {
		t.Fatalf("tokens %+v", toks)
	}
	for i, tok := range toks {
		if text[tok.Start:tok.End] != tok.Surface {
			t.Errorf("token %d %q does not match its span", i, tok.Surface)
		}
		if i > 0 && tok.Start < toks[i-1].End {
			t.Errorf("token %d overlaps its predecessor", i)
		}
	}
	if !toks[0].Is(morph.Noun) || toks[0].Surface != "私" {
		t.Errorf("first token %+v", toks[0])
	}
	if !toks[1].Is(morph.Particle) {
		t.Errorf("は tagged %q", toks[1].POS)
	}
	if !toks[2].LeadingSpace || toks[2].Surface != "東京" {
		t.Errorf("space before 東京 not recorded: %+v", toks[2])
	}
	var verb *morph.Token
	for i := range toks {
		if toks[i].Is(morph.Verb) {
			verb = &toks[i]
			break
		}
	}
	if verb == nil || verb.Lemma != "行く" {
		t.Errorf("verb %+v", verb)
	}
}

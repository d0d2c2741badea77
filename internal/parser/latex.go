package parser

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// LaTeX token kinds reported by LaTeX.Nodes.
const (
	TexComment     = "Comment"
	TexDisplayMath = "DisplayMath"
	TexInlineMath  = "InlineMath"
	TexMathOpen    = "MathOpen"
	TexMathClose   = "MathClose"
	TexCommand     = "Command"
	TexLBrace      = "LBrace"
	TexRBrace      = "RBrace"
	TexLBracket    = "LBracket"
	TexRBracket    = "RBracket"
	TexBlankLine   = "BlankLine"
	TexNewline     = "Newline"
	TexText        = "Text"
	TexDollar      = "Dollar"
)

var latexLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: TexComment, Pattern: `%[^\n]*`},
	{Name: TexDisplayMath, Pattern: `\$\$(?:[^$]|\$[^$])*\$\$`},
	{Name: TexInlineMath, Pattern: `\$(?:\\.|[^$\\])+\$`},
	{Name: TexMathOpen, Pattern: `\\\(|\\\[`},
	{Name: TexMathClose, Pattern: `\\\)|\\\]`},
	{Name: TexCommand, Pattern: `\\(?:[A-Za-z@]+\*?|[^A-Za-z@])`},
	{Name: TexLBrace, Pattern: `\{`},
	{Name: TexRBrace, Pattern: `\}`},
	{Name: TexLBracket, Pattern: `\[`},
	{Name: TexRBracket, Pattern: `\]`},
	{Name: TexBlankLine, Pattern: `\n[ \t\r]*\n(?:[ \t\r]*\n)*`},
	{Name: TexNewline, Pattern: `\n`},
	{Name: TexText, Pattern: `[^\\{}\[\]$%\n]+`},
	{Name: TexDollar, Pattern: `\$`},
})

var latexKinds = func() map[lexer.TokenType]string {
	kinds := map[lexer.TokenType]string{}
	for name, typ := range latexLexer.Symbols() {
		kinds[typ] = name
	}
	return kinds
}()

// LaTeX is the lexer backend for LaTeX sources. It reports every token as a
// node; the extraction strategy decides which of them carry prose.
type LaTeX struct{}

func (LaTeX) Nodes(source []byte) ([]Node, error) {
	lex, err := latexLexer.Lex("", strings.NewReader(string(source)))
	if err != nil {
		return nil, fmt.Errorf("lex latex: %w", err)
	}
	var nodes []Node
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, fmt.Errorf("lex latex: %w", err)
		}
		if tok.EOF() {
			return nodes, nil
		}
		nodes = append(nodes, Node{
			Kind:    latexKinds[tok.Type],
			Capture: tok.Value,
			Start:   tok.Pos.Offset,
			End:     tok.Pos.Offset + len(tok.Value),
		})
	}
}

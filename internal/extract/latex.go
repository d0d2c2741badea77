package extract

import (
	"strings"

	"mozuku/internal/parser"
)

// Commands whose arguments are prose. Arguments of every other command are
// excluded together with the command name.
var proseCommands = map[string]bool{
	"emph": true, "textbf": true, "textit": true, "textsl": true, "textsc": true,
	"textup": true, "textmd": true, "textrm": true, "textsf": true, "underline": true,
	"mbox": true, "footnote": true, "caption": true, "title": true, "author": true,
	"part": true, "chapter": true, "section": true, "subsection": true,
	"subsubsection": true, "paragraph": true, "subparagraph": true,
}

// Commands that start a new logical paragraph.
var breakCommands = map[string]bool{
	"par": true, "item": true, "begin": true, "end": true, "maketitle": true,
	"part": true, "chapter": true, "section": true, "subsection": true,
	"subsubsection": true, "paragraph": true, "subparagraph": true,
	"caption": true, "footnote": true, "title": true, "author": true,
}

// Environments skipped entirely.
var skippedEnvs = map[string]bool{
	"equation": true, "align": true, "gather": true, "multline": true, "eqnarray": true,
	"math": true, "displaymath": true, "flalign": true, "alignat": true,
	"verbatim": true, "lstlisting": true, "minted": true, "comment": true,
	"tikzpicture": true,
}

type texFrame struct {
	prose   bool
	command string
	breaks  bool
}

// latexStrategy keeps text outside commands, command arguments and math.
// Commands and math inside a paragraph do not split it; blank lines,
// \par, \item, sectioning and environment boundaries do.
type latexStrategy struct {
	backend Backend
}

func (s latexStrategy) Extract(text string) ([]Segment, error) {
	nodes, err := s.backend.Nodes([]byte(text))
	if err != nil {
		return nil, err
	}

	b := newBuilder(text)
	frames := []texFrame{{prose: true}}
	top := func() *texFrame { return &frames[len(frames)-1] }

	var (
		command   string // command waiting for its arguments
		argIndex  int
		optDepth  int // inside [optional] arguments
		skipEnv   string
		skipMath  bool
		envName   strings.Builder
		inEnvName bool
	)

	for i := 0; i < len(nodes); i++ {
		n := nodes[i]

		if skipEnv != "" {
			if end, ok := envEnd(nodes, i, skipEnv); ok {
				i = end
				skipEnv = ""
			}
			continue
		}
		if skipMath {
			if n.Kind == parser.TexMathClose {
				skipMath = false
			}
			continue
		}
		if optDepth > 0 {
			switch n.Kind {
			case parser.TexLBracket:
				optDepth++
			case parser.TexRBracket:
				optDepth--
			}
			continue
		}

		if command != "" {
			switch {
			case n.Kind == parser.TexLBracket:
				optDepth = 1
				continue
			case n.Kind == parser.TexLBrace:
				prose := top().prose && argIsProse(command, argIndex)
				frames = append(frames, texFrame{prose: prose, command: command, breaks: breakCommands[command]})
				inEnvName = command == "begin" || command == "end"
				envName.Reset()
				argIndex++
				continue
			case n.Kind == parser.TexText && isBlank(n.Capture):
				continue
			default:
				command = ""
			}
		}

		switch n.Kind {
		case parser.TexComment, parser.TexInlineMath, parser.TexDisplayMath, parser.TexDollar:
		case parser.TexMathOpen:
			skipMath = true
		case parser.TexMathClose:
		case parser.TexBlankLine:
			b.flush()
		case parser.TexNewline:
			if top().prose {
				b.add(n.Start, n.End)
			}
		case parser.TexText, parser.TexLBracket, parser.TexRBracket:
			if inEnvName {
				envName.WriteString(n.Capture)
			}
			if top().prose {
				b.add(n.Start, n.End)
			}
		case parser.TexLBrace:
			frames = append(frames, texFrame{prose: top().prose})
		case parser.TexRBrace:
			if len(frames) == 1 {
				continue
			}
			closed := frames[len(frames)-1]
			frames = frames[:len(frames)-1]
			if inEnvName {
				inEnvName = false
				name := strings.TrimSuffix(strings.TrimSpace(envName.String()), "*")
				if closed.command == "begin" && skippedEnvs[name] {
					skipEnv = name
				}
			}
			if closed.breaks {
				b.flush()
			}
			if closed.command != "" {
				// further {arguments} may follow
				command = closed.command
			}
		case parser.TexCommand:
			name := strings.TrimSuffix(strings.TrimPrefix(n.Capture, `\`), "*")
			if len(name) == 1 && !isLetter(name[0]) {
				if top().prose && strings.Contains(`%&$#_{}`, name) {
					b.add(n.Start+1, n.End)
				}
				continue
			}
			if breakCommands[name] {
				b.flush()
			}
			command = name
			argIndex = 0
		}
	}
	return b.segments(), nil
}

func argIsProse(command string, index int) bool {
	if command == "href" {
		return index == 1
	}
	return proseCommands[command]
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '@'
}

// envEnd matches \end{name} starting at nodes[i] and returns the index of
// its closing brace.
func envEnd(nodes []parser.Node, i int, name string) (int, bool) {
	if nodes[i].Kind != parser.TexCommand || nodes[i].Capture != `\end` {
		return 0, false
	}
	if i+3 >= len(nodes) || nodes[i+1].Kind != parser.TexLBrace || nodes[i+3].Kind != parser.TexRBrace {
		return 0, false
	}
	got := strings.TrimSuffix(strings.TrimSpace(nodes[i+2].Capture), "*")
	return i + 3, got == name
}

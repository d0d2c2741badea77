package parser

import (
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

const commentQuery = `(comment) @comment`

const pythonQuery = `
(comment) @comment
(module . (expression_statement (string) @docstring))
(function_definition body: (block . (expression_statement (string) @docstring)))
(class_definition body: (block . (expression_statement (string) @docstring)))
`

const rustQuery = `
(line_comment) @comment
(block_comment) @comment
`

var grammars = map[string]func() *Grammar{
	"html": func() *Grammar {
		return &Grammar{Name: "html", Language: html.GetLanguage()}
	},
	"go":         commentGrammar("go", golang.GetLanguage()),
	"javascript": commentGrammar("javascript", javascript.GetLanguage()),
	"typescript": commentGrammar("typescript", typescript.GetLanguage()),
	"tsx":        commentGrammar("tsx", tsx.GetLanguage()),
	"c":          commentGrammar("c", c.GetLanguage()),
	"cpp":        commentGrammar("cpp", cpp.GetLanguage()),
	"python": func() *Grammar {
		return &Grammar{Name: "python", Language: python.GetLanguage(), Query: pythonQuery}
	},
	"rust": func() *Grammar {
		return &Grammar{Name: "rust", Language: rust.GetLanguage(), Query: rustQuery}
	},
}

func commentGrammar(name string, lang *sitter.Language) func() *Grammar {
	return func() *Grammar {
		return &Grammar{Name: name, Language: lang, Query: commentQuery}
	}
}

// PoolSize bounds the number of live parsers per grammar.
const PoolSize = 4

var (
	poolsMu sync.Mutex
	pools   = map[string]*ParserPool{}
)

// Pool returns the shared parser pool for the named grammar, or nil when no
// such grammar is bundled.
func Pool(name string) *ParserPool {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	if pp, ok := pools[name]; ok {
		return pp
	}
	newGrammar, ok := grammars[name]
	if !ok {
		return nil
	}
	pp := NewParserPool(PoolSize, newGrammar())
	pools[name] = pp
	return pp
}

// ClosePools releases every idle parser of every grammar.
func ClosePools() {
	poolsMu.Lock()
	defer poolsMu.Unlock()
	for name, pp := range pools {
		pp.Close()
		delete(pools, name)
	}
}

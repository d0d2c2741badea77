// Package parser provides the syntax backends of the extraction engine. A
// backend reduces a source file to a flat list of nodes carrying only a kind
// and a byte range.
package parser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

var ErrNoTree = errors.New("parser: no syntax tree produced")

// Node is a syntax node reduced to its kind and byte range. Depth is the
// nesting depth for walked trees; Capture is the query capture name for
// queried trees.
type Node struct {
	Kind    string
	Capture string
	Start   int
	End     int
	Depth   int
}

// Grammar describes one tree-sitter language. When Query is empty the whole
// tree is walked, otherwise only the query captures are reported.
type Grammar struct {
	Name     string
	Language *sitter.Language
	Query    string
}

func executeQuery(
	root *sitter.Node,
	q *sitter.Query,
	source []byte,
) []Node {
	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	var nodes []Node
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		m = qc.FilterPredicates(m, source)
		for _, c := range m.Captures {
			nodes = append(nodes, Node{
				Kind:    c.Node.Type(),
				Capture: q.CaptureNameForId(c.Index),
				Start:   int(c.Node.StartByte()),
				End:     int(c.Node.EndByte()),
			})
		}
	}
	return nodes
}

func walk(n *sitter.Node, depth int, out []Node) []Node {
	out = append(out, Node{
		Kind:  n.Type(),
		Start: int(n.StartByte()),
		End:   int(n.EndByte()),
		Depth: depth,
	})
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = walk(n.NamedChild(i), depth+1, out)
	}
	return out
}

// Parser wraps a tree-sitter parser instance for one grammar.
type Parser struct {
	parser  *sitter.Parser
	grammar *Grammar
	query   *sitter.Query
}

// NewParser creates a Parser for g. The grammar query, if any, is compiled
// once here.
func NewParser(g *Grammar) (*Parser, error) {
	p := sitter.NewParser()
	p.SetLanguage(g.Language)
	parser := &Parser{parser: p, grammar: g}
	if g.Query != "" {
		q, err := sitter.NewQuery([]byte(g.Query), g.Language)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("compile %s query: %w", g.Name, err)
		}
		parser.query = q
	}
	return parser, nil
}

// Nodes parses source from scratch and reports its nodes in document order.
func (p *Parser) Nodes(ctx context.Context, source []byte) ([]Node, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", p.grammar.Name, err)
	}
	if tree == nil {
		return nil, ErrNoTree
	}
	defer tree.Close()

	root := tree.RootNode()
	if p.query != nil {
		return executeQuery(root, p.query, source), nil
	}
	return walk(root, 0, nil), nil
}

// Close frees any resources held by the Parser.
func (p *Parser) Close() error {
	if p.query != nil {
		p.query.Close()
		p.query = nil
	}
	if p.parser != nil {
		p.parser.Close()
		p.parser = nil
	}
	return nil
}

// ParserPool maintains a pool of Parser instances for one grammar. Parsers
// are created on demand up to the pool size.
type ParserPool struct {
	grammar *Grammar
	pool    chan *Parser
	mu      sync.Mutex
	created int
}

// NewParserPool creates a ParserPool holding at most n parsers for g.
func NewParserPool(n int, g *Grammar) *ParserPool {
	return &ParserPool{
		grammar: g,
		pool:    make(chan *Parser, n),
	}
}

func (pp *ParserPool) acquire() (*Parser, error) {
	select {
	case p := <-pp.pool:
		return p, nil
	default:
	}

	pp.mu.Lock()
	if pp.created < cap(pp.pool) {
		pp.created++
		pp.mu.Unlock()
		p, err := NewParser(pp.grammar)
		if err != nil {
			pp.mu.Lock()
			pp.created--
			pp.mu.Unlock()
			return nil, err
		}
		return p, nil
	}
	pp.mu.Unlock()
	return <-pp.pool, nil
}

// Nodes performs a one-time parse of source using a pooled Parser.
func (pp *ParserPool) Nodes(source []byte) ([]Node, error) {
	p, err := pp.acquire()
	if err != nil {
		return nil, err
	}
	defer func() { pp.pool <- p }()
	return p.Nodes(context.Background(), source)
}

// Close releases all idle Parser instances in the pool.
func (pp *ParserPool) Close() error {
	for {
		select {
		case p := <-pp.pool:
			p.Close()
		default:
			return nil
		}
	}
}

// Package extract finds the natural-language prose inside documents of
// different formats. Each format has a strategy that works on the nodes
// reported by a syntax backend and emits segments with origin tables.
package extract

import (
	"errors"
	"fmt"

	"mozuku/internal/parser"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mozuku.extract")

var ErrUnsupported = errors.New("extract: unsupported format")

// Backend is the capability a strategy needs from a parser: node kinds and
// node byte ranges.
type Backend interface {
	Nodes(source []byte) ([]parser.Node, error)
}

// Strategy turns the text of one format into segments.
type Strategy interface {
	Extract(text string) ([]Segment, error)
}

// Engine dispatches documents to the strategy of their format.
type Engine struct {
	strategies map[Format]Strategy
}

// NewEngine returns an engine with the bundled backends.
func NewEngine() *Engine {
	e := &Engine{strategies: map[Format]Strategy{
		Plain:    plainStrategy{},
		Markdown: markdownStrategy{backend: parser.Markdown{}},
		LaTeX:    latexStrategy{backend: parser.LaTeX{}},
		HTML:     htmlStrategy{backend: poolBackend("html")},
	}}
	sources := map[Format]string{
		Go:         "go",
		Python:     "python",
		Rust:       "rust",
		JavaScript: "javascript",
		TypeScript: "typescript",
		TSX:        "tsx",
		C:          "c",
		CPP:        "cpp",
	}
	for f, grammar := range sources {
		e.strategies[f] = commentStrategy{backend: poolBackend(grammar)}
	}
	return e
}

// Register replaces the strategy used for f.
func (e *Engine) Register(f Format, s Strategy) {
	e.strategies[f] = s
}

// Extract returns the prose segments of text. It never fails: when the
// strategy of the format cannot handle the input the whole text is treated
// as plain text.
func (e *Engine) Extract(f Format, text string) []Segment {
	segs, err := e.extract(f, text)
	if err != nil {
		log.Warningf("falling back to plain text for %s: %v", f, err)
		return wholeText(text)
	}
	return segs
}

func (e *Engine) extract(f Format, text string) ([]Segment, error) {
	s, ok := e.strategies[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, f)
	}
	return s.Extract(text)
}

// wholeText is the fallback: the entire file as a single segment.
func wholeText(text string) []Segment {
	b := newBuilder(text)
	b.add(0, len(text))
	return b.segments()
}

type lazyPool struct {
	name string
}

func (l lazyPool) Nodes(source []byte) ([]parser.Node, error) {
	pp := parser.Pool(l.name)
	if pp == nil {
		return nil, fmt.Errorf("%w: no %s grammar", ErrUnsupported, l.name)
	}
	return pp.Nodes(source)
}

func poolBackend(name string) Backend {
	return lazyPool{name: name}
}

package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/markdown"
)

// InlineCapture marks nodes that come from an inline tree rather than the
// block tree.
const InlineCapture = "inline"

// Markdown parses the block structure and then every inline node with the
// inline grammar. Block nodes are reported as a walk; the nodes of each
// inline tree follow the block node they belong to with Capture set to
// InlineCapture.
type Markdown struct{}

func (Markdown) Nodes(source []byte) ([]Node, error) {
	tree, err := markdown.ParseCtx(context.Background(), nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse markdown: %w", err)
	}
	if tree == nil || tree.BlockTree() == nil {
		return nil, ErrNoTree
	}
	defer func() {
		for _, t := range tree.InlineTrees() {
			t.Close()
		}
		tree.BlockTree().Close()
	}()

	var nodes []Node
	depths := map[uintptr]int{tree.BlockTree().RootNode().ID(): 0}
	tree.Iter(func(n *markdown.Node) bool {
		depth := depths[n.ID()]
		for i := 0; i < int(n.NamedChildCount()); i++ {
			depths[n.NamedChild(i).ID()] = depth + 1
		}
		nodes = append(nodes, Node{
			Kind:  n.Type(),
			Start: int(n.StartByte()),
			End:   int(n.EndByte()),
			Depth: depth,
		})
		if n.Inline != nil {
			nodes = walkInline(n.Inline, 0, nodes)
		}
		return true
	})
	return nodes, nil
}

func walkInline(n *sitter.Node, depth int, out []Node) []Node {
	out = append(out, Node{
		Kind:    n.Type(),
		Capture: InlineCapture,
		Start:   int(n.StartByte()),
		End:     int(n.EndByte()),
		Depth:   depth,
	})
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = walkInline(n.NamedChild(i), depth+1, out)
	}
	return out
}

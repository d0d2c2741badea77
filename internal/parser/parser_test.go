package parser

import (
	"strings"
	"sync"
	"testing"
)

func TestPoolUnknownGrammar(t *testing.T) {
	if Pool("cobol") != nil {
		t.Fatal("unexpected grammar")
	}
	if Pool("markdown") != nil {
		t.Fatal("markdown is parsed by the two-tree backend, not a pool")
	}
	if Pool("go") != Pool("go") {
		t.Fatal("pools are not shared")
	}
}

func TestClosePools(t *testing.T) {
	before := Pool("go")
	if _, err := before.Nodes([]byte("// a\n")); err != nil {
		t.Fatal(err)
	}
	ClosePools()
	after := Pool("go")
	if after == before {
		t.Fatal("closed pool handed out again")
	}
	if _, err := after.Nodes([]byte("// b\n")); err != nil {
		t.Fatalf("fresh pool: %v", err)
	}
}

func TestCommentQuery(t *testing.T) {
	src := []byte("package main\n\n// 日本語の説明\nfunc main() { /* 本文 */ }\n")
	nodes, err := Pool("go").Nodes(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes: %+v", len(nodes), nodes)
	}
	if got := string(src[nodes[0].Start:nodes[0].End]); got != "// 日本語の説明" {
		t.Errorf("first comment %q", got)
	}
	for _, n := range nodes {
		if n.Capture != "comment" {
			t.Errorf("capture %q", n.Capture)
		}
	}
}

func TestPythonDocstring(t *testing.T) {
	src := []byte("def f():\n    \"\"\"説明です。\"\"\"\n    # 注釈\n    return 1\n")
	nodes, err := Pool("python").Nodes(src)
	if err != nil {
		t.Fatal(err)
	}
	captures := map[string]int{}
	for _, n := range nodes {
		captures[n.Capture]++
	}
	if captures["docstring"] != 1 || captures["comment"] != 1 {
		t.Fatalf("captures %v", captures)
	}
}

func TestMarkdownNodes(t *testing.T) {
	src := []byte("# 見出し\n\n本文は`code`です。\n")
	nodes, err := Markdown{}.Nodes(src)
	if err != nil {
		t.Fatal(err)
	}
	if nodes[0].Depth != 0 || nodes[0].Start != 0 || nodes[0].Capture != "" {
		t.Errorf("root %+v", nodes[0])
	}
	var block, inline []string
	var span Node
	for _, n := range nodes {
		if n.Capture == InlineCapture {
			inline = append(inline, n.Kind)
			if n.Kind == "code_span" {
				span = n
			}
			continue
		}
		block = append(block, n.Kind)
	}
	joined := strings.Join(block, " ")
	if !strings.Contains(joined, "atx_heading") || !strings.Contains(joined, "paragraph") {
		t.Errorf("block kinds %s", joined)
	}
	if got := string(src[span.Start:span.End]); got != "`code`" {
		t.Errorf("code span %q, inline kinds %v", got, inline)
	}
}

func TestPoolConcurrent(t *testing.T) {
	pp := NewParserPool(2, grammars["html"]())
	defer pp.Close()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := pp.Nodes([]byte("<p>本文</p>")); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
	if pp.created > 2 {
		t.Errorf("created %d parsers", pp.created)
	}
}

func TestLaTeXNodes(t *testing.T) {
	src := "本文 $x$ \\textbf{強調}% 注\n\n次"
	nodes, err := LaTeX{}.Nodes([]byte(src))
	if err != nil {
		t.Fatal(err)
	}
	var kinds []string
	for _, n := range nodes {
		if src[n.Start:n.End] != n.Capture {
			t.Errorf("%s node %q does not match its range", n.Kind, n.Capture)
		}
		kinds = append(kinds, n.Kind)
	}
	want := []string{
		TexText, TexInlineMath, TexText, TexCommand, TexLBrace, TexText,
		TexRBrace, TexComment, TexBlankLine, TexText,
	}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("kinds %v, want %v", kinds, want)
	}
}

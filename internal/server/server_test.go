package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mozuku/internal/morph/morphtest"
	"mozuku/internal/parser"
	"mozuku/internal/session"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const docURI = "file:///tmp/note.txt"

type client struct {
	mu   sync.Mutex
	sent []protocol.PublishDiagnosticsParams
}

func (c *client) notify(method string, params any) {
	if method != "textDocument/publishDiagnostics" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, params.(protocol.PublishDiagnosticsParams))
}

func (c *client) last(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		t.Fatal("nothing published")
	}
	return c.sent[len(c.sent)-1]
}

func (c *client) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func start(t *testing.T, options any) (*Server, *client, *glsp.Context) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	c := &client{}
	ctx := &glsp.Context{Notify: c.notify}
	s := New(Options{Version: "test", Tokenizer: morphtest.Default(), NoCache: true})
	root := "file://" + t.TempDir()
	result, err := s.initialize(ctx, &protocol.InitializeParams{
		RootURI:               &root,
		InitializationOptions: options,
	})
	if err != nil {
		t.Fatal(err)
	}
	info := result.(protocol.InitializeResult)
	if info.ServerInfo == nil || info.ServerInfo.Name != Name {
		t.Errorf("server info %+v", info.ServerInfo)
	}
	t.Cleanup(func() { s.shutdown(ctx) })
	return s, c, ctx
}

func open(t *testing.T, s *Server, ctx *glsp.Context, text string) {
	t.Helper()
	err := s.textDocumentDidOpen(ctx, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: docURI, LanguageID: "plaintext", Version: 1, Text: text},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCapabilities(t *testing.T) {
	c := &client{}
	s := New(Options{Tokenizer: morphtest.Default(), NoCache: true})
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	result, err := s.initialize(&glsp.Context{Notify: c.notify}, &protocol.InitializeParams{})
	if err != nil {
		t.Fatal(err)
	}
	caps := result.(protocol.InitializeResult).Capabilities
	ts, ok := caps.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	if !ok || *ts.Change != protocol.TextDocumentSyncKindIncremental || !*ts.Save.(*protocol.SaveOptions).IncludeText {
		t.Errorf("sync = %+v", caps.TextDocumentSync)
	}
	tokens, ok := caps.SemanticTokensProvider.(protocol.SemanticTokensOptions)
	if !ok || len(tokens.Legend.TokenTypes) == 0 {
		t.Errorf("semantic tokens = %+v", caps.SemanticTokensProvider)
	}
	if caps.HoverProvider != true {
		t.Error("hover not advertised")
	}
	pool := parser.Pool("go")
	s.shutdown(nil)
	if parser.Pool("go") == pool {
		t.Error("shutdown kept the parser pools")
	}
}

func TestBeforeInitialize(t *testing.T) {
	s := New(Options{})
	err := s.textDocumentDidOpen(nil, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: docURI, Text: "本文"},
	})
	if err == nil {
		t.Fatal("expected an error before initialize")
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s, c, ctx := start(t, nil)
	open(t, s, ctx, "私がが行く。")

	p := c.last(t)
	if p.URI != docURI || p.Version == nil || *p.Version != 1 || len(p.Diagnostics) != 1 {
		t.Fatalf("published %+v", p)
	}

	// Delete the second が.
	err := s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEvent{
			Range: &protocol.Range{
				Start: protocol.Position{Line: 0, Character: 2},
				End:   protocol.Position{Line: 0, Character: 3},
			},
			Text: "",
		}},
	})
	if err != nil {
		t.Fatal(err)
	}
	p = c.last(t)
	if *p.Version != 2 || len(p.Diagnostics) != 0 {
		t.Fatalf("after edit %+v", p)
	}

	// A late notification is ignored.
	err = s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: docURI},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "x"}},
	})
	if err != nil {
		t.Fatalf("stale change: %v", err)
	}

	text := "私がが行く。"
	if err := s.textDocumentDidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		Text:         &text,
	}); err != nil {
		t.Fatal(err)
	}
	if len(c.last(t).Diagnostics) != 1 {
		t.Fatal("save did not re-check")
	}

	if err := s.textDocumentDidClose(ctx, &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
	}); err != nil {
		t.Fatal(err)
	}
	if p := c.last(t); len(p.Diagnostics) != 0 || p.Diagnostics == nil {
		t.Fatalf("close should clear with an empty list, got %+v", p)
	}
	if _, err := s.textDocumentHover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: docURI},
		},
	}); err == nil {
		t.Fatal("hover on a closed document should fail")
	}
}

func TestQueries(t *testing.T) {
	s, _, ctx := start(t, nil)
	open(t, s, ctx, "私がが行く。")
	id := protocol.TextDocumentIdentifier{URI: docURI}

	hover, err := s.textDocumentHover(ctx, &protocol.HoverParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: id,
			Position:     protocol.Position{Line: 0, Character: 0},
		},
	})
	if err != nil || hover == nil {
		t.Fatalf("hover = %v, %v", hover, err)
	}

	tokens, err := s.textDocumentSemanticTokensFull(ctx, &protocol.SemanticTokensParams{TextDocument: id})
	if err != nil || len(tokens.Data) == 0 || len(tokens.Data)%5 != 0 {
		t.Fatalf("tokens = %v, %v", tokens, err)
	}

	result, err := s.textDocumentCodeAction(ctx, &protocol.CodeActionParams{
		TextDocument: id,
		Range:        protocol.Range{Start: protocol.Position{Character: 1}, End: protocol.Position{Character: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	actions := result.([]protocol.CodeAction)
	if len(actions) != 1 || actions[0].Edit == nil {
		t.Fatalf("actions = %+v", actions)
	}
}

func TestDidChangeConfiguration(t *testing.T) {
	s, c, ctx := start(t, nil)
	open(t, s, ctx, "私がが行く。")
	before := c.count()

	err := s.workspaceDidChangeConfiguration(ctx, &protocol.DidChangeConfigurationParams{
		Settings: map[string]any{"mozuku": map[string]any{"checker": map[string]any{"double_particle": false}}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if c.count() == before {
		t.Fatal("open documents were not re-checked")
	}
	if p := c.last(t); len(p.Diagnostics) != 0 {
		t.Fatalf("disabled rule still reported: %+v", p.Diagnostics)
	}
}

func TestInitializationOptionsDisableRules(t *testing.T) {
	s, c, ctx := start(t, map[string]any{"checker": map[string]any{"double_particle": false}})
	open(t, s, ctx, "私がが行く。")
	if p := c.last(t); len(p.Diagnostics) != 0 {
		t.Fatalf("disabled rule reported: %+v", p.Diagnostics)
	}
}

func TestAugmentationEndToEnd(t *testing.T) {
	answer := `{"suggestions":[{"original":"行く","suggestion":"参る","explanation":"謙譲語","confidence":0.9}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": answer}},
		})
	}))
	defer srv.Close()

	s, c, ctx := start(t, map[string]any{
		"llm":     map[string]any{"provider": "claude", "api_key": "secret", "base_url": srv.URL},
		"augment": map[string]any{"debounce_ms": 10},
	})
	open(t, s, ctx, "私がが行く。")

	deadline := time.Now().Add(3 * time.Second)
	for {
		p := c.last(t)
		if len(p.Diagnostics) == 2 {
			llm := p.Diagnostics[1]
			if llm.Source == nil || *llm.Source != "mozuku-llm" {
				t.Fatalf("source = %v", llm.Source)
			}
			if llm.Range.Start.Character != 3 || llm.Range.End.Character != 5 {
				t.Fatalf("range = %+v", llm.Range)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("no augmented publish, last %+v", p)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestRewriteActionResolvesLazily(t *testing.T) {
	var mu sync.Mutex
	var issues []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		prompt := ""
		if len(req.Messages) > 0 && len(req.Messages[0].Content) > 0 {
			prompt = req.Messages[0].Content[0].Text
		}
		answer := `{"suggestions":[]}`
		if strings.Contains(prompt, "【検出された問題】") {
			mu.Lock()
			issues = append(issues, prompt)
			mu.Unlock()
			answer = `{"suggestions":[{"original":"がが","suggestion":"が","explanation":"重複","confidence":0.9}]}`
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":      "msg_1",
			"type":    "message",
			"role":    "assistant",
			"content": []map[string]string{{"type": "text", "text": answer}},
		})
	}))
	defer srv.Close()

	s, _, ctx := start(t, map[string]any{
		"llm":     map[string]any{"provider": "claude", "api_key": "secret", "base_url": srv.URL},
		"augment": map[string]any{"debounce_ms": 60000},
	})
	open(t, s, ctx, "私がが行く。")
	id := protocol.TextDocumentIdentifier{URI: docURI}

	result, err := s.textDocumentCodeAction(ctx, &protocol.CodeActionParams{
		TextDocument: id,
		Range:        protocol.Range{Start: protocol.Position{Character: 1}, End: protocol.Position{Character: 2}},
	})
	if err != nil {
		t.Fatal(err)
	}
	actions := result.([]protocol.CodeAction)
	if len(actions) != 2 {
		t.Fatalf("actions = %+v", actions)
	}
	offered := actions[1]
	if !strings.HasPrefix(offered.Title, "AIによる修正提案") || offered.Edit != nil {
		t.Fatalf("rewrite offered as %+v", offered)
	}
	if *offered.Kind != protocol.CodeActionKindRefactorRewrite {
		t.Errorf("kind = %s", *offered.Kind)
	}
	mu.Lock()
	asked := len(issues)
	mu.Unlock()
	if asked != 0 {
		t.Fatal("the model was asked before the action was resolved")
	}

	// The client sends the action back as plain JSON.
	raw, err := json.Marshal(offered)
	if err != nil {
		t.Fatal(err)
	}
	var sent protocol.CodeAction
	if err := json.Unmarshal(raw, &sent); err != nil {
		t.Fatal(err)
	}
	resolved, err := s.codeActionResolve(ctx, &sent)
	if err != nil {
		t.Fatal(err)
	}
	if resolved.Edit == nil {
		t.Fatalf("no edit in %+v", resolved)
	}
	edits := resolved.Edit.Changes[protocol.DocumentUri(docURI)]
	if len(edits) != 1 || edits[0].NewText != "が" ||
		edits[0].Range.Start.Character != 1 || edits[0].Range.End.Character != 3 {
		t.Fatalf("edits = %+v", edits)
	}
	mu.Lock()
	if len(issues) != 1 || !strings.Contains(issues[0], "助詞「が」が重複しています。") {
		t.Errorf("the rule message was not sent: %q", issues)
	}
	mu.Unlock()

	err = s.textDocumentDidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: id,
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "彼がが来る。"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	var again protocol.CodeAction
	if err := json.Unmarshal(raw, &again); err != nil {
		t.Fatal(err)
	}
	if _, err := s.codeActionResolve(ctx, &again); !errors.Is(err, session.ErrStaleVersion) {
		t.Fatalf("resolving against edited text: %v", err)
	}
}

package cache

import (
	"path/filepath"
	"testing"
	"time"

	"mozuku/internal/llm"
)

var sample = []llm.Suggestion{{
	Original:    "行ける",
	Suggestion:  "行くことができる",
	Explanation: "可能表現",
	Confidence:  0.8,
}}

func TestKey(t *testing.T) {
	a := Key("claude", "m", "本文")
	if a != Key("claude", "m", "本文") {
		t.Fatal("key is not stable")
	}
	if a == Key("openai", "m", "本文") || a == Key("claude", "m2", "本文") || a == Key("claude", "m", "本文。") {
		t.Fatal("key ignores an input")
	}
	// separators keep field boundaries apart
	if Key("ab", "c", "") == Key("a", "bc", "") {
		t.Fatal("key collides across fields")
	}
}

func TestMemory(t *testing.T) {
	c := NewMemory()
	if _, ok := c.Get("k"); ok {
		t.Fatal("unexpected hit")
	}
	if err := c.Put("k", sample); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get("k")
	if !ok || len(got) != 1 || got[0].Suggestion != "行くことができる" {
		t.Fatalf("got %v %v", got, ok)
	}
}

func TestMemoryPrune(t *testing.T) {
	l := newMapLayer()
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }
	l.Put("old", sample)
	now = now.Add(time.Hour)
	l.Put("new", sample)

	n, err := l.Prune(30 * time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("pruned %d, %v", n, err)
	}
	if _, ok := l.Get("old"); ok {
		t.Error("old entry survived")
	}
	if _, ok := l.Get("new"); !ok {
		t.Error("new entry pruned")
	}
}

func TestFilecacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	fc, err := NewFilecache(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := fc.Put("k", sample); err != nil {
		t.Fatal(err)
	}
	if err := fc.Close(); err != nil {
		t.Fatal(err)
	}

	fc, err = NewFilecache(path)
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()
	got, ok := fc.Get("k")
	if !ok {
		t.Fatal("entry lost after reopen")
	}
	if len(got) != 1 || got[0] != sample[0] {
		t.Fatalf("got %+v", got)
	}
	if _, ok := fc.Get("missing"); ok {
		t.Fatal("unexpected hit")
	}
}

func TestFilecacheOverwriteAndPrune(t *testing.T) {
	fc, err := NewFilecache(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()

	now := time.Unix(10_000, 0)
	fc.now = func() time.Time { return now }
	fc.Put("a", sample)
	fc.Put("b", sample)
	now = now.Add(2 * time.Hour)
	fc.Put("b", nil)

	n, err := fc.Prune(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, ok := fc.Get("a"); ok {
		t.Error("a should be pruned")
	}
	got, ok := fc.Get("b")
	if !ok || len(got) != 0 {
		t.Errorf("b = %v %v", got, ok)
	}
}

func TestHybridFallsBackToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	h, err := NewHybrid(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Put("k", sample); err != nil {
		t.Fatal(err)
	}
	h.Close()

	h, err = NewHybrid(path)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()
	if _, ok := h.tmpLayer.Get("k"); ok {
		t.Fatal("memory layer should start empty")
	}
	if _, ok := h.Get("k"); !ok {
		t.Fatal("file layer miss")
	}
	if _, ok := h.tmpLayer.Get("k"); !ok {
		t.Fatal("hit was not promoted to memory")
	}
}

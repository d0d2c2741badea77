package cache

import (
	"errors"
	"time"

	"mozuku/internal/llm"
)

// Hybrid answers from memory first and falls back to the file, keeping the
// two layers in step.
type Hybrid struct {
	tmpLayer *mapLayer
	pstLayer *Filecache
}

// NewHybrid opens the file cache at path behind a memory layer.
func NewHybrid(path string) (*Hybrid, error) {
	fc, err := NewFilecache(path)
	if err != nil {
		return nil, err
	}
	return &Hybrid{tmpLayer: newMapLayer(), pstLayer: fc}, nil
}

func (h *Hybrid) Get(key string) ([]llm.Suggestion, bool) {
	if s, ok := h.tmpLayer.Get(key); ok {
		return s, true
	}
	e, ok := h.pstLayer.entry(key)
	if !ok {
		return nil, false
	}
	h.tmpLayer.put(key, e)
	return e.Suggestions, true
}

func (h *Hybrid) Put(key string, suggestions []llm.Suggestion) error {
	h.tmpLayer.Put(key, suggestions)
	return h.pstLayer.Put(key, suggestions)
}

func (h *Hybrid) Prune(maxAge time.Duration) (int64, error) {
	h.tmpLayer.Prune(maxAge)
	return h.pstLayer.Prune(maxAge)
}

func (h *Hybrid) Close() error {
	return errors.Join(h.tmpLayer.Close(), h.pstLayer.Close())
}

package cache

import (
	"sync"
	"time"

	"mozuku/internal/llm"
)

// mapLayer is the in-memory layer.
type mapLayer struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

func newMapLayer() *mapLayer {
	return &mapLayer{entries: make(map[string]Entry), now: time.Now}
}

// NewMemory returns a cache that lives as long as the process.
func NewMemory() Cache {
	return newMapLayer()
}

func (l *mapLayer) Get(key string) ([]llm.Suggestion, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[key]
	return e.Suggestions, ok
}

func (l *mapLayer) Put(key string, suggestions []llm.Suggestion) error {
	l.put(key, Entry{Suggestions: suggestions, Created: l.now()})
	return nil
}

func (l *mapLayer) put(key string, e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = e
}

func (l *mapLayer) Prune(maxAge time.Duration) (int64, error) {
	cutoff := l.now().Add(-maxAge)
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for k, e := range l.entries {
		if e.Created.Before(cutoff) {
			delete(l.entries, k)
			n++
		}
	}
	return n, nil
}

func (l *mapLayer) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]Entry)
	return nil
}

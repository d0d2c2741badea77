// Package cache stores provider answers so that unchanged prose is not sent
// to the language model twice. A memory layer sits in front of an optional
// SQLite file.
package cache

import (
	"encoding/hex"
	"errors"
	"time"

	"mozuku/internal/llm"

	"github.com/tliron/commonlog"
	"github.com/zeebo/blake3"
)

var log = commonlog.GetLogger("mozuku.cache")

var ErrClosed = errors.New("cache: closed")

// Entry is a cached answer.
type Entry struct {
	Suggestions []llm.Suggestion
	Created     time.Time
}

type Cache interface {
	Get(key string) ([]llm.Suggestion, bool)
	Put(key string, suggestions []llm.Suggestion) error
	// Prune drops entries older than maxAge and reports how many it removed.
	Prune(maxAge time.Duration) (int64, error)
	Close() error
}

// Key identifies the answer of one model to one text.
func Key(provider, model, text string) string {
	h := blake3.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

package morph

import (
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mozuku.morph")

// Analyzer caches tokenizations of one document. Entries are keyed by
// segment content hash and live for a single document version: committing
// a newer version drops every entry.
type Analyzer struct {
	tokenizer Tokenizer

	mu      sync.Mutex
	version int32
	cache   map[string][]Token
	misses  int
}

func NewAnalyzer(t Tokenizer) *Analyzer {
	return &Analyzer{tokenizer: t, cache: make(map[string][]Token)}
}

// Commit makes version the current one and drops the entries of every
// other version.
func (a *Analyzer) Commit(version int32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if version == a.version {
		return
	}
	a.version = version
	a.cache = make(map[string][]Token)
}

// Analyze returns the tokens of a segment text for the given version. A
// tokenizer failure is logged and yields no tokens.
func (a *Analyzer) Analyze(version int32, key string, text string) []Token {
	a.mu.Lock()
	if version == a.version {
		if toks, ok := a.cache[key]; ok {
			a.mu.Unlock()
			return toks
		}
	}
	a.mu.Unlock()

	toks, err := a.tokenizer.Tokenize(text)
	if err != nil {
		log.Errorf("tokenize segment %.8s: %v", key, err)
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.misses++
	if version == a.version {
		a.cache[key] = toks
	}
	return toks
}

// Misses counts successful tokenizer invocations.
func (a *Analyzer) Misses() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.misses
}

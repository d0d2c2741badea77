package augment

import (
	"context"
	"errors"
	"fmt"

	"mozuku/internal/diagnostic"
	"mozuku/internal/extract"
	"mozuku/internal/llm"
)

// ErrNoRewrite means the model proposed nothing for the requested span.
var ErrNoRewrite = errors.New("augment: no rewrite proposed")

// Rewrite asks the provider to correct the segment of text that contains
// [start, end), telling it that issue was found there. The answer is the
// first suggestion overlapping the span, in document offsets and with one
// fix. Rewrites share the response cache and retry policy of the
// background jobs but bypass the debounce queue.
func (c *Coordinator) Rewrite(ctx context.Context, format extract.Format, text string, start, end int, issue string) (diagnostic.Diagnostic, error) {
	if !c.Enabled() {
		return diagnostic.Diagnostic{}, llm.ErrDisabled
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(c.base, cancel)()

	segments := c.extract.Extract(format, text)
	for i := range segments {
		seg := &segments[i]
		if _, ok := seg.Local(start); !ok {
			continue
		}
		req := llm.Request{Text: seg.Text, Issue: issue}
		if i > 0 {
			req.Context = excerpt(segments[i-1].Text)
		}
		suggestions, err := c.suggest(ctx, req)
		if err != nil {
			return diagnostic.Diagnostic{}, fmt.Errorf("rewrite: %w", err)
		}
		for _, d := range c.convert(seg, suggestions) {
			if d.Start < end && d.End > start && len(d.Fixes) > 0 {
				return d, nil
			}
		}
		return diagnostic.Diagnostic{}, fmt.Errorf("%w: %d suggestion(s) outside [%d,%d)", ErrNoRewrite, len(suggestions), start, end)
	}
	return diagnostic.Diagnostic{}, fmt.Errorf("%w: offset %d is not prose", ErrNoRewrite, start)
}

// Package augment runs the slow proofreading path. After an edit settles it
// sends the document prose to a language model and hands the suggestions
// back to the session that owns the document, provided that document has
// not moved on in the meantime.
package augment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mozuku/internal/cache"
	"mozuku/internal/diagnostic"
	"mozuku/internal/extract"
	"mozuku/internal/llm"
	"mozuku/internal/scheduler"
	"mozuku/internal/session"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("mozuku.augment")

// Sink receives suggestions in document byte offsets.
type Sink interface {
	ApplyAugmentation(uri string, stamp session.Stamp, diags []diagnostic.Diagnostic) error
}

// Queue accepts tasks without blocking.
type Queue interface {
	TrySchedule(task scheduler.Task) bool
}

const (
	DefaultDebounce   = 1500 * time.Millisecond
	DefaultMaxRetries = 2
	DefaultBackoff    = 500 * time.Millisecond
)

type Options struct {
	Debounce   time.Duration
	MaxRetries int
	Backoff    time.Duration
	// MinConfidence drops suggestions the model is unsure about.
	MinConfidence float64
	// MaxSegments caps the segments sent per job; 0 means all.
	MaxSegments int
}

func (o *Options) defaults() {
	if o.Debounce <= 0 {
		o.Debounce = DefaultDebounce
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = DefaultBackoff
	}
}

// slot is the single register of a document: its pending timer and its
// latest job.
type slot struct {
	timer *time.Timer
	job   *Job
}

type Coordinator struct {
	provider llm.Provider
	sink     Sink
	queue    Queue
	cache    cache.Cache
	extract  *extract.Engine
	opts     Options

	base context.Context
	stop context.CancelFunc

	mu    sync.Mutex
	slots map[string]*slot
}

// New returns a coordinator. A nil provider disables it: Touch and Forget
// become no-ops. A nil cache means answers are not remembered.
func New(provider llm.Provider, sink Sink, queue Queue, c cache.Cache, ex *extract.Engine, opts Options) *Coordinator {
	opts.defaults()
	if ex == nil {
		ex = extract.NewEngine()
	}
	base, stop := context.WithCancel(context.Background())
	return &Coordinator{
		provider: provider,
		sink:     sink,
		queue:    queue,
		cache:    c,
		extract:  ex,
		opts:     opts,
		base:     base,
		stop:     stop,
		slots:    make(map[string]*slot),
	}
}

func (c *Coordinator) Enabled() bool {
	return c != nil && c.provider != nil
}

// Touch re-arms the debounce timer of uri. The previous job of the document
// is cancelled whether or not it has started.
func (c *Coordinator) Touch(uri string, stamp session.Stamp, format extract.Format, text string) {
	if !c.Enabled() {
		return
	}
	job := NewJob(c.base, uri, stamp, format, text, c.provider.Name())

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[uri]
	if !ok {
		s = &slot{}
		c.slots[uri] = s
	}
	s.supersede()
	s.job = job
	s.timer = time.AfterFunc(c.opts.Debounce, func() { c.issue(job) })
}

// Forget drops the register of uri and cancels its job.
func (c *Coordinator) Forget(uri string) {
	if !c.Enabled() {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[uri]; ok {
		s.supersede()
		delete(c.slots, uri)
	}
}

// Job returns the latest job of uri, if any.
func (c *Coordinator) Job(uri string) *Job {
	if !c.Enabled() {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[uri]; ok {
		return s.job
	}
	return nil
}

// Close cancels every job. The coordinator must not be used afterwards.
func (c *Coordinator) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	for uri, s := range c.slots {
		s.supersede()
		delete(c.slots, uri)
	}
	c.mu.Unlock()
	c.stop()
}

func (s *slot) supersede() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.job != nil {
		s.job.Cancel()
	}
}

// issue hands a job whose debounce expired to the queue.
func (c *Coordinator) issue(job *Job) {
	if job.Status() != JobStatusPending {
		return
	}
	task := scheduler.Task{
		Name:    fmt.Sprintf("augment %s@%s", job.URI, job.Stamp),
		Execute: func() error { return c.Run(job.Context(), job) },
	}
	if c.queue == nil || !c.queue.TrySchedule(task) {
		log.Warningf("dropping augmentation of %s@%s, queue is full", job.URI, job.Stamp)
		job.finish(JobStatusFailed)
	}
}

// Run executes job synchronously. Provider failures fail the job and are
// returned; a superseded job or a document that moved on cancels it and
// yields nil.
func (c *Coordinator) Run(ctx context.Context, job *Job) error {
	if err := ctx.Err(); err != nil {
		job.finish(JobStatusCancelled)
		return nil
	}
	segments := c.extract.Extract(job.Format, job.Text)
	if c.opts.MaxSegments > 0 && len(segments) > c.opts.MaxSegments {
		log.Debugf("%s: sending %d of %d segments", job.URI, c.opts.MaxSegments, len(segments))
		segments = segments[:c.opts.MaxSegments]
	}

	var diags []diagnostic.Diagnostic
	for i := range segments {
		seg := &segments[i]
		req := llm.Request{Text: seg.Text}
		if i > 0 {
			req.Context = excerpt(segments[i-1].Text)
		}
		suggestions, err := c.suggest(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				job.finish(JobStatusCancelled)
				return nil
			}
			job.finish(JobStatusFailed)
			return fmt.Errorf("augment %s@%s: %w", job.URI, job.Stamp, err)
		}
		diags = append(diags, c.convert(seg, suggestions)...)
	}
	diagnostic.Sort(diags)

	if ctx.Err() != nil {
		job.finish(JobStatusCancelled)
		return nil
	}
	if err := c.sink.ApplyAugmentation(job.URI, job.Stamp, diags); err != nil {
		if errors.Is(err, session.ErrStaleVersion) || errors.Is(err, session.ErrClosed) {
			log.Debugf("discarding augmentation: %v", err)
			job.finish(JobStatusCancelled)
			return nil
		}
		job.finish(JobStatusFailed)
		return err
	}
	job.finish(JobStatusCompleted)
	log.Infof("%s@%s: %d suggestion(s) from %s", job.URI, job.Stamp, len(diags), job.Provider)
	return nil
}

// suggest answers from the cache or asks the provider, retrying rate limits
// and temporary failures with exponential backoff.
func (c *Coordinator) suggest(ctx context.Context, req llm.Request) ([]llm.Suggestion, error) {
	key := cache.Key(c.provider.Name(), c.provider.Model(), req.Context+"\x00"+req.Issue+"\x00"+req.Text)
	if c.cache != nil {
		if s, ok := c.cache.Get(key); ok {
			return s, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.opts.Backoff << (attempt - 1)
			log.Debugf("retrying %s in %s: %v", c.provider.Name(), delay, lastErr)
			if err := sleepWithCtx(ctx, delay); err != nil {
				return nil, err
			}
		}
		suggestions, err := c.provider.Submit(ctx, req)
		if err == nil {
			if c.cache != nil {
				if err := c.cache.Put(key, suggestions); err != nil {
					log.Warningf("caching response: %v", err)
				}
			}
			return suggestions, nil
		}
		lastErr = err
		if !llm.Retryable(err) {
			break
		}
	}
	return nil, lastErr
}

func sleepWithCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

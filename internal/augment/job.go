package augment

import (
	"context"
	"sync"

	"mozuku/internal/extract"
	"mozuku/internal/session"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one provider round trip for one text of a document.
type Job struct {
	ID       string
	URI      string
	Stamp    session.Stamp
	Format   extract.Format
	Text     string
	Provider string

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	status JobStatus
}

// NewJob returns a pending job whose context derives from parent.
func NewJob(parent context.Context, uri string, stamp session.Stamp, format extract.Format, text, provider string) *Job {
	ctx, cancel := context.WithCancel(parent)
	return &Job{
		ID:       uuid.New().String(),
		URI:      uri,
		Stamp:    stamp,
		Format:   format,
		Text:     text,
		Provider: provider,
		ctx:      ctx,
		cancel:   cancel,
		status:   JobStatusPending,
	}
}

func (j *Job) Context() context.Context { return j.ctx }

func (j *Job) Status() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// Cancel supersedes a pending job. Finished jobs keep their status.
func (j *Job) Cancel() {
	j.cancel()
	j.finish(JobStatusCancelled)
}

// finish moves a pending job to a terminal status and reports whether it
// did.
func (j *Job) finish(status JobStatus) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != JobStatusPending {
		return false
	}
	j.status = status
	if status != JobStatusCancelled {
		j.cancel()
	}
	return true
}

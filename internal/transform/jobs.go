package transform

import (
	"sort"
	"time"
)

// JobStatus tracks a job through the in-memory queue.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// IsTerminal reports whether the job has finished, successfully or not.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Job records one transform request from enqueue to completion. Jobs live
// only in memory; the durable outcome is written to the photo record.
type Job struct {
	ID              string
	PhotoID         string
	Preset          string
	Provider        string
	Status          JobStatus
	Error           string
	Retryable       bool
	TransformedPath string
	Elapsed         time.Duration
	EnqueuedAt      time.Time
	StartedAt       time.Time
	FinishedAt      time.Time
}

// EnqueueResult is returned from Enqueue. AlreadyCompleted short-circuits:
// no job was created because the photo already has a styled result.
type EnqueueResult struct {
	JobID            string
	AlreadyCompleted bool
	TransformedPath  string
}

// Job returns a copy of the job with the given ID.
func (o *Orchestrator) Job(id string) (Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	job, ok := o.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns copies of all tracked jobs, oldest first.
func (o *Orchestrator) Jobs() []Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
	})
	return out
}

// QueueDepth reports how many jobs are waiting to run.
func (o *Orchestrator) QueueDepth() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.fifo)
}

// evictHistoryLocked drops the oldest terminal jobs once the tracked set
// exceeds the history limit. Callers must hold o.mu.
func (o *Orchestrator) evictHistoryLocked() {
	if o.historyLimit <= 0 || len(o.jobs) <= o.historyLimit {
		return
	}
	terminal := make([]*Job, 0, len(o.jobs))
	for _, job := range o.jobs {
		if job.Status.IsTerminal() {
			terminal = append(terminal, job)
		}
	}
	sort.Slice(terminal, func(i, j int) bool {
		return terminal[i].FinishedAt.Before(terminal[j].FinishedAt)
	})
	for _, job := range terminal {
		if len(o.jobs) <= o.historyLimit {
			return
		}
		delete(o.jobs, job.ID)
	}
}

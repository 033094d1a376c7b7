package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"audio2video/internal/domain"
)

// ErrJobBusy is returned when removing a job that is currently running.
var ErrJobBusy = errors.New("job is running")

// ErrJobNotFound is returned when no job with the given id exists.
var ErrJobNotFound = errors.New("job not found")

// ClearResult distinguishes a full clear from one that retained running jobs.
type ClearResult struct {
	Removed  int
	Retained int
}

// Queue holds the ordered collection of conversion jobs. Processing order is
// insertion order; a retried job is appended at the end, never replayed in
// place. All mutation goes through the queue so the state machine edges are
// enforced in one place.
type Queue struct {
	mu   sync.RWMutex
	jobs []*domain.Job
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Append adds a job at the end of the queue in queued state.
func (q *Queue) Append(job domain.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.Status = domain.JobStatusQueued
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	q.jobs = append(q.jobs, &job)
}

// Get returns a snapshot of the job with the given id.
func (q *Queue) Get(id string) (domain.Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	job := q.find(id)
	if job == nil {
		return domain.Job{}, false
	}
	return snapshot(job), true
}

// Jobs returns snapshots of all jobs in insertion order.
func (q *Queue) Jobs() []domain.Job {
	q.mu.RLock()
	defer q.mu.RUnlock()

	out := make([]domain.Job, 0, len(q.jobs))
	for _, job := range q.jobs {
		out = append(out, snapshot(job))
	}
	return out
}

// Remove deletes a job. Running jobs cannot be removed; cancel them first.
func (q *Queue) Remove(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, job := range q.jobs {
		if job.ID != id {
			continue
		}
		if job.Status == domain.JobStatusRunning {
			return ErrJobBusy
		}
		q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
		return nil
	}
	return ErrJobNotFound
}

// Clear removes all non-running jobs and reports how many were retained
// because they are still running.
func (q *Queue) Clear() ClearResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	var result ClearResult
	kept := q.jobs[:0]
	for _, job := range q.jobs {
		if job.Status == domain.JobStatusRunning {
			kept = append(kept, job)
			result.Retained++
			continue
		}
		result.Removed++
	}
	q.jobs = kept
	return result
}

// HasQueued reports whether at least one job is waiting to run.
func (q *Queue) HasQueued() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, job := range q.jobs {
		if job.Status == domain.JobStatusQueued {
			return true
		}
	}
	return false
}

// ClaimNext atomically moves the earliest queued job to running, freezing
// the given cover path into it. Once running, the cover used is fixed.
func (q *Queue) ClaimNext(coverPath string) (domain.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, job := range q.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		job.Status = domain.JobStatusRunning
		job.CoverPath = coverPath
		job.StartedAt = time.Now()
		return snapshot(job), true
	}
	return domain.Job{}, false
}

// CancelOutcome describes what CancelQueued did with the job.
type CancelOutcome int

const (
	// CancelOutcomeCancelled means the queued job was transitioned to
	// cancelled by this call.
	CancelOutcomeCancelled CancelOutcome = iota
	// CancelOutcomeRunning means the job must be cancelled through its
	// executor instead.
	CancelOutcomeRunning
	// CancelOutcomeTerminal means the job was already terminal and the
	// call was a no-op.
	CancelOutcomeTerminal
)

// CancelQueued cancels a job only if it is still queued.
func (q *Queue) CancelQueued(id string) (CancelOutcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := q.find(id)
	if job == nil {
		return CancelOutcomeTerminal, ErrJobNotFound
	}
	switch job.Status {
	case domain.JobStatusQueued:
		job.Status = domain.JobStatusCancelled
		job.FinishedAt = time.Now()
		return CancelOutcomeCancelled, nil
	case domain.JobStatusRunning:
		return CancelOutcomeRunning, nil
	default:
		return CancelOutcomeTerminal, nil
	}
}

// FailAllQueued fails every queued job with the same root cause. Used when
// the encoder binary itself cannot be launched and no job can proceed.
func (q *Queue) FailAllQueued(cause string) []string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var failed []string
	now := time.Now()
	for _, job := range q.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		job.Status = domain.JobStatusFailed
		job.Error = cause
		job.FinishedAt = now
		failed = append(failed, job.ID)
	}
	return failed
}

// SetDuration records the resolved audio duration for a running job.
func (q *Queue) SetDuration(id string, d time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job := q.find(id); job != nil {
		job.Duration = d
	}
}

// SetOutputPath records the resolved destination for a running job.
func (q *Queue) SetOutputPath(id, path string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if job := q.find(id); job != nil {
		job.OutputPath = path
	}
}

// SetProgress updates the progress of a running job. Updates after the job
// reached a terminal state are dropped.
func (q *Queue) SetProgress(id string, p domain.Progress) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := q.find(id)
	if job == nil || job.Status != domain.JobStatusRunning {
		return
	}
	job.Progress = p
}

// Finish applies a validated terminal transition with an optional error
// message and diagnostic tail.
func (q *Queue) Finish(id string, status domain.JobStatus, errMsg string, logTail []string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := q.find(id)
	if job == nil {
		return ErrJobNotFound
	}
	if !isValidTransition(job.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", job.Status, status)
	}

	job.Status = status
	job.Error = errMsg
	job.LogTail = logTail
	job.FinishedAt = time.Now()
	if status == domain.JobStatusCompleted && !job.Progress.Indeterminate {
		job.Progress = domain.Progress{Fraction: 1.0}
	}
	return nil
}

// find returns the stored job for id. Caller must hold the lock.
func (q *Queue) find(id string) *domain.Job {
	for _, job := range q.jobs {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// snapshot copies a job so callers never share queue-owned memory.
func snapshot(job *domain.Job) domain.Job {
	out := *job
	if job.LogTail != nil {
		out.LogTail = append([]string(nil), job.LogTail...)
	}
	return out
}

// isValidTransition enforces the allowed job state machine edges. Terminal
// states have no outgoing edges; retry creates a fresh job instead.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusQueued:
		return to == domain.JobStatusRunning || to == domain.JobStatusCancelled
	case domain.JobStatusRunning:
		return to == domain.JobStatusCompleted || to == domain.JobStatusFailed || to == domain.JobStatusCancelled
	default:
		return false
	}
}

package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"audio2video/internal/convert"
	"audio2video/internal/domain"
)

// ErrMissingCoverImage is returned by Start when no cover has been selected.
var ErrMissingCoverImage = errors.New("no cover image selected")

// ErrEmptyQueue is returned by Start when there is nothing queued to convert.
var ErrEmptyQueue = errors.New("no queued audio files")

// ErrNotRetryable is returned when retrying a job that is not failed or
// cancelled.
var ErrNotRetryable = errors.New("only failed or cancelled jobs can be retried")

// ErrUnsupportedAudio is returned when a submitted file has no supported
// audio extension.
var ErrUnsupportedAudio = errors.New("unsupported audio format")

// ErrUnsupportedImage is returned when the selected cover has no supported
// image extension.
var ErrUnsupportedImage = errors.New("unsupported image format")

// outputExtension is the fixed container extension for every conversion.
const outputExtension = ".mpg"

// Encoder runs exactly one conversion and reports a terminal outcome. It is
// an out-of-process capability behind an interface so tests can substitute
// a fake implementation.
type Encoder interface {
	Run(ctx context.Context, req convert.Request) error
}

// DurationProber resolves the total duration of an audio file.
type DurationProber interface {
	Duration(ctx context.Context, audioPath string) (time.Duration, error)
}

// OutputResolver computes and reserves collision-free destination paths.
type OutputResolver interface {
	Resolve(dir, base, ext string) (string, error)
	Release(path string)
}

// Controller drives the queue under a bounded worker count. Control
// operations never block the caller; all encoder interaction happens on
// background goroutines and effects are observed through the event bus.
type Controller struct {
	queue    *Queue
	events   *EventBus
	encoder  Encoder
	prober   DurationProber
	resolver OutputResolver
	logger   *slog.Logger
	settings domain.Settings

	mu             sync.Mutex
	coverPath      string
	running        bool
	halted         bool
	haltCause      string
	cancels        map[string]context.CancelFunc
	pendingCancels map[string]struct{}
	wg             sync.WaitGroup
}

// NewController wires the queue coordinator.
func NewController(
	encoder Encoder,
	prober DurationProber,
	resolver OutputResolver,
	events *EventBus,
	logger *slog.Logger,
	settings domain.Settings,
) *Controller {
	if settings.Workers <= 0 {
		settings.Workers = 1
	}
	return &Controller{
		queue:          NewQueue(),
		events:         events,
		encoder:        encoder,
		prober:         prober,
		resolver:       resolver,
		logger:         logger,
		settings:       settings,
		cancels:        make(map[string]context.CancelFunc),
		pendingCancels: make(map[string]struct{}),
	}
}

// SetCover selects the cover image used by jobs that start from now on.
// Jobs already running keep the cover they were started with.
func (c *Controller) SetCover(path string) error {
	path = strings.TrimSpace(path)
	if path == "" || !domain.IsSupportedImageFile(path) {
		return fmt.Errorf("%w: %s", ErrUnsupportedImage, path)
	}

	c.mu.Lock()
	c.coverPath = path
	c.mu.Unlock()
	return nil
}

// Cover returns the currently selected cover image path.
func (c *Controller) Cover() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.coverPath
}

// Add enqueues one job per audio path and returns the created records.
func (c *Controller) Add(audioPaths ...string) ([]domain.Job, error) {
	for _, path := range audioPaths {
		if !domain.IsSupportedAudioFile(path) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedAudio, path)
		}
	}

	created := make([]domain.Job, 0, len(audioPaths))
	for _, path := range audioPaths {
		job := domain.Job{
			ID:        uuid.NewString(),
			InputPath: path,
			Status:    domain.JobStatusQueued,
			CreatedAt: time.Now(),
		}
		c.queue.Append(job)
		created = append(created, job)
		c.events.Publish(Event{
			JobID:   job.ID,
			Type:    EventTypeSubmitted,
			Status:  domain.JobStatusQueued,
			Message: filepath.Base(path),
		})
	}
	return created, nil
}

// Jobs returns snapshots of all jobs in insertion order.
func (c *Controller) Jobs() []domain.Job {
	return c.queue.Jobs()
}

// Start begins draining queued jobs with the configured worker count. It
// returns immediately; completion is observed via the drained event or Wait.
// Calling Start while a drain is in flight is a no-op.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil
	}
	if c.coverPath == "" {
		c.mu.Unlock()
		return ErrMissingCoverImage
	}
	if !c.queue.HasQueued() {
		c.mu.Unlock()
		return ErrEmptyQueue
	}
	c.running = true
	c.halted = false
	c.haltCause = ""
	workers := c.settings.Workers
	c.mu.Unlock()

	for i := 0; i < workers; i++ {
		c.wg.Add(1)
		go c.worker()
	}

	go func() {
		c.wg.Wait()
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.events.Publish(Event{Type: EventTypeDrained, Message: "all jobs terminal"})
	}()

	return nil
}

// Wait blocks until the current drain finishes. Intended for batch callers;
// interactive surfaces should watch for the drained event instead.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Cancel requests cancellation of a job. A queued job is cancelled
// immediately; a running job is asked to stop through its executor; a
// terminal job is left untouched.
func (c *Controller) Cancel(id string) error {
	outcome, err := c.queue.CancelQueued(id)
	if err != nil {
		return err
	}
	switch outcome {
	case CancelOutcomeCancelled:
		c.publishStatus(id, domain.JobStatusCancelled, "cancelled before start")
		return nil
	case CancelOutcomeTerminal:
		return nil
	}

	// Running. The cancel func may not be registered yet: the claim happens
	// under the queue lock, registration under the controller lock. Record
	// the request so runJob applies it right after registering.
	c.mu.Lock()
	cancel := c.cancels[id]
	if cancel == nil {
		c.pendingCancels[id] = struct{}{}
	}
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

// Retry enqueues a fresh job with the same input path as a failed or
// cancelled one. The original record is left unchanged; the new job goes to
// the end of the queue with reset progress and no error.
func (c *Controller) Retry(id string) (domain.Job, error) {
	orig, ok := c.queue.Get(id)
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	if orig.Status != domain.JobStatusFailed && orig.Status != domain.JobStatusCancelled {
		return domain.Job{}, ErrNotRetryable
	}

	fresh := domain.Job{
		ID:        uuid.NewString(),
		InputPath: orig.InputPath,
		Status:    domain.JobStatusQueued,
		CreatedAt: time.Now(),
	}
	c.queue.Append(fresh)
	c.events.Publish(Event{
		JobID:   fresh.ID,
		Type:    EventTypeSubmitted,
		Status:  domain.JobStatusQueued,
		Message: fmt.Sprintf("retry of %s", filepath.Base(orig.InputPath)),
	})
	return fresh, nil
}

// Remove deletes a non-running job from the queue.
func (c *Controller) Remove(id string) error {
	return c.queue.Remove(id)
}

// ClearAll removes every non-running job and reports what was retained.
func (c *Controller) ClearAll() ClearResult {
	return c.queue.Clear()
}

// worker claims queued jobs until the queue is empty or the controller was
// halted by an encoder launch failure.
func (c *Controller) worker() {
	defer c.wg.Done()

	for {
		c.mu.Lock()
		halted := c.halted
		cause := c.haltCause
		cover := c.coverPath
		c.mu.Unlock()

		if halted {
			c.failQueued(cause)
			return
		}

		job, ok := c.queue.ClaimNext(cover)
		if !ok {
			return
		}
		c.runJob(job)
	}
}

// runJob prepares and executes one claimed job.
func (c *Controller) runJob(job domain.Job) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancels[job.ID] = cancel
	_, cancelledEarly := c.pendingCancels[job.ID]
	delete(c.pendingCancels, job.ID)
	c.mu.Unlock()
	if cancelledEarly {
		cancel()
	}
	defer func() {
		cancel()
		c.mu.Lock()
		delete(c.cancels, job.ID)
		c.mu.Unlock()
	}()

	logger := c.logger.With("job", job.ID, "input", filepath.Base(job.InputPath))
	c.publishStatus(job.ID, domain.JobStatusRunning, "conversion started")

	duration, err := c.prober.Duration(ctx, job.InputPath)
	if err != nil {
		logger.Warn("audio duration unknown, running with indeterminate progress", "error", err)
		duration = 0
	} else {
		c.queue.SetDuration(job.ID, duration)
	}

	base := strings.TrimSuffix(filepath.Base(job.InputPath), filepath.Ext(job.InputPath))
	outputPath, err := c.resolver.Resolve(c.settings.OutputDir, base, outputExtension)
	if err != nil {
		c.finishJob(job.ID, domain.JobStatusFailed, err.Error(), nil)
		return
	}
	c.queue.SetOutputPath(job.ID, outputPath)

	req := convert.Request{
		Spec: convert.EncodeSpec{
			AudioPath:    job.InputPath,
			CoverPath:    job.CoverPath,
			OutputPath:   outputPath,
			VideoBitrate: c.settings.VideoBitrate,
			AudioBitrate: c.settings.AudioBitrate,
			Width:        c.settings.Width,
			Height:       c.settings.Height,
			FrameRate:    c.settings.FrameRate,
		},
		Duration: duration,
		OnProgress: func(snap convert.Snapshot) {
			c.queue.SetProgress(job.ID, snap.Progress)
			progress := snap.Progress
			c.events.Publish(Event{
				JobID:    job.ID,
				Type:     EventTypeProgress,
				Status:   domain.JobStatusRunning,
				Progress: &progress,
			})
		},
		OnLog: func(line string) {
			logger.Debug("encoder", "line", line)
			c.events.Publish(Event{
				JobID:   job.ID,
				Type:    EventTypeLog,
				Status:  domain.JobStatusRunning,
				Message: line,
			})
		},
	}

	runErr := c.encoder.Run(ctx, req)
	switch {
	case runErr == nil:
		c.finishJob(job.ID, domain.JobStatusCompleted, "", nil)
		logger.Info("conversion completed", "output", outputPath)
	case errors.Is(runErr, context.Canceled):
		c.resolver.Release(outputPath)
		c.finishJob(job.ID, domain.JobStatusCancelled, "", nil)
		logger.Info("conversion cancelled")
	case convert.IsLaunchFailure(runErr):
		c.resolver.Release(outputPath)
		c.finishJob(job.ID, domain.JobStatusFailed, runErr.Error(), logTailOf(runErr))
		logger.Error("encoder could not be launched, halting queue", "error", runErr)
		c.mu.Lock()
		c.halted = true
		c.haltCause = runErr.Error()
		c.mu.Unlock()
	default:
		c.resolver.Release(outputPath)
		c.finishJob(job.ID, domain.JobStatusFailed, runErr.Error(), logTailOf(runErr))
		logger.Error("conversion failed", "error", runErr)
	}
}

// failQueued marks every still-queued job failed with the queue-fatal cause.
// Retrying without fixing the environment is pointless, so nothing proceeds.
func (c *Controller) failQueued(cause string) {
	for _, id := range c.queue.FailAllQueued(cause) {
		c.publishStatus(id, domain.JobStatusFailed, cause)
	}
}

// finishJob applies the terminal transition and surfaces it as an event.
func (c *Controller) finishJob(id string, status domain.JobStatus, errMsg string, logTail []string) {
	if err := c.queue.Finish(id, status, errMsg, logTail); err != nil {
		c.logger.Warn("job finish rejected", "job", id, "status", status, "error", err)
		return
	}
	c.publishStatus(id, status, errMsg)
}

// publishStatus sends a normalized status event.
func (c *Controller) publishStatus(id string, status domain.JobStatus, message string) {
	c.events.Publish(Event{
		JobID:   id,
		Type:    EventTypeStatus,
		Status:  status,
		Message: message,
	})
}

// logTailOf extracts the diagnostic tail from an encode failure, if any.
func logTailOf(err error) []string {
	var encErr *convert.EncodeError
	if errors.As(err, &encErr) {
		return encErr.LogTail
	}
	return nil
}

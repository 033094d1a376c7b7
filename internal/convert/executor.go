package convert

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const (
	defaultGracePeriod = 5 * time.Second
	defaultTailSize    = 30
)

// Request contains the invocation spec and execution callbacks for one run.
// Duration of zero means the audio duration is unknown and progress
// snapshots carry the indeterminate signal.
type Request struct {
	Spec       EncodeSpec
	Duration   time.Duration
	OnProgress func(Snapshot)
	OnLog      func(line string)
}

// Executor runs exactly one encode per call and reports a well-defined
// terminal outcome. The child is spawned without a command shell, its
// progress stream and diagnostic stream are consumed concurrently, and any
// partially written output file is removed on every non-success outcome.
type Executor struct {
	ffmpegPath string
	grace      time.Duration
	tailSize   int
	stat       func(string) (os.FileInfo, error)
	remove     func(string) error
}

// NewExecutor constructs the production executor using ffmpeg on PATH.
func NewExecutor(grace time.Duration) *Executor {
	if grace <= 0 {
		grace = defaultGracePeriod
	}
	return &Executor{
		ffmpegPath: "ffmpeg",
		grace:      grace,
		tailSize:   defaultTailSize,
		stat:       os.Stat,
		remove:     os.Remove,
	}
}

// Run performs the conversion. It returns nil on success, a context error
// when cancelled, and an *EncodeError otherwise.
func (e *Executor) Run(ctx context.Context, req Request) error {
	if _, err := e.stat(req.Spec.AudioPath); err != nil {
		return &EncodeError{
			Kind:    KindInputMissing,
			Message: fmt.Sprintf("cannot access audio file: %s", req.Spec.AudioPath),
			Err:     err,
		}
	}
	if _, err := e.stat(req.Spec.CoverPath); err != nil {
		return &EncodeError{
			Kind:    KindInputMissing,
			Message: fmt.Sprintf("cannot access cover image: %s", req.Spec.CoverPath),
			Err:     err,
		}
	}
	if err := os.MkdirAll(filepath.Dir(req.Spec.OutputPath), 0o755); err != nil {
		return &EncodeError{
			Kind:    KindEncoderExited,
			Message: fmt.Sprintf("cannot create output directory: %s", filepath.Dir(req.Spec.OutputPath)),
			Err:     err,
		}
	}

	cmd := exec.Command(e.ffmpegPath, buildEncodeArgs(req.Spec)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &EncodeError{Kind: KindLaunchFailed, Message: "open progress stream", Err: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &EncodeError{Kind: KindLaunchFailed, Message: "open diagnostic stream", Err: err}
	}

	if err := cmd.Start(); err != nil {
		return &EncodeError{
			Kind:    KindLaunchFailed,
			Message: fmt.Sprintf("cannot start encoder: %s", e.ffmpegPath),
			Err:     err,
		}
	}

	done := make(chan struct{})
	go e.superviseCancel(ctx, cmd, done)

	tail := NewLogRing(e.tailSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			line := scanner.Text()
			tail.Push(line)
			if req.OnLog != nil {
				req.OnLog(line)
			}
		}
	}()

	parser := NewParser(req.Duration)
	progressScanner := bufio.NewScanner(stdout)
	for progressScanner.Scan() {
		snap, ok := parser.Feed(progressScanner.Text())
		if ok && req.OnProgress != nil {
			req.OnProgress(snap)
		}
	}

	wg.Wait()
	waitErr := cmd.Wait()
	close(done)

	if ctx.Err() != nil {
		e.removePartialOutput(req.Spec.OutputPath)
		return fmt.Errorf("conversion cancelled: %w", ctx.Err())
	}

	if waitErr != nil {
		e.removePartialOutput(req.Spec.OutputPath)
		return &EncodeError{
			Kind:    KindEncoderExited,
			Message: fmt.Sprintf("encoder exited with an error (%v)", waitErr),
			LogTail: tail.Lines(),
			Err:     waitErr,
		}
	}

	if _, err := e.stat(req.Spec.OutputPath); err != nil {
		return &EncodeError{
			Kind:    KindEncoderExited,
			Message: "encoder exited cleanly but the output file was not created",
			LogTail: tail.Lines(),
			Err:     err,
		}
	}

	return nil
}

// superviseCancel asks the child to terminate when the context is cancelled,
// waits out the grace period, then force-kills it. The child is never left
// orphaned: the main goroutine is blocked in Wait until teardown finishes.
func (e *Executor) superviseCancel(ctx context.Context, cmd *exec.Cmd, done <-chan struct{}) {
	select {
	case <-done:
		return
	case <-ctx.Done():
	}

	_ = cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-done:
	case <-time.After(e.grace):
		_ = cmd.Process.Kill()
	}
}

// removePartialOutput deletes the output file so a truncated result is
// never presented to the user. A removal failure is not actionable here;
// the caller is already reporting the run as failed or cancelled.
func (e *Executor) removePartialOutput(path string) {
	if _, err := e.stat(path); err == nil {
		_ = e.remove(path)
	}
}

// NewExecutorForTests constructs an executor with injectable dependencies.
func NewExecutorForTests(
	ffmpegPath string,
	grace time.Duration,
	stat func(string) (os.FileInfo, error),
	remove func(string) error,
) *Executor {
	return &Executor{
		ffmpegPath: ffmpegPath,
		grace:      grace,
		tailSize:   defaultTailSize,
		stat:       stat,
		remove:     remove,
	}
}

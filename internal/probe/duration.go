// Package probe resolves audio durations via ffprobe, falling back to the
// encoder's own stream inspection when ffprobe is unavailable.
package probe

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnknownDuration is returned when neither probe path yields a duration.
// Callers must treat it as a valid outcome: the job still runs, with
// indeterminate progress.
var ErrUnknownDuration = errors.New("audio duration unknown")

const defaultTimeout = 15 * time.Second

// ffmpeg prints stream info on stderr as "Duration: 00:03:25.46, ...".
var durationPattern = regexp.MustCompile(`Duration: (\d{2,}):(\d{2}):(\d{2})\.(\d{2})`)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// Prober determines the total duration of an audio file.
type Prober struct {
	ffprobePath string
	ffmpegPath  string
	runner      commandRunner
	timeout     time.Duration
}

// NewProber constructs the production prober using tools on PATH.
func NewProber() *Prober {
	return &Prober{
		ffprobePath: "ffprobe",
		ffmpegPath:  "ffmpeg",
		runner:      &execRunner{},
		timeout:     defaultTimeout,
	}
}

// Duration resolves the audio duration. The primary path asks ffprobe for
// the container duration; if ffprobe is missing or fails, the fallback
// decodes stream info from ffmpeg's stderr banner. Both failing yields
// ErrUnknownDuration.
func (p *Prober) Duration(ctx context.Context, audioPath string) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if d, err := p.ffprobeDuration(ctx, audioPath); err == nil {
		return d, nil
	}
	if ctx.Err() != nil {
		return 0, ErrUnknownDuration
	}

	if d, err := p.ffmpegDuration(ctx, audioPath); err == nil {
		return d, nil
	}

	return 0, ErrUnknownDuration
}

// ffprobeDuration asks ffprobe for the format duration in plain seconds.
func (p *Prober) ffprobeDuration(ctx context.Context, audioPath string) (time.Duration, error) {
	result, err := p.runner.Run(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	)
	if err != nil {
		return 0, err
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Stdout), 64)
	if err != nil || seconds <= 0 {
		return 0, ErrUnknownDuration
	}

	return time.Duration(seconds * float64(time.Second)), nil
}

// ffmpegDuration decodes the input with a null muxer purely so ffmpeg prints
// the stream banner, then parses the Duration line from stderr. ffmpeg exits
// non-zero for "-f null -" on some builds, so the exit code is ignored as
// long as the banner is present.
func (p *Prober) ffmpegDuration(ctx context.Context, audioPath string) (time.Duration, error) {
	result, _ := p.runner.Run(ctx, p.ffmpegPath,
		"-hide_banner", "-nostdin",
		"-i", audioPath,
		"-f", "null", "-",
	)

	match := durationPattern.FindStringSubmatch(result.Stderr)
	if match == nil {
		return 0, ErrUnknownDuration
	}

	hours, _ := strconv.Atoi(match[1])
	minutes, _ := strconv.Atoi(match[2])
	seconds, _ := strconv.Atoi(match[3])
	centis, _ := strconv.Atoi(match[4])

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(centis)*10*time.Millisecond
	if d <= 0 {
		return 0, ErrUnknownDuration
	}
	return d, nil
}

// NewProberForTests constructs a prober with injectable dependencies.
func NewProberForTests(ffprobePath, ffmpegPath string, runner commandRunner, timeout time.Duration) *Prober {
	return &Prober{
		ffprobePath: ffprobePath,
		ffmpegPath:  ffmpegPath,
		runner:      runner,
		timeout:     timeout,
	}
}

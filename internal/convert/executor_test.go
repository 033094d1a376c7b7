package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeFakeEncoder installs an executable script standing in for ffmpeg.
// Scripts read the resolved output path from their last argument, the same
// position the real invocation uses.
func writeFakeEncoder(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake encoder: %v", err)
	}
	return path
}

// newTestRequest builds a request with real input files in a temp dir.
func newTestRequest(t *testing.T) Request {
	t.Helper()
	dir := t.TempDir()
	audio := filepath.Join(dir, "a.mp3")
	cover := filepath.Join(dir, "capa.png")
	mustWriteFile(t, audio)
	mustWriteFile(t, cover)

	return Request{
		Spec: EncodeSpec{
			AudioPath:    audio,
			CoverPath:    cover,
			OutputPath:   filepath.Join(dir, "a.mpg"),
			VideoBitrate: "4000k",
			AudioBitrate: "192k",
			Width:        1280,
			Height:       720,
			FrameRate:    30,
		},
		Duration: 2 * time.Second,
	}
}

// TestExecutorRunSuccess checks the happy path: progress snapshots in
// order, diagnostics forwarded, output file present, nil error.
func TestExecutorRunSuccess(t *testing.T) {
	encoder := writeFakeEncoder(t, `#!/bin/sh
for a in "$@"; do out=$a; done
echo "frame rendering info" 1>&2
printf 'out_time_us=1000000\nprogress=continue\n'
printf 'out_time_us=2000000\nprogress=end\n'
printf 'video' > "$out"
`)

	req := newTestRequest(t)
	var snaps []Snapshot
	var logLines []string
	req.OnProgress = func(s Snapshot) { snaps = append(snaps, s) }
	req.OnLog = func(line string) { logLines = append(logLines, line) }

	e := NewExecutorForTests(encoder, time.Second, os.Stat, os.Remove)
	if err := e.Run(context.Background(), req); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}
	if snaps[0].Progress.Fraction != 0.5 || snaps[0].End {
		t.Fatalf("first snapshot = %+v", snaps[0])
	}
	if snaps[1].Progress.Fraction != 1.0 || !snaps[1].End {
		t.Fatalf("final snapshot = %+v", snaps[1])
	}
	if len(logLines) != 1 || !strings.Contains(logLines[0], "frame rendering") {
		t.Fatalf("log lines = %v", logLines)
	}
	if _, err := os.Stat(req.Spec.OutputPath); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
}

// TestExecutorNonZeroExitRemovesPartialOutput checks job-level failure:
// classified error with the diagnostic tail, and no truncated .mpg left
// behind to mislead the user.
func TestExecutorNonZeroExitRemovesPartialOutput(t *testing.T) {
	encoder := writeFakeEncoder(t, `#!/bin/sh
for a in "$@"; do out=$a; done
printf 'partial' > "$out"
echo "Invalid data found when processing input" 1>&2
echo "Conversion failed!" 1>&2
exit 3
`)

	req := newTestRequest(t)
	e := NewExecutorForTests(encoder, time.Second, os.Stat, os.Remove)
	err := e.Run(context.Background(), req)
	if err == nil {
		t.Fatal("expected error")
	}

	var encErr *EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("error type = %T, want *EncodeError", err)
	}
	if encErr.Kind != KindEncoderExited {
		t.Fatalf("kind = %s, want %s", encErr.Kind, KindEncoderExited)
	}
	if len(encErr.LogTail) != 2 || !strings.Contains(encErr.LogTail[1], "Conversion failed") {
		t.Fatalf("log tail = %v", encErr.LogTail)
	}
	if _, statErr := os.Stat(req.Spec.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("partial output not removed: %v", statErr)
	}
}

// TestExecutorCancelTerminatesChild checks the cancellation path: the child
// is signalled, the call returns within the grace bound, the outcome is the
// context error, and the partial output is removed.
func TestExecutorCancelTerminatesChild(t *testing.T) {
	encoder := writeFakeEncoder(t, `#!/bin/sh
for a in "$@"; do out=$a; done
printf 'partial' > "$out"
trap 'exit 143' TERM
printf 'out_time_us=1000000\nprogress=continue\n'
sleep 30 > /dev/null 2>&1 &
wait $!
`)

	req := newTestRequest(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	e := NewExecutorForTests(encoder, 2*time.Second, os.Stat, os.Remove)
	start := time.Now()
	err := e.Run(ctx, req)
	elapsed := time.Since(start)

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if elapsed > 5*time.Second {
		t.Fatalf("cancellation took %v, want grace-bounded teardown", elapsed)
	}
	if _, statErr := os.Stat(req.Spec.OutputPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("partial output not removed: %v", statErr)
	}
}

// TestExecutorRemoveFailureKeepsClassification checks that a failed cleanup
// of the partial output never masks the run's own failure.
func TestExecutorRemoveFailureKeepsClassification(t *testing.T) {
	encoder := writeFakeEncoder(t, `#!/bin/sh
for a in "$@"; do out=$a; done
printf 'partial' > "$out"
echo "Conversion failed!" 1>&2
exit 1
`)

	req := newTestRequest(t)
	removeErr := errors.New("operation not permitted")
	e := NewExecutorForTests(encoder, time.Second, os.Stat, func(string) error { return removeErr })

	err := e.Run(context.Background(), req)
	var encErr *EncodeError
	if !errors.As(err, &encErr) || encErr.Kind != KindEncoderExited {
		t.Fatalf("error = %v, want encoder_exited", err)
	}
}

// TestExecutorLaunchFailure checks the queue-fatal classification when the
// encoder binary cannot be spawned at all.
func TestExecutorLaunchFailure(t *testing.T) {
	req := newTestRequest(t)
	e := NewExecutorForTests(filepath.Join(t.TempDir(), "no-such-ffmpeg"), time.Second, os.Stat, os.Remove)

	err := e.Run(context.Background(), req)
	if !IsLaunchFailure(err) {
		t.Fatalf("error = %v, want launch failure", err)
	}
}

// TestExecutorMissingInputs checks pre-spawn validation of both inputs.
func TestExecutorMissingInputs(t *testing.T) {
	encoder := writeFakeEncoder(t, "#!/bin/sh\nexit 0\n")
	e := NewExecutorForTests(encoder, time.Second, os.Stat, os.Remove)

	req := newTestRequest(t)
	req.Spec.AudioPath = filepath.Join(t.TempDir(), "missing.mp3")

	var encErr *EncodeError
	if err := e.Run(context.Background(), req); !errors.As(err, &encErr) || encErr.Kind != KindInputMissing {
		t.Fatalf("audio: error = %v, want input_missing", err)
	}

	req = newTestRequest(t)
	req.Spec.CoverPath = filepath.Join(t.TempDir(), "missing.png")
	if err := e.Run(context.Background(), req); !errors.As(err, &encErr) || encErr.Kind != KindInputMissing {
		t.Fatalf("cover: error = %v, want input_missing", err)
	}
}

// TestExecutorMissingOutputIsFailure checks that a clean exit without a
// produced file is still reported as an encoder failure.
func TestExecutorMissingOutputIsFailure(t *testing.T) {
	encoder := writeFakeEncoder(t, "#!/bin/sh\nexit 0\n")
	req := newTestRequest(t)

	e := NewExecutorForTests(encoder, time.Second, os.Stat, os.Remove)
	err := e.Run(context.Background(), req)

	var encErr *EncodeError
	if !errors.As(err, &encErr) || encErr.Kind != KindEncoderExited {
		t.Fatalf("error = %v, want encoder_exited", err)
	}
}

package diagnostics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"audio2video/internal/domain"
)

// newPassingChecker returns a checker whose OS dependencies all succeed,
// using a real temp dir for the write check.
func newPassingChecker(t *testing.T, coverPath string) (*Checker, domain.Settings) {
	t.Helper()
	dir := t.TempDir()
	if coverPath == "" {
		coverPath = filepath.Join(dir, "capa.png")
		if err := os.WriteFile(coverPath, []byte("png"), 0o644); err != nil {
			t.Fatalf("write cover: %v", err)
		}
	}

	checker := NewCheckerForTests(
		func(name string) (string, error) { return "/usr/bin/" + name, nil },
		os.Stat,
		os.MkdirAll,
		os.CreateTemp,
		os.Remove,
	)
	settings := domain.Settings{
		CoverImage: coverPath,
		OutputDir:  filepath.Join(dir, "out"),
	}
	return checker, settings
}

// itemByID finds one check result in a report.
func itemByID(t *testing.T, report domain.DiagnosticReport, id string) domain.DiagnosticItem {
	t.Helper()
	for _, item := range report.Items {
		if item.ID == id {
			return item
		}
	}
	t.Fatalf("report has no item %q: %+v", id, report.Items)
	return domain.DiagnosticItem{}
}

// TestCheckerAllPassing checks the clean preflight report.
func TestCheckerAllPassing(t *testing.T) {
	checker, settings := newPassingChecker(t, "")

	report := checker.Run(settings)
	if report.HasFailures {
		t.Fatalf("report has failures: %+v", report.Items)
	}
	if len(report.Items) != 4 {
		t.Fatalf("items = %d, want 4", len(report.Items))
	}
	for _, id := range []string{"tool_ffmpeg", "tool_ffprobe", "cover_image", "output_dir"} {
		if item := itemByID(t, report, id); item.Status != domain.DiagnosticStatusPass {
			t.Fatalf("%s = %s: %s", id, item.Status, item.Message)
		}
	}
}

// TestCheckerMissingEncoder checks the fatal tool failure with its hint.
func TestCheckerMissingEncoder(t *testing.T) {
	checker, settings := newPassingChecker(t, "")
	checker.lookPath = func(name string) (string, error) {
		if name == "ffmpeg" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	report := checker.Run(settings)
	if !report.HasFailures {
		t.Fatal("missing ffmpeg not reported as failure")
	}
	item := itemByID(t, report, "tool_ffmpeg")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("status = %s", item.Status)
	}
	if item.Hint == "" {
		t.Fatal("fatal check carries no hint")
	}
}

// TestCheckerCoverImageStates covers the cover validation branches.
func TestCheckerCoverImageStates(t *testing.T) {
	dir := t.TempDir()
	dirNamedLikeImage := filepath.Join(dir, "cover.png")
	if err := os.Mkdir(dirNamedLikeImage, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cases := []struct {
		name    string
		cover   string
		message string
	}{
		{"empty", "", "No cover image selected"},
		{"unsupported", filepath.Join(dir, "capa.svg"), "Unsupported image format"},
		{"missing", filepath.Join(dir, "missing.png"), "does not exist"},
		{"directory", dirNamedLikeImage, "is a directory"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			checker, settings := newPassingChecker(t, "unused")
			settings.CoverImage = tc.cover

			item := itemByID(t, checker.Run(settings), "cover_image")
			if item.Status != domain.DiagnosticStatusFail {
				t.Fatalf("status = %s, want fail", item.Status)
			}
			if !strings.Contains(item.Message, tc.message) {
				t.Fatalf("message = %q, want %q", item.Message, tc.message)
			}
		})
	}
}

// TestCheckerOutputDirNotWritable checks the write-probe failure path.
func TestCheckerOutputDirNotWritable(t *testing.T) {
	checker, settings := newPassingChecker(t, "")
	checker.createTemp = func(dir, pattern string) (*os.File, error) {
		return nil, errors.New("permission denied")
	}

	report := checker.Run(settings)
	item := itemByID(t, report, "output_dir")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("status = %s, want fail", item.Status)
	}
	if !strings.Contains(item.Message, "not writable") {
		t.Fatalf("message = %q", item.Message)
	}
}

// TestCheckerFFprobeHint checks the degraded-progress case: the item fails,
// but the hint explains conversions still run.
func TestCheckerFFprobeHint(t *testing.T) {
	checker, settings := newPassingChecker(t, "")
	checker.lookPath = func(name string) (string, error) {
		if name == "ffprobe" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}

	item := itemByID(t, checker.Run(settings), "tool_ffprobe")
	if item.Status != domain.DiagnosticStatusFail {
		t.Fatalf("status = %s", item.Status)
	}
	if !strings.Contains(item.Hint, "indeterminate") {
		t.Fatalf("hint = %q", item.Hint)
	}
}

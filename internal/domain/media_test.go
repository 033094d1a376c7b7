package domain

import (
	"testing"
	"time"
)

// TestIsSupportedAudioFile checks the extension allowlist, including case
// folding and video containers carrying audio tracks.
func TestIsSupportedAudioFile(t *testing.T) {
	for _, path := range []string{
		"/music/a.mp3",
		"/music/b.FLAC",
		"/music/canção de roda.M4A",
		"/music/clip.mkv",
	} {
		if !IsSupportedAudioFile(path) {
			t.Errorf("IsSupportedAudioFile(%q) = false", path)
		}
	}
	for _, path := range []string{"/music/notes.txt", "/music/noext", "/music/a.png"} {
		if IsSupportedAudioFile(path) {
			t.Errorf("IsSupportedAudioFile(%q) = true", path)
		}
	}
}

// TestIsSupportedImageFile checks the cover allowlist.
func TestIsSupportedImageFile(t *testing.T) {
	for _, path := range []string{"/img/capa.png", "/img/capa.JPG", "/img/capa.webp"} {
		if !IsSupportedImageFile(path) {
			t.Errorf("IsSupportedImageFile(%q) = false", path)
		}
	}
	for _, path := range []string{"/img/capa.svg", "/img/capa.mp3", "/img/capa"} {
		if IsSupportedImageFile(path) {
			t.Errorf("IsSupportedImageFile(%q) = true", path)
		}
	}
}

// TestFormatDuration checks the HH:MM:SS rendering including the hour
// rollover and the zero guard.
func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{-time.Second, "00:00:00"},
		{62 * time.Second, "00:01:02"},
		{time.Hour + 23*time.Minute + 45*time.Second, "01:23:45"},
		{26 * time.Hour, "26:00:00"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

// TestJobStatusIsTerminal checks the terminal set.
func TestJobStatusIsTerminal(t *testing.T) {
	terminal := []JobStatus{JobStatusCompleted, JobStatusFailed, JobStatusCancelled}
	for _, status := range terminal {
		if !status.IsTerminal() {
			t.Errorf("%s.IsTerminal() = false", status)
		}
	}
	for _, status := range []JobStatus{JobStatusQueued, JobStatusRunning} {
		if status.IsTerminal() {
			t.Errorf("%s.IsTerminal() = true", status)
		}
	}
}

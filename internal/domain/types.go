package domain

import "time"

// JobStatus tracks the lifecycle state of a single conversion job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Progress is a normalized progress reading for one job. When Indeterminate
// is set the audio duration is unknown and Fraction carries no meaning.
type Progress struct {
	Fraction      float64 `json:"fraction"`
	Indeterminate bool    `json:"indeterminate"`
}

// Job is one audio-to-video conversion request. The cover path is frozen
// when the job leaves the queue; the output path is resolved immediately
// before the encoder starts.
type Job struct {
	ID         string        `json:"id"`
	InputPath  string        `json:"inputPath"`
	CoverPath  string        `json:"coverPath,omitempty"`
	OutputPath string        `json:"outputPath,omitempty"`
	Status     JobStatus     `json:"status"`
	Progress   Progress      `json:"progress"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
	LogTail    []string      `json:"logTail,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
	StartedAt  time.Time     `json:"startedAt,omitempty"`
	FinishedAt time.Time     `json:"finishedAt,omitempty"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	OutputDir    string `toml:"output_dir"`
	CoverImage   string `toml:"cover_image"`
	VideoBitrate string `toml:"video_bitrate"`
	AudioBitrate string `toml:"audio_bitrate"`
	Width        int    `toml:"width"`
	Height       int    `toml:"height"`
	FrameRate    int    `toml:"frame_rate"`
	Workers      int    `toml:"workers"`
	GraceSeconds int    `toml:"grace_seconds"`
	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
}

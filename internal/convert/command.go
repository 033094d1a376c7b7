package convert

import "fmt"

// EncodeSpec fully describes one encoder invocation. All fields are fixed
// before the process is spawned; nothing here is user-interactive.
type EncodeSpec struct {
	AudioPath  string
	CoverPath  string
	OutputPath string

	VideoBitrate string
	AudioBitrate string
	Width        int
	Height       int
	FrameRate    int
}

// buildEncodeArgs builds the fixed ffmpeg invocation: the cover looped as a
// duration-less visual input, the audio as the temporal reference, MPEG-2
// video with MP2 audio in an MPEG-PS container. -shortest trims the looped
// video to the audio duration, never the reverse. Progress frames go to
// stdout (-progress pipe:1), diagnostics stay on stderr, and -nostdin keeps
// the process from ever waiting on terminal input.
func buildEncodeArgs(spec EncodeSpec) []string {
	scale := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,format=yuv420p",
		spec.Width, spec.Height, spec.Width, spec.Height,
	)

	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-loop", "1",
		"-i", spec.CoverPath,
		"-i", spec.AudioPath,
		"-c:v", "mpeg2video",
		"-c:a", "mp2",
		"-b:v", spec.VideoBitrate,
		"-b:a", spec.AudioBitrate,
		"-vf", scale,
		"-r", fmt.Sprintf("%d", spec.FrameRate),
		"-shortest",
		"-progress", "pipe:1",
		"-nostats",
		spec.OutputPath,
	}
}

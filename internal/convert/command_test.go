package convert

import (
	"strings"
	"testing"
)

// TestBuildEncodeArgsInvocationContract checks the fixed encoder invocation:
// looped cover first, audio second, MPEG-2/MP2 output trimmed to the audio
// duration, progress on stdout, and no chance of waiting on terminal input.
func TestBuildEncodeArgsInvocationContract(t *testing.T) {
	args := buildEncodeArgs(EncodeSpec{
		AudioPath:    "/music/canção de roda.mp3",
		CoverPath:    "/images/capa.png",
		OutputPath:   "/out/canção de roda.mpg",
		VideoBitrate: "4000k",
		AudioBitrate: "192k",
		Width:        1280,
		Height:       720,
		FrameRate:    30,
	})

	joined := strings.Join(args, " ")
	for _, want := range []string{
		"-nostdin",
		"-loop 1 -i /images/capa.png",
		"-i /music/canção de roda.mp3",
		"-c:v mpeg2video",
		"-c:a mp2",
		"-b:v 4000k",
		"-b:a 192k",
		"-r 30",
		"-shortest",
		"-progress pipe:1",
		"-nostats",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}

	if args[len(args)-1] != "/out/canção de roda.mpg" {
		t.Fatalf("last arg = %q, want output path", args[len(args)-1])
	}

	// The cover must be the first input so -loop applies to it, and the
	// audio the second so -shortest trims the looped video to the audio.
	coverIdx := indexOf(args, "/images/capa.png")
	audioIdx := indexOf(args, "/music/canção de roda.mp3")
	if coverIdx == -1 || audioIdx == -1 || coverIdx > audioIdx {
		t.Fatalf("input order wrong: cover=%d audio=%d", coverIdx, audioIdx)
	}

	vf := args[indexOf(args, "-vf")+1]
	if !strings.Contains(vf, "scale=1280:720") || !strings.Contains(vf, "pad=1280:720") || !strings.Contains(vf, "format=yuv420p") {
		t.Fatalf("video filter = %q", vf)
	}
}

func indexOf(args []string, value string) int {
	for i, a := range args {
		if a == value {
			return i
		}
	}
	return -1
}

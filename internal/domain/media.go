package domain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// audioExtensions lists formats the encoder can read as the audio input.
// A few video containers are included because they carry audio tracks.
var audioExtensions = map[string]struct{}{
	".m4a": {}, ".mp3": {}, ".wav": {}, ".aac": {}, ".flac": {}, ".ogg": {},
	".wma": {}, ".opus": {}, ".aiff": {}, ".aif": {}, ".mp2": {}, ".mp4": {},
	".webm": {}, ".mkv": {}, ".avi": {},
}

// imageExtensions lists formats accepted as the cover image.
var imageExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".bmp": {}, ".gif": {},
	".webp": {}, ".tiff": {}, ".tif": {},
}

// IsSupportedAudioFile reports whether the path has a supported audio extension.
func IsSupportedAudioFile(path string) bool {
	_, ok := audioExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// IsSupportedImageFile reports whether the path has a supported image extension.
func IsSupportedImageFile(path string) bool {
	_, ok := imageExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// FormatDuration renders a duration as HH:MM:SS for table output.
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "00:00:00"
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

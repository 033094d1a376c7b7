package config

import (
	"os"
	"path/filepath"
	"strings"

	"audio2video/internal/domain"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		OutputDir:    filepath.Join(homeDir, "Desktop", "Audio2Video_Exports"),
		VideoBitrate: "4000k",
		AudioBitrate: "192k",
		Width:        1280,
		Height:       720,
		FrameRate:    30,
		Workers:      1,
		GraceSeconds: 5,
		LogLevel:     "info",
		LogFormat:    "console",
	}
}

// Normalize trims path fields and backfills zero values with defaults so a
// hand-edited settings file cannot produce an unusable encoder invocation.
func Normalize(cfg domain.Settings) domain.Settings {
	defaults := DefaultSettings()

	cfg.OutputDir = strings.TrimSpace(cfg.OutputDir)
	cfg.CoverImage = strings.TrimSpace(cfg.CoverImage)
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	if strings.TrimSpace(cfg.VideoBitrate) == "" {
		cfg.VideoBitrate = defaults.VideoBitrate
	}
	if strings.TrimSpace(cfg.AudioBitrate) == "" {
		cfg.AudioBitrate = defaults.AudioBitrate
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width = defaults.Width
		cfg.Height = defaults.Height
	}
	if cfg.FrameRate <= 0 {
		cfg.FrameRate = defaults.FrameRate
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.GraceSeconds <= 0 {
		cfg.GraceSeconds = defaults.GraceSeconds
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = defaults.LogLevel
	}
	if strings.TrimSpace(cfg.LogFormat) == "" {
		cfg.LogFormat = defaults.LogFormat
	}
	return cfg
}

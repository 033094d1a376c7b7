package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"audio2video/internal/bootstrap"
	"audio2video/internal/domain"
)

func newConfigCommand(configFlag *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change persisted settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := bootstrap.LoadSettings(*configFlag)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"output_dir", settings.OutputDir},
				{"cover_image", settings.CoverImage},
				{"video_bitrate", settings.VideoBitrate},
				{"audio_bitrate", settings.AudioBitrate},
				{"resolution", fmt.Sprintf("%dx%d", settings.Width, settings.Height)},
				{"frame_rate", strconv.Itoa(settings.FrameRate)},
				{"workers", strconv.Itoa(settings.Workers)},
				{"grace_seconds", strconv.Itoa(settings.GraceSeconds)},
				{"log_level", settings.LogLevel},
				{"log_format", settings.LogFormat},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Setting", "Value"},
				rows,
				[]columnAlignment{alignLeft, alignLeft},
			))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Persist one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, store, err := bootstrap.LoadSettings(*configFlag)
			if err != nil {
				return err
			}

			if err := applySetting(&settings, args[0], args[1]); err != nil {
				return err
			}
			if err := store.Save(settings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", args[0])
			return nil
		},
	})

	return cmd
}

// applySetting maps a key/value pair onto the settings struct.
func applySetting(settings *domain.Settings, key, value string) error {
	switch key {
	case "output_dir":
		settings.OutputDir = value
	case "cover_image":
		settings.CoverImage = value
	case "video_bitrate":
		settings.VideoBitrate = value
	case "audio_bitrate":
		settings.AudioBitrate = value
	case "frame_rate", "workers", "grace_seconds":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%s must be a positive integer", key)
		}
		switch key {
		case "frame_rate":
			settings.FrameRate = n
		case "workers":
			settings.Workers = n
		case "grace_seconds":
			settings.GraceSeconds = n
		}
	case "log_level":
		settings.LogLevel = value
	case "log_format":
		settings.LogFormat = value
	default:
		return fmt.Errorf("unknown setting: %s", key)
	}
	return nil
}

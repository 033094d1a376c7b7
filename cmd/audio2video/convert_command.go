package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"audio2video/internal/bootstrap"
	"audio2video/internal/config"
	"audio2video/internal/domain"
	"audio2video/internal/jobs"
)

func newConvertCommand(configFlag *string) *cobra.Command {
	var coverFlag string
	var outFlag string
	var workersFlag int

	cmd := &cobra.Command{
		Use:   "convert [flags] AUDIO_FILE...",
		Short: "Convert audio files to .mpg videos using the cover image",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, store, err := bootstrap.LoadSettings(*configFlag)
			if err != nil {
				return err
			}
			if coverFlag != "" {
				settings.CoverImage = coverFlag
			}
			if outFlag != "" {
				settings.OutputDir = outFlag
			}
			if workersFlag > 0 {
				settings.Workers = workersFlag
			}

			app, err := bootstrap.New(settings, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			report := app.Diagnostics()
			for _, item := range report.Items {
				if item.Status == domain.DiagnosticStatusFail && item.ID != "tool_ffprobe" {
					return fmt.Errorf("%s (run 'audio2video doctor' for details)", item.Message)
				}
			}

			// Remember the last used cover and output folder.
			if coverFlag != "" || outFlag != "" {
				rememberSettings(cmd, store, app.Settings)
			}

			// One converter instance per output directory; a second one
			// could race the collision-free naming across processes.
			lock := flock.New(filepath.Join(app.Settings.OutputDir, ".audio2video.lock"))
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("lock output directory: %w", err)
			}
			if !locked {
				return fmt.Errorf("another conversion is already writing to %s", app.Settings.OutputDir)
			}
			defer lock.Unlock()

			return runBatch(cmd, app, args)
		},
	}

	cmd.Flags().StringVar(&coverFlag, "cover", "", "Cover image path (remembered for next time)")
	cmd.Flags().StringVarP(&outFlag, "out", "o", "", "Output directory (remembered for next time)")
	cmd.Flags().IntVarP(&workersFlag, "workers", "w", 0, "Concurrent conversions (default 1)")

	return cmd
}

// runBatch submits the audio files, drains the queue, and renders results.
func runBatch(cmd *cobra.Command, app *bootstrap.App, audioPaths []string) error {
	ctl := app.Controller
	if err := ctl.SetCover(app.Settings.CoverImage); err != nil {
		return err
	}
	if _, err := ctl.Add(audioPaths...); err != nil {
		return err
	}

	events := app.Events.Subscribe()
	if err := ctl.Start(); err != nil {
		return err
	}

	// Ctrl-C cancels every job; queued ones stop immediately, running
	// encoders get the termination-with-grace treatment.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		for _, job := range ctl.Jobs() {
			if !job.Status.IsTerminal() {
				_ = ctl.Cancel(job.ID)
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		ctl.Wait()
		close(done)
	}()

	display := newBatchDisplay(cmd, len(audioPaths))
	consumeEvents(events, done, display)
	display.finish()

	return printResults(cmd, ctl.Jobs())
}

// consumeEvents renders events until the batch finishes. The subscription
// channel is lossy under backpressure and is never closed, so termination
// is driven by the controller draining, not by waiting for a drained event
// that may have been dropped. Buffered events are flushed before returning
// so terminal statuses are still counted.
func consumeEvents(events <-chan jobs.Event, done <-chan struct{}, display *batchDisplay) {
	for {
		select {
		case event := <-events:
			display.observe(event)
		case <-done:
			for {
				select {
				case event := <-events:
					display.observe(event)
				default:
					return
				}
			}
		}
	}
}

// rememberSettings persists flag overrides. Failure to write the settings
// file must not abort the batch, but it has to be visible.
func rememberSettings(cmd *cobra.Command, store config.Store, settings domain.Settings) {
	if err := store.Save(settings); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: settings not saved: %v\n", err)
	}
}

// batchDisplay renders batch progress, with a live bar on a TTY and plain
// status lines otherwise.
type batchDisplay struct {
	cmd   *cobra.Command
	bar   *progressbar.ProgressBar
	total int
	done  int
}

func newBatchDisplay(cmd *cobra.Command, total int) *batchDisplay {
	d := &batchDisplay{cmd: cmd, total: total}

	if isatty.IsTerminal(os.Stdout.Fd()) {
		d.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Converting"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	return d
}

func (d *batchDisplay) observe(event jobs.Event) {
	if event.Type != jobs.EventTypeStatus || !event.Status.IsTerminal() {
		return
	}
	d.done++
	if d.bar != nil {
		_ = d.bar.Add(1)
		return
	}
	fmt.Fprintf(d.cmd.OutOrStdout(), "[%d/%d] %s: %s\n", d.done, d.total, event.Status, event.Message)
}

func (d *batchDisplay) finish() {
	if d.bar != nil {
		_ = d.bar.Finish()
		fmt.Fprintln(d.cmd.OutOrStdout())
	}
}

// printResults renders the per-job summary table and returns an error when
// any job failed, so the process exit code reflects the batch outcome.
func printResults(cmd *cobra.Command, allJobs []domain.Job) error {
	rows := make([][]string, 0, len(allJobs))
	failures := 0
	for _, job := range allJobs {
		outName := ""
		if job.Status == domain.JobStatusCompleted {
			outName = filepath.Base(job.OutputPath)
		}
		detail := job.Error
		if job.Status == domain.JobStatusCancelled {
			detail = "cancelled by user"
		}
		if job.Status == domain.JobStatusFailed {
			failures++
		}
		rows = append(rows, []string{
			filepath.Base(job.InputPath),
			string(job.Status),
			domain.FormatDuration(job.Duration),
			outName,
			detail,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"File", "Status", "Duration", "Output", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))

	if failures > 0 {
		return fmt.Errorf("%d of %d conversions failed", failures, len(allJobs))
	}
	return nil
}

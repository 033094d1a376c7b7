package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"audio2video/internal/bootstrap"
	"audio2video/internal/domain"
)

func newDoctorCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check encoder tools, cover image, and output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, _, err := bootstrap.LoadSettings(*configFlag)
			if err != nil {
				return err
			}
			app, err := bootstrap.New(settings, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			report := app.Diagnostics()
			rows := make([][]string, 0, len(report.Items))
			for _, item := range report.Items {
				detail := item.Message
				if item.Status == domain.DiagnosticStatusFail && item.Hint != "" {
					detail += " " + item.Hint
				}
				rows = append(rows, []string{item.Name, string(item.Status), detail})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Check", "Status", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))

			if report.HasFailures {
				return fmt.Errorf("some checks failed")
			}
			return nil
		},
	}
}

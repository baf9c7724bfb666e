package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/memsim/internal/application"
	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	var (
		withMetrics bool
		save        bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "run <scenario.toml>",
		Short: "Replay a scripted scenario against a fresh simulation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario, err := app.loadScenario(args[0])
			if err != nil {
				return err
			}

			var report application.ScenarioReport
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Replaying scenario...", func(ctx context.Context) error {
				var err error
				report, err = app.service.RunScenario(ctx, scenario, save)
				return err
			})
			if err != nil {
				return err
			}

			app.logger.Info("scenario finished",
				slog.String("scenario", report.Name),
				slog.Int("steps", len(report.Steps)),
				slog.Int("failed", report.Failed),
			)

			if !asJSON {
				if err := writeStepReports(cmd, report); err != nil {
					return err
				}
			}
			if err := writeOverview(cmd, app, report.Overview, asJSON); err != nil {
				return err
			}
			if withMetrics {
				return app.metrics.WriteText(cmd.OutOrStdout())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "Print prometheus metrics after the run")
	cmd.Flags().BoolVar(&save, "save", false, "Replace the saved simulation with the final state")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the final overview as JSON")

	return cmd
}

func writeStepReports(cmd *cobra.Command, report application.ScenarioReport) error {
	out := cmd.OutOrStdout()
	if report.Name != "" {
		if _, err := fmt.Fprintf(out, "scenario %s\n", report.Name); err != nil {
			return err
		}
	}

	for _, step := range report.Steps {
		status, detail := "ok", step.Detail
		if step.Err != nil {
			status, detail = "failed", step.Err.Error()
		}
		if _, err := fmt.Fprintf(out, "%3d  %-14s %-6s %s\n", step.Index, step.Action, status, detail); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(out, "%d steps, %d failed\n", len(report.Steps), report.Failed)
	return err
}

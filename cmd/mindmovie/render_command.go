package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"mindmovie/internal/pipeline"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Generate the pending and failed scene clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()
			if !s.store.Exists() {
				return errNoState()
			}

			out := cmd.OutOrStdout()
			ui := newTerminalUI(cmd)
			plan, err := s.orchestrator(ui).PlanRender()
			if errors.Is(err, pipeline.ErrNothingToRender) {
				fmt.Fprintln(out, "All videos already generated. Nothing to render.")
				fmt.Fprintln(out, "Run 'mindmovie compile' to assemble the final video.")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, renderSettings("Render", [][]string{
				{"Provider", s.cfg.Video.Provider},
				{"Model", s.cfg.Video.Model},
				{"Resolution", s.cfg.Video.Resolution + " " + s.cfg.Video.AspectRatio},
				{"Max concurrent", strconv.Itoa(s.cfg.Video.MaxConcurrent)},
				{"Clips to generate", fmt.Sprintf("%d of %d", len(plan.Pending), len(plan.Spec.Scenes))},
			}))
			fmt.Fprintln(out, plan.Estimate.FormatSummary())
			if dryRun {
				fmt.Fprintln(out, "\nDry run: no clips were generated.")
				return nil
			}

			s.openLedger(cmd)
			summary, err := s.orchestrator(ui).Render(cmd.Context())
			ui.finishProgress()
			if summary.Total() > 0 {
				fmt.Fprintln(out, "\n"+summary.Format())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "All videos generated. Run 'mindmovie compile' to assemble the final video.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the pending clips and their cost without generating")
	return cmd
}

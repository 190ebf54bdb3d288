package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mindmovie/internal/pipeline"
	"mindmovie/internal/state"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var outputFlag, musicFlag string
	var noResume, dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run the full pipeline, resuming where the last run stopped",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputPath, err := resolvePathFlag(outputFlag)
			if err != nil {
				return err
			}
			musicPath, err := resolveMusicFlag(musicFlag)
			if err != nil {
				return err
			}

			s, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			ui := newTerminalUI(cmd)

			if s.store.Exists() {
				st, err := s.store.LoadOrCreate()
				if err != nil {
					return err
				}
				switch {
				case noResume:
					ok, err := ui.confirm(cmd.Context(), "Existing pipeline state found. Start fresh?")
					if err != nil {
						return err
					}
					if !ok {
						fmt.Fprintln(out, "Aborted. Existing state was kept.")
						return nil
					}
					if err := s.store.Clear(); err != nil {
						return err
					}
					fmt.Fprintln(out, "Cleared previous build. Starting fresh.")
				case st.CurrentStage == state.StageComplete:
					fmt.Fprintf(out, "Mind movie already complete: %s\n", st.OutputPath)
					fmt.Fprintln(out, "Use 'mindmovie clean' to start fresh.")
					return nil
				case st.CurrentStage != state.StageQuestionnaire:
					fmt.Fprintf(out, "Resuming from stage: %s\n", stageName(st.CurrentStage))
				}
			}

			s.openLedger(cmd)
			path, err := s.orchestrator(ui).Run(cmd.Context(), pipeline.RunOptions{
				OutputPath: outputPath,
				MusicPath:  musicPath,
				DryRun:     dryRun,
			})
			ui.finishProgress()
			if err != nil {
				return err
			}
			if path == "" {
				if dryRun {
					fmt.Fprintln(out, "\nDry run complete. No assets were generated.")
				}
				return nil
			}
			fmt.Fprintf(out, "\nYour mind movie is ready: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output video path (defaults to build.output_path)")
	cmd.Flags().StringVarP(&musicFlag, "music", "m", "", "Background music file (overrides music.file_path)")
	cmd.Flags().BoolVar(&noResume, "no-resume", false, "Discard existing state and start over")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stop after scene generation and show the cost estimate")
	return cmd
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCompileCommand(ctx *commandContext) *cobra.Command {
	var outputFlag, musicFlag string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Assemble the generated clips into the final movie",
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
			if !s.store.Exists() {
				return errNoState()
			}

			out := cmd.OutOrStdout()
			if spec, err := s.store.LoadScenes(); err == nil {
				displayOutput := outputPath
				if displayOutput == "" {
					displayOutput = s.cfg.Build.OutputPath
				}
				displayMusic := musicPath
				if displayMusic == "" {
					displayMusic = s.cfg.MusicPath()
				}
				if displayMusic == "" {
					displayMusic = "none"
				}
				duration := spec.TotalDuration(s.cfg.Movie.SceneDuration, s.cfg.Movie.TitleDuration, s.cfg.Movie.ClosingDuration)
				fmt.Fprintln(out, renderSettings("Compile", [][]string{
					{"Scenes", strconv.Itoa(len(spec.Scenes))},
					{"Resolution", s.cfg.Video.Resolution + " " + s.cfg.Video.AspectRatio},
					{"Output", displayOutput},
					{"Music", displayMusic},
					{"Estimated duration", fmt.Sprintf("~%ds", duration)},
				}))
			}

			path, err := s.orchestrator(newTerminalUI(cmd)).Compile(cmd.Context(), outputPath, musicPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nMind movie compiled: %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output video path (defaults to build.output_path)")
	cmd.Flags().StringVarP(&musicFlag, "music", "m", "", "Background music file (overrides music.file_path)")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newQuestionnaireCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "questionnaire",
		Short: "Run only the goal interview",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Let's explore the life you want to see. Answer in your own words; press Ctrl+C to stop.")
			extracted, err := s.orchestrator(newTerminalUI(cmd)).RunQuestionnaire(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\nGoals saved: %q (%d categories)\n", extracted.Title, extracted.CategoryCount())
			fmt.Fprintln(out, "Run 'mindmovie generate' to continue.")
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mindmovie/internal/state"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove pipeline state and generated clips from the build directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := state.Open(cfg.Build.BuildDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !store.Exists() {
				fmt.Fprintln(out, "Build directory is already clean. Nothing to remove.")
				return nil
			}
			if !force {
				fmt.Fprintf(out, "This removes all pipeline state and generated clips in %s.\n", cfg.Build.BuildDir)
				ok, err := newTerminalUI(cmd).confirm(cmd.Context(), "Are you sure?")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Aborted.")
					return nil
				}
			}

			sess, err := ctx.openSession(cmd, false)
			if err != nil {
				return err
			}
			defer sess.Close()
			if err := sess.store.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(out, "Build directory cleaned.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	return cmd
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mindmovie/internal/ledger"
	"mindmovie/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded clip generation attempts and total spend",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := os.Stat(filepath.Join(cfg.Build.BuildDir, ledger.FileName)); err != nil {
				fmt.Fprintln(out, "No generation attempts recorded.")
				return nil
			}
			led, err := ledger.Open(cfg.Build.BuildDir)
			if err != nil {
				return err
			}
			defer led.Close()

			attempts, err := led.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(attempts) == 0 {
				fmt.Fprintln(out, "No generation attempts recorded.")
				return nil
			}
			rows := make([][]string, 0, len(attempts))
			for _, a := range attempts {
				elapsed := "-"
				if d := a.Elapsed(); d > 0 {
					elapsed = d.Round(time.Second).String()
				}
				rows = append(rows, []string{
					strconv.FormatInt(a.ID, 10),
					textutil.Truncate(a.RunID, 8),
					strconv.Itoa(a.SceneIndex),
					a.Model,
					string(a.Status),
					a.StartedAt.Local().Format(time.DateTime),
					elapsed,
					formatUSD(a.CostUSD),
					textutil.Truncate(a.ErrorMessage, 40),
				})
			}
			fmt.Fprintln(out, renderTable("Generation history",
				[]string{"ID", "Run", "Scene", "Model", "Status", "Started", "Elapsed", "Cost", "Error"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft}))

			total, err := led.TotalSpend(cmd.Context(), "")
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Total spend: %s\n", formatUSD(total))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum attempts to show (0 for all)")
	return cmd
}

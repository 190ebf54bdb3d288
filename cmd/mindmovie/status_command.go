package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mindmovie/internal/state"
	"mindmovie/internal/textutil"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the pipeline stage and per-scene clip status",
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
				fmt.Fprintln(out, "No pipeline state found. Run 'mindmovie generate' to start.")
				return nil
			}
			st, err := store.LoadOrCreate()
			if err != nil {
				return err
			}
			colorize := shouldColorize(out)

			output := st.OutputPath
			if output == "" {
				output = "-"
			}
			fmt.Fprintln(out, renderSettings("Pipeline", [][]string{
				{"Run ID", st.ID},
				{"Stage", stageName(st.CurrentStage)},
				{"Created", st.CreatedAt.Local().Format(time.DateTime)},
				{"Updated", st.UpdatedAt.Local().Format(time.DateTime)},
				{"Estimated cost", formatUSD(st.EstimatedCost)},
				{"Actual cost", formatUSD(st.ActualCost)},
				{"Output", output},
			}))

			if len(st.SceneAssets) == 0 {
				return nil
			}
			categories := map[int]string{}
			if spec, err := store.LoadScenes(); err == nil {
				for _, scene := range spec.Scenes {
					categories[scene.Index] = string(scene.Category)
				}
			}
			rows := make([][]string, 0, len(st.SceneAssets))
			for _, asset := range st.SceneAssets {
				detail := asset.VideoPath
				if asset.ErrorMessage != "" {
					detail = textutil.Truncate(asset.ErrorMessage, 60)
				}
				rows = append(rows, []string{
					strconv.Itoa(asset.SceneIndex),
					categories[asset.SceneIndex],
					paint(string(asset.VideoStatus), assetStatusKind(asset.VideoStatus), colorize),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable("Scenes", []string{"#", "Category", "Status", "Detail"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))

			counts := st.CountByStatus()
			parts := make([]string, 0, 4)
			for _, status := range []state.AssetStatus{state.AssetComplete, state.AssetGenerating, state.AssetFailed, state.AssetPending} {
				if n := counts[status]; n > 0 {
					parts = append(parts, fmt.Sprintf("%d %s", n, status))
				}
			}
			fmt.Fprintf(out, "Clips: %s\n", strings.Join(parts, ", "))
			return nil
		},
	}
}

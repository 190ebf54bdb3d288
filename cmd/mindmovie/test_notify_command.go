package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mindmovie/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
			if topic == "" {
				fmt.Fprintln(out, "Notifications are disabled (set notifications.ntfy_topic to enable them)")
				return nil
			}
			if err := notifications.NewService(cfg).TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(out, "Test notification sent to %s\n", notifications.Endpoint(topic))
			return nil
		},
	}
}

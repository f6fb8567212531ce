package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"creativeflow/internal/config"
	"creativeflow/internal/notifications"
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
			svc := notifications.NewService(cfg)
			out := cmd.OutOrStdout()
			if svc.Name() == config.NotifyNone {
				fmt.Fprintln(out, "Notifications are disabled (notifications.provider = none)")
				return nil
			}
			sendCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			if err := svc.Publish(sendCtx, notifications.EventTest, nil); err != nil {
				return err
			}
			fmt.Fprintf(out, "Test notification sent via %s\n", svc.Name())
			return nil
		},
	}
}

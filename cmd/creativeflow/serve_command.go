package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"creativeflow/internal/api"
	"creativeflow/internal/logging"
)

const drainTimeout = 2 * time.Minute

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			lock := flock.New(cfg.LockPath())
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another creativeflow server is already running (lock %s)", cfg.LockPath())
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release server lock", logging.Error(err))
				}
			}()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := buildApplication(signalCtx, cfg, logger)
			if err != nil {
				return err
			}

			address := cfg.Server.Bind
			if strings.TrimSpace(bind) != "" {
				address = strings.TrimSpace(bind)
			}
			server := api.NewServer(app.orchestrator, api.Options{
				Bind:         address,
				Token:        cfg.Server.APIToken,
				WriteTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
				Scripts:      app.sink,
				Runs:         app.runs,
				Status:       app.status,
			}, logger)
			if err := server.Start(signalCtx); err != nil {
				_ = app.close(context.Background())
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "creativeflow listening on %s\n", server.Addr())

			<-signalCtx.Done()
			logger.Info("creativeflow shutting down")
			server.Stop()

			drainCtx, drainCancel := context.WithTimeout(context.Background(), drainTimeout)
			defer drainCancel()
			if err := app.orchestrator.Wait(drainCtx); err != nil {
				logging.WarnWithContext(logger, "runs still in flight at shutdown", "shutdown_incomplete",
					logging.Error(err),
					logging.String(logging.FieldImpact, "unfinished runs stay in a non-terminal state"),
				)
			}
			if err := app.close(drainCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Override server.bind (host:port)")
	return cmd
}

package main

import (
	"context"

	"github.com/spf13/cobra"

	"dbsyncctl/internal/console"
	"dbsyncctl/internal/tui"
)

func newConsoleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Open the live operations console",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.screenLogger()
			client, err := ctx.newClientWithLogger(logger)
			if err != nil {
				return err
			}
			controller := console.New(client, console.Options{
				PollInterval:   cfg.StatusPollInterval(),
				ReconnectDelay: cfg.ReconnectDelay(),
				BufferLines:    cfg.Console.BufferLines,
				RecentLines:    cfg.Console.RecentLines,
				Logger:         logger,
			})

			runCtx, cancel := context.WithCancel(commandScope(cmd))
			defer cancel()
			stopped := make(chan error, 1)
			go func() {
				stopped <- controller.Run(runCtx)
			}()

			_, err = tui.Run(runCtx, tui.NewConsoleModel(controller, client.BaseURL()))
			cancel()
			if runErr := <-stopped; runErr != nil && err == nil {
				err = runErr
			}
			if err != nil {
				logger.Warn("console exited with error", "error", err)
			}
			return err
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dbsyncctl/internal/console"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent sync daemon log lines",
		Long: "Print recent sync daemon log lines. With --follow, new lines are\n" +
			"streamed until interrupted; if the daemon is stopped, following waits\n" +
			"and attaches once a status poll sees it running.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines < 0 {
				return errors.New("--lines must not be negative")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("lines") {
				lines = cfg.Console.RecentLines
			}
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !follow {
				tail, err := client.RecentLogs(commandScope(cmd), lines)
				if err != nil {
					return describeErr(err)
				}
				printLines(out, tail)
				return nil
			}

			// Following reuses the console controller headlessly. It attaches
			// whenever the daemon is seen running and reconnects after drops.
			controller := console.New(client, console.Options{
				PollInterval:   cfg.StatusPollInterval(),
				ReconnectDelay: cfg.ReconnectDelay(),
				BufferLines:    cfg.Console.BufferLines,
				RecentLines:    lines,
				Logger:         ctx.diagnostics(),
				FollowRestarts: true,
				LineSink: func(batch []string) {
					printLines(out, batch)
				},
			})
			return controller.Run(commandScope(cmd))
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", console.DefaultRecentLines, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new lines until interrupted")
	return cmd
}

func printLines(out io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
}

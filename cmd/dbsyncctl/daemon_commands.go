package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/daemonctl"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newStatusCommand(ctx),
		newStartCommand(ctx),
		newStopCommand(ctx),
		newReinitCommand(ctx),
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the sync daemon is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			status, err := client.Status(commandScope(cmd))
			if jsonOutput {
				if err != nil {
					return describeErr(err)
				}
				return writeJSON(cmd, status)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			lines := renderHeader("Sync Daemon", colorize)
			lines = append(lines, renderLine("API", lineInfo, client.BaseURL(), colorize))
			if err != nil {
				lines = append(lines, renderLine("Daemon", lineError, describeErr(err).Error(), colorize))
				fmt.Fprintln(out, strings.Join(lines, "\n"))
				return describeErr(err)
			}
			kind, message := statusSummary(status)
			lines = append(lines, renderLine("Daemon", kind, message, colorize))
			fmt.Fprintln(out, strings.Join(lines, "\n"))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func statusSummary(status api.RunStatus) (lineKind, string) {
	if status.Running {
		if status.PID != nil {
			return lineOK, fmt.Sprintf("Running (PID %d)", *status.PID)
		}
		return lineOK, "Running"
	}
	if status.ExitCode != nil {
		return lineWarn, fmt.Sprintf("Stopped (exit code %d)", *status.ExitCode)
	}
	return lineWarn, "Stopped"
}

func newStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, ctx, false, nil)
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the sync daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.newClient()
			if err != nil {
				return err
			}
			actions := daemonctl.NewActions(client, ctx.diagnostics())
			result, err := actions.StopSync(commandScope(cmd))
			if err != nil {
				return describeErr(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Notice())
			return nil
		},
	}
}

func newReinitCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reinit",
		Short: "Start the sync daemon after discarding its working data",
		Long: "Start the sync daemon with force_init. The daemon removes its working\n" +
			"directory and database schemas and initializes from scratch.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirm daemonctl.Confirmer
			switch {
			case yes:
				confirm = daemonctl.AlwaysConfirm
			case isInteractive(cmd.InOrStdin()):
				confirm = promptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
			default:
				return errors.New("re-initialization needs confirmation; pass --yes when stdin is not a terminal")
			}
			return runStart(cmd, ctx, true, confirm)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func runStart(cmd *cobra.Command, ctx *commandContext, forceInit bool, confirm daemonctl.Confirmer) error {
	client, err := ctx.newClient()
	if err != nil {
		return err
	}
	actions := daemonctl.NewActions(client, ctx.diagnostics())
	result, err := actions.StartSync(commandScope(cmd), forceInit, confirm)
	if errors.Is(err, daemonctl.ErrNotConfirmed) {
		fmt.Fprintln(cmd.OutOrStdout(), "Re-initialization cancelled")
		return nil
	}
	if err != nil {
		return describeErr(err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Notice())
	return nil
}

// promptConfirmer asks on out and reads one answer line from in. Anything
// other than y or yes declines.
func promptConfirmer(in io.Reader, out io.Writer) daemonctl.Confirmer {
	reader := bufio.NewReader(in)
	return daemonctl.ConfirmFunc(func(_ context.Context, prompt string) bool {
		fmt.Fprintf(out, "%s [y/N]: ", prompt)
		answer, err := reader.ReadString('\n')
		if err != nil && answer == "" {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true
		default:
			return false
		}
	})
}

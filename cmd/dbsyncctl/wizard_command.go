package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"dbsyncctl/internal/api"
	"dbsyncctl/internal/config"
	"dbsyncctl/internal/syncconfig"
	"dbsyncctl/internal/tui"
	"dbsyncctl/internal/validation"
	"dbsyncctl/internal/wizard"
)

func newWizardCommand(ctx *commandContext) *cobra.Command {
	var importPath string
	var exportPath string
	var noPrefill bool
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Build a sync configuration step by step",
		Long: "Walk through Mergin credentials, the PostgreSQL connection, project and\n" +
			"GeoPackage selection, and schema names, then save the configuration to\n" +
			"the daemon. The form is prefilled from the daemon's stored configuration\n" +
			"unless --import or --no-prefill is given.",
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

			var loader tui.ConfigLoader
			switch {
			case strings.TrimSpace(importPath) != "":
				loader = fileLoader{path: importPath}
			case !noPrefill:
				loader = client
			}

			ctrl := wizard.New(wizard.Options{
				DefaultMerginURL: cfg.Wizard.DefaultMerginURL,
				SleepTime:        cfg.Wizard.DaemonSleepTime,
				Logger:           logger,
			})
			deps := wizard.Deps{
				Gateway: validation.NewGateway(client, logger),
				Saver:   client,
			}
			scope := commandScope(cmd)
			if _, err := tui.Run(scope, tui.NewWizardModel(scope, ctrl, deps, loader)); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !ctrl.Finished() {
				fmt.Fprintln(out, "Wizard cancelled")
				return nil
			}
			fmt.Fprint(out, renderSummary(ctrl.Summary()))
			if strings.TrimSpace(exportPath) == "" {
				return nil
			}
			return exportDraft(scope, out, exportPath, ctrl.Draft())
		},
	}
	cmd.Flags().StringVar(&importPath, "import", "", "Prefill from a YAML configuration file instead of the daemon")
	cmd.Flags().StringVar(&exportPath, "export", "", "Write the finished configuration as YAML to this path")
	cmd.Flags().BoolVar(&noPrefill, "no-prefill", false, "Start from an empty form")
	return cmd
}

func renderSummary(items []syncconfig.SummaryItem) string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.Label, item.Value})
	}
	return renderTable([]string{"Setting", "Value"}, rows, nil)
}

func exportDraft(ctx context.Context, out io.Writer, path string, draft syncconfig.Draft) error {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return err
	}
	stored := syncconfig.ToStored(syncconfig.Assemble(draft))
	if err := syncconfig.WriteFile(ctx, expanded, stored); err != nil {
		return fmt.Errorf("export configuration: %w", err)
	}
	fmt.Fprintf(out, "Configuration written to %s\n", expanded)
	return nil
}

// fileLoader prefills the wizard from an exported YAML file.
type fileLoader struct {
	path string
}

func (l fileLoader) LoadConfig(context.Context) (api.StoredConfig, error) {
	expanded, err := config.ExpandPath(l.path)
	if err != nil {
		return api.StoredConfig{}, err
	}
	return syncconfig.ReadFile(expanded)
}

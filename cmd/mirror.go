package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schemamirror/internal/mirror"
	"schemamirror/internal/report"
	"schemamirror/internal/ui"
)

var (
	mirrorDatabase     string
	mirrorSourceSchema string
	mirrorTargetSchema string
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Clone a schema into a new mirror schema",
	Long: `Create a copy-on-write snapshot of a source schema under a new name.
The clone is verified afterwards and a per-table-count summary is reported.`,
	RunE: runMirror,
}

func init() {
	rootCmd.AddCommand(mirrorCmd)

	mirrorCmd.Flags().StringVarP(&mirrorDatabase, "database", "d", "", "Database holding the source schema (required)")
	mirrorCmd.Flags().StringVarP(&mirrorSourceSchema, "source-schema", "s", "", "Schema to mirror (required)")
	mirrorCmd.Flags().StringVarP(&mirrorTargetSchema, "target-schema", "t", "", "Name for the mirror schema (required)")
	_ = mirrorCmd.MarkFlagRequired("database")
	_ = mirrorCmd.MarkFlagRequired("source-schema")
	_ = mirrorCmd.MarkFlagRequired("target-schema")
}

func runMirror(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, cfg, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	ui.ShowHeader("Mirror Schema")
	fmt.Printf("Source: %s.%s\n", mirrorDatabase, mirrorSourceSchema)
	fmt.Printf("Target: %s.%s\n\n", mirrorDatabase, mirrorTargetSchema)

	ok, message, summary := mirror.New(client).Clone(ctx, mirrorDatabase, mirrorSourceSchema, mirrorTargetSchema)
	if !ok {
		ui.ShowError(fmt.Errorf("%s", message))
		os.Exit(1)
	}

	table := report.CloneSummaryTable(summary)
	table.Render(os.Stdout)
	fmt.Println()
	ui.ShowSuccess(message)

	exportTable(exporterFor(cfg), "MirrorSchema", table)
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schemamirror/internal/drift"
	"schemamirror/internal/report"
	"schemamirror/internal/ui"
)

var (
	driftDatabase     string
	driftSourceSchema string
	driftTargetSchema string
)

var driftCmd = &cobra.Command{
	Use:   "drift",
	Short: "Compare table and column structure between a schema and its mirror",
	Long: `Detect structural drift between a source schema and its mirror: tables
present on only one side, columns present on only one side of common
tables, and declared data type changes.`,
	RunE: runDrift,
}

func init() {
	rootCmd.AddCommand(driftCmd)

	driftCmd.Flags().StringVarP(&driftDatabase, "database", "d", "", "Database holding both schemas (required)")
	driftCmd.Flags().StringVarP(&driftSourceSchema, "source-schema", "s", "", "Source schema (required)")
	driftCmd.Flags().StringVarP(&driftTargetSchema, "target-schema", "t", "", "Mirror schema (required)")
	_ = driftCmd.MarkFlagRequired("database")
	_ = driftCmd.MarkFlagRequired("source-schema")
	_ = driftCmd.MarkFlagRequired("target-schema")
}

func runDrift(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, cfg, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	differ := drift.New(client)

	ui.ShowHeader("Schema Drift")
	fmt.Printf("Source: %s.%s\n", driftDatabase, driftSourceSchema)
	fmt.Printf("Mirror: %s.%s\n", driftDatabase, driftTargetSchema)

	tableDiffs, err := differ.DiffTables(ctx, driftDatabase, driftSourceSchema, driftTargetSchema)
	if err != nil {
		return fmt.Errorf("table comparison failed: %w", err)
	}

	columnDiffs, typeDiffs, err := differ.DiffColumns(ctx, driftDatabase, driftSourceSchema, driftTargetSchema)
	if err != nil {
		return fmt.Errorf("column comparison failed: %w", err)
	}

	sections := []struct {
		title string
		noun  string
		table report.Table
	}{
		{"Table Differences", "table difference", report.TableDiffTable(tableDiffs)},
		{"Column Differences", "column difference", report.ColumnDiffTable(columnDiffs)},
		{"Data Type Differences", "data type difference", report.TypeDiffTable(typeDiffs)},
	}

	for _, section := range sections {
		fmt.Printf("\n%s\n", ui.ColorBold(section.title))
		if section.table.Empty() {
			fmt.Println(report.Summary(section.table, section.noun))
			continue
		}
		section.table.Render(os.Stdout)
	}

	if len(tableDiffs)+len(columnDiffs)+len(typeDiffs) == 0 {
		fmt.Println()
		ui.ShowSuccess("No drift detected")
	}

	if exporter := exporterFor(cfg); exporter != nil {
		paths, err := exporter.ExportSchemaValidation(tableDiffs, columnDiffs, typeDiffs)
		if err != nil {
			ui.ShowWarning(fmt.Sprintf("Export failed: %v", err))
		}
		for _, path := range paths {
			ui.ShowInfo("Report written to " + path)
		}
	}

	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schemamirror/internal/kpi"
	"schemamirror/internal/report"
	"schemamirror/internal/ui"
)

var (
	kpiDatabase     string
	kpiSourceSchema string
	kpiTargetSchema string
	kpiSelect       []string
	kpiInteractive  bool
)

var kpiCmd = &cobra.Command{
	Use:   "kpi",
	Short: "Validate KPI formulas between a schema and its mirror",
	Long: `Evaluate the metric formulas stored in ORDER_KPIS against both the source
schema and its mirror, and report per-KPI differences.`,
	RunE: runKPI,
}

func init() {
	rootCmd.AddCommand(kpiCmd)

	kpiCmd.Flags().StringVarP(&kpiDatabase, "database", "d", "", "Database holding both schemas (required)")
	kpiCmd.Flags().StringVarP(&kpiSourceSchema, "source-schema", "s", "", "Source schema (required)")
	kpiCmd.Flags().StringVarP(&kpiTargetSchema, "target-schema", "t", "", "Mirror schema (required)")
	kpiCmd.Flags().StringSliceVar(&kpiSelect, "select", nil, "Validate only these KPI names")
	kpiCmd.Flags().BoolVarP(&kpiInteractive, "interactive", "i", false, "Pick KPIs interactively")
	_ = kpiCmd.MarkFlagRequired("database")
	_ = kpiCmd.MarkFlagRequired("source-schema")
	_ = kpiCmd.MarkFlagRequired("target-schema")
}

func runKPI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, cfg, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	validator := kpi.New(client)

	ui.ShowHeader("KPI Validation")
	fmt.Printf("Source: %s.%s\n", kpiDatabase, kpiSourceSchema)
	fmt.Printf("Mirror: %s.%s\n\n", kpiDatabase, kpiTargetSchema)

	selected := kpiSelect
	if kpiInteractive {
		defs, err := validator.Definitions(ctx, kpiDatabase, kpiSourceSchema)
		if err != nil {
			return fmt.Errorf("failed to load KPI definitions: %w", err)
		}
		names := make([]string, 0, len(defs))
		for _, def := range defs {
			names = append(names, def.Name)
		}
		selected, err = ui.MultiSelect("Select KPIs to validate:", names)
		if err != nil {
			return err
		}
	}

	var results []kpi.Result
	var status string
	if len(selected) > 0 {
		results, status, _, err = validator.ValidateSelected(ctx, kpiDatabase, kpiSourceSchema, kpiTargetSchema, selected)
	} else {
		results, status, err = validator.ValidateAll(ctx, kpiDatabase, kpiSourceSchema, kpiTargetSchema)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", status, err)
	}

	table := report.KPIResultTable(results)
	if !table.Empty() {
		table.Render(os.Stdout)
		fmt.Println()
	}
	ui.ShowInfo(status)

	exportTable(exporterFor(cfg), "KPIValidation", table)
	return nil
}

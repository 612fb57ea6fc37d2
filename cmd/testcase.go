package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"schemamirror/internal/catalog"
	"schemamirror/internal/report"
	"schemamirror/internal/testcase"
	"schemamirror/internal/ui"
)

var (
	testDatabase    string
	testSchema      string
	testTable       string
	testInteractive bool
)

var testcaseCmd = &cobra.Command{
	Use:   "testcase",
	Short: "Run stored test-case assertions against a schema",
	Long: `Execute the SQL assertions stored in TEST_CASES against one schema and
compare each actual result with its recorded expectation.`,
	RunE: runTestCases,
}

func init() {
	rootCmd.AddCommand(testcaseCmd)

	testcaseCmd.Flags().StringVarP(&testDatabase, "database", "d", "", "Database holding the schema (required)")
	testcaseCmd.Flags().StringVarP(&testSchema, "schema", "s", "", "Schema to validate (required)")
	testcaseCmd.Flags().StringVar(&testTable, "table", catalog.AllTables, "Restrict to test cases for one table")
	testcaseCmd.Flags().BoolVarP(&testInteractive, "interactive", "i", false, "Pick the table interactively")
	_ = testcaseCmd.MarkFlagRequired("database")
	_ = testcaseCmd.MarkFlagRequired("schema")
}

func runTestCases(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	client, cfg, err := connectClient(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	validator := testcase.New(client)

	ui.ShowHeader("Test Case Validation")
	fmt.Printf("Schema: %s.%s\n\n", testDatabase, testSchema)

	table := testTable
	if testInteractive {
		tables := validator.Tables(ctx, testDatabase, testSchema)
		table, err = ui.Select("Select a table:", tables)
		if err != nil {
			return err
		}
	}

	cases, err := validator.Load(ctx, testDatabase, testSchema, table)
	if err != nil {
		return fmt.Errorf("failed to load test cases: %w", err)
	}

	results, status := validator.Validate(ctx, testDatabase, testSchema, cases)

	resultTable := report.TestCaseResultTable(results)
	if !resultTable.Empty() {
		resultTable.Render(os.Stdout)
		fmt.Println()
	}
	ui.ShowInfo(status)

	failed := 0
	for _, result := range results {
		if result.Status != testcase.StatusPass {
			failed++
		}
	}
	if failed > 0 {
		ui.ShowWarning(fmt.Sprintf("%d of %d test cases did not pass", failed, len(results)))
	}

	exportTable(exporterFor(cfg), "TestCaseValidation", resultTable)
	return nil
}

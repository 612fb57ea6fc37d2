package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"schemamirror/internal/report"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse databases, schemas, and tables",
}

var catalogDatabasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List accessible databases",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := connectClient(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		for _, name := range client.ListDatabases(cmd.Context()) {
			fmt.Println(name)
		}
		return nil
	},
}

var catalogSchemasCmd = &cobra.Command{
	Use:   "schemas <database>",
	Short: "List schemas in a database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := connectClient(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		for _, name := range client.ListSchemas(cmd.Context(), args[0]) {
			fmt.Println(name)
		}
		return nil
	},
}

var catalogTablesCmd = &cobra.Command{
	Use:   "tables <database> <schema>",
	Short: "List tables in a schema",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := connectClient(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		names, err := client.TableNames(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to list tables: %w", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var catalogDescribeCmd = &cobra.Command{
	Use:   "describe <database> <schema> <table>",
	Short: "Show the columns of a table",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := connectClient(cmd.Context())
		if err != nil {
			return err
		}
		defer client.Close()

		columns, err := client.DescribeTable(cmd.Context(), args[0], args[1], args[2])
		if err != nil {
			return fmt.Errorf("failed to describe table: %w", err)
		}

		names := make([]string, 0, len(columns))
		for name := range columns {
			names = append(names, name)
		}
		sort.Strings(names)

		table := report.Table{Header: []string{"Column", "Data Type"}}
		for _, name := range names {
			table.Rows = append(table.Rows, []string{name, columns[name]})
		}
		table.Render(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogDatabasesCmd)
	catalogCmd.AddCommand(catalogSchemasCmd)
	catalogCmd.AddCommand(catalogTablesCmd)
	catalogCmd.AddCommand(catalogDescribeCmd)
}

// Package drift computes structural differences between a source schema and
// its mirror: table existence and per-column existence and type changes.
package drift

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"schemamirror/internal/catalog"
	"schemamirror/pkg/errors"
)

// Table diff classifications
const (
	TableDropped = "Missing in source - Table Dropped"
	TableAdded   = "Missing in clone - Table Added"
)

// Column diff classifications
const (
	ColumnDropped   = "Missing in source - Column Dropped"
	ColumnAdded     = "Missing in clone - Column Added"
	DataTypeChanged = "Data Type Changed"
)

// TableDiff is one table present in exactly one of the two schemas
type TableDiff struct {
	Table      string
	Difference string
}

// ColumnDiff is a column present in exactly one side of a common table
type ColumnDiff struct {
	Table      string
	Column     string
	Difference string
	SourceType string
	CloneType  string
}

// TypeDiff is a column present on both sides with differing declared types.
// Kept separate from ColumnDiff because the two feed different alerting.
type TypeDiff struct {
	Table      string
	Column     string
	SourceType string
	CloneType  string
	Difference string
}

// Differ computes structural diffs through the catalog client
type Differ struct {
	client *catalog.Client
}

// New creates a new Differ
func New(client *catalog.Client) *Differ {
	return &Differ{client: client}
}

// DiffTables returns the symmetric difference of table names between the two
// schemas, ordered by (classification, table name). Tables present in both
// are omitted.
func (d *Differ) DiffTables(ctx context.Context, database, sourceSchema, cloneSchema string) ([]TableDiff, error) {
	query := fmt.Sprintf(`
    WITH source_tables AS (
        SELECT table_name
        FROM %s.information_schema.tables
        WHERE table_schema = '%s'
    ),
    clone_tables AS (
        SELECT table_name
        FROM %s.information_schema.tables
        WHERE table_schema = '%s'
    )
    SELECT
        COALESCE(s.table_name, c.table_name) AS table_name,
        CASE
            WHEN s.table_name IS NULL THEN '%s'
            WHEN c.table_name IS NULL THEN '%s'
            ELSE 'Present in both'
        END AS difference
    FROM source_tables s
    FULL OUTER JOIN clone_tables c ON s.table_name = c.table_name
    WHERE s.table_name IS NULL OR c.table_name IS NULL
    ORDER BY difference, table_name`,
		database, sourceSchema, database, cloneSchema, TableDropped, TableAdded)

	rows, err := d.client.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeComparisonFailed, "Table comparison query failed")
	}
	defer rows.Close()

	var diffs []TableDiff
	for rows.Next() {
		var diff TableDiff
		if err := rows.Scan(&diff.Table, &diff.Difference); err != nil {
			return nil, err
		}
		diffs = append(diffs, diff)
	}

	return diffs, rows.Err()
}

// DiffColumns compares columns over the tables present in both schemas.
// It returns added/dropped columns and type changes as two separate result
// sets; unchanged columns appear in neither. Tables already reported by
// DiffTables are excluded by construction, since only the intersection of
// table names is examined.
func (d *Differ) DiffColumns(ctx context.Context, database, sourceSchema, cloneSchema string) ([]ColumnDiff, []TypeDiff, error) {
	common, err := d.commonTables(ctx, database, sourceSchema, cloneSchema)
	if err != nil {
		return nil, nil, err
	}

	var columnDiffs []ColumnDiff
	var typeDiffs []TypeDiff

	for _, table := range common {
		sourceCols, err := d.client.DescribeTable(ctx, database, sourceSchema, table)
		if err != nil {
			logrus.WithError(err).WithField("table", table).Warn("describe failed for source side, skipping table")
			continue
		}
		cloneCols, err := d.client.DescribeTable(ctx, database, cloneSchema, table)
		if err != nil {
			logrus.WithError(err).WithField("table", table).Warn("describe failed for clone side, skipping table")
			continue
		}

		for _, col := range unionColumns(sourceCols, cloneCols) {
			sourceType, inSource := sourceCols[col]
			cloneType, inClone := cloneCols[col]

			switch {
			case !inSource:
				columnDiffs = append(columnDiffs, ColumnDiff{
					Table:      table,
					Column:     col,
					Difference: ColumnDropped,
					CloneType:  cloneType,
				})
			case !inClone:
				columnDiffs = append(columnDiffs, ColumnDiff{
					Table:      table,
					Column:     col,
					Difference: ColumnAdded,
					SourceType: sourceType,
				})
			case sourceType != cloneType:
				// Exact string inequality: VARCHAR(16) vs VARCHAR(32) counts
				typeDiffs = append(typeDiffs, TypeDiff{
					Table:      table,
					Column:     col,
					SourceType: sourceType,
					CloneType:  cloneType,
					Difference: DataTypeChanged,
				})
			}
		}
	}

	return columnDiffs, typeDiffs, nil
}

// commonTables returns the intersection of table names between the schemas
func (d *Differ) commonTables(ctx context.Context, database, sourceSchema, cloneSchema string) ([]string, error) {
	query := fmt.Sprintf(`
    SELECT s.table_name
    FROM %s.information_schema.tables s
    JOIN %s.information_schema.tables c
        ON s.table_name = c.table_name
    WHERE s.table_schema = '%s'
    AND c.table_schema = '%s'
    ORDER BY s.table_name`,
		database, database, sourceSchema, cloneSchema)

	rows, err := d.client.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeComparisonFailed, "Common table query failed")
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}

	return tables, rows.Err()
}

func unionColumns(a, b map[string]string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for col := range a {
		seen[col] = struct{}{}
	}
	for col := range b {
		seen[col] = struct{}{}
	}

	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

// Package testcase runs stored SQL assertions from the TEST_CASES catalog
// table against one schema and compares each actual result to its recorded
// expectation.
package testcase

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"schemamirror/internal/catalog"
	"schemamirror/internal/qualify"
	"schemamirror/pkg/errors"
)

// casesTable is the catalog table holding stored assertions
const casesTable = "TEST_CASES"

// Result statuses
const (
	StatusPass            = "PASS"
	StatusFail            = "FAIL"
	StatusPermissionError = "PERMISSION ERROR"
	StatusExecutionError  = "EXECUTION ERROR"
)

// Case is one stored assertion. Expected is whitespace-trimmed at load time.
type Case struct {
	ID           string
	Abbreviation string
	TableName    string
	Description  string
	SQL          string
	Expected     string
}

// Result is the outcome of running one test case
type Result struct {
	TestCase string
	Category string
	Expected string
	Actual   string
	Status   string
}

// Validator runs stored test cases through the catalog client
type Validator struct {
	client *catalog.Client
}

// New creates a new Validator
func New(client *catalog.Client) *Validator {
	return &Validator{client: client}
}

// Tables lists the distinct tables referenced by stored test cases,
// prefixed with the "All" sentinel. Fails soft: on any error only the
// sentinel is returned.
func (v *Validator) Tables(ctx context.Context, database, schema string) []string {
	if v.client.Probe(ctx, database, schema, casesTable) != catalog.Readable {
		logrus.WithFields(logrus.Fields{
			"database": database,
			"schema":   schema,
		}).Warn("TEST_CASES table not readable")
		return []string{catalog.AllTables}
	}

	query := fmt.Sprintf(`SELECT DISTINCT TABLE_NAME FROM %s.%s.%s WHERE TABLE_NAME IS NOT NULL ORDER BY TABLE_NAME`,
		database, schema, casesTable)

	rows, err := v.client.Query(ctx, query)
	if err != nil {
		logrus.WithError(err).Warn("listing test case tables failed")
		return []string{catalog.AllTables}
	}
	defer rows.Close()

	tables := []string{catalog.AllTables}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			logrus.WithError(err).Warn("scanning test case table name failed")
			return []string{catalog.AllTables}
		}
		tables = append(tables, name)
	}

	return tables
}

// Load fetches the test cases for one table, or every case when table is
// the "All" sentinel. Expected results are trimmed here so comparisons are
// against the recorded value without incidental whitespace.
func (v *Validator) Load(ctx context.Context, database, schema, table string) ([]Case, error) {
	if v.client.Probe(ctx, database, schema, casesTable) != catalog.Readable {
		return nil, errors.New(errors.ErrCodeCatalogAccess,
			fmt.Sprintf("TEST_CASES table not found in %s.%s", database, schema))
	}

	query := fmt.Sprintf(`SELECT TEST_CASE_ID, TEST_ABBREVIATION, TABLE_NAME, TEST_DESCRIPTION, SQL_CODE, EXPECTED_RESULT
FROM %s.%s.%s`, database, schema, casesTable)
	if table != catalog.AllTables {
		query += fmt.Sprintf(" WHERE TABLE_NAME = '%s'", table)
	}
	query += " ORDER BY TEST_CASE_ID"

	rows, err := v.client.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogAccess, "Failed to load test cases")
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		var c Case
		if err := rows.Scan(&c.ID, &c.Abbreviation, &c.TableName, &c.Description, &c.SQL, &c.Expected); err != nil {
			return nil, err
		}
		c.Expected = strings.TrimSpace(c.Expected)
		cases = append(cases, c)
	}

	return cases, rows.Err()
}

// Validate runs every case against one schema. Each case is fully isolated:
// a permission or execution failure yields that case's error row and never
// affects the others. Exactly one result per input case.
func (v *Validator) Validate(ctx context.Context, database, schema string, cases []Case) ([]Result, string) {
	if len(cases) == 0 {
		return nil, "No test cases selected"
	}

	results := make([]Result, 0, len(cases))
	for _, c := range cases {
		results = append(results, v.runCase(ctx, database, schema, c))
	}

	return results, "Validation completed"
}

func (v *Validator) runCase(ctx context.Context, database, schema string, c Case) Result {
	result := Result{
		TestCase: c.Abbreviation,
		Category: c.TableName,
		Expected: c.Expected,
	}

	if v.client.Probe(ctx, database, schema, c.TableName) != catalog.Readable {
		result.Actual = fmt.Sprintf("ACCESS DENIED: No permissions on %s", c.TableName)
		result.Status = StatusPermissionError
		return result
	}

	// Only the case's own declared table is qualified; any second table the
	// SQL references passes through untouched and resolves in the session's
	// current context.
	qualified := qualify.Table(c.SQL, c.TableName, database, schema)

	value, found, err := v.client.QueryScalar(ctx, qualified)
	if err != nil {
		result.Actual = "QUERY ERROR: " + errors.FirstLine(err)
		result.Status = StatusExecutionError
		return result
	}

	actual := "0"
	if found {
		actual = fmt.Sprintf("%v", normalizeScalar(value))
	}

	result.Actual = actual
	if actual == c.Expected {
		result.Status = StatusPass
	} else {
		result.Status = StatusFail
	}
	return result
}

// normalizeScalar renders driver byte slices as text so the string
// comparison sees the value, not a byte dump
func normalizeScalar(v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

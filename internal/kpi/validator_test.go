package kpi

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemamirror/internal/catalog"
)

func newValidator(t *testing.T) (*Validator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return New(catalog.NewClientWithDB(db, catalog.Config{})), mock
}

func kpiRows(defs ...Definition) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"KPI_ID", "KPI_NAME", "KPI_VALUE"})
	for _, def := range defs {
		rows.AddRow(def.ID, def.Name, def.Formula)
	}
	return rows
}

func expectProbe(mock sqlmock.Sqlmock, schema string, ok bool) {
	q := `SELECT 1 FROM ORDERS_DB\.` + schema + `\.ORDER_DATA LIMIT 1`
	if ok {
		mock.ExpectQuery(q).WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	} else {
		mock.ExpectQuery(q).WillReturnError(errors.New("Object 'ORDER_DATA' does not exist or not authorized"))
	}
}

func scalarRows(v interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"VALUE"}).AddRow(v)
}

func TestClassifyMatch(t *testing.T) {
	def := Definition{ID: "1", Name: "Total Orders"}
	result := classify(def, NumericValue(100), NumericValue(100))

	assert.Equal(t, StatusMatch, result.Status)
	assert.Equal(t, "0.00", result.Difference.String())
	assert.Equal(t, "0.00%", result.PercentDiff.Percent())
}

func TestClassifyMismatch(t *testing.T) {
	def := Definition{ID: "1", Name: "Total Orders"}
	result := classify(def, NumericValue(100), NumericValue(80))

	assert.Equal(t, StatusMismatch, result.Status)
	assert.Equal(t, "20.00", result.Difference.String())
	assert.Equal(t, "20.00%", result.PercentDiff.Percent())
}

func TestClassifySignIsSourceMinusClone(t *testing.T) {
	result := classify(Definition{}, NumericValue(80), NumericValue(100))

	assert.Equal(t, "-20.00", result.Difference.String())
	assert.Equal(t, "-25.00%", result.PercentDiff.Percent())
}

func TestClassifyZeroSourceYieldsInfinitePercent(t *testing.T) {
	result := classify(Definition{}, NumericValue(0), NumericValue(5))

	assert.Equal(t, StatusMismatch, result.Status)
	assert.Equal(t, "-5.00", result.Difference.String())
	assert.Equal(t, "Inf%", result.PercentDiff.Percent())
}

func TestClassifyNonNumericStringEquality(t *testing.T) {
	match := classify(Definition{}, TextValue("COMPLETE"), TextValue("COMPLETE"))
	assert.Equal(t, StatusMatch, match.Status)
	assert.Equal(t, "N/A", match.Difference.String())
	assert.Equal(t, "N/A", match.PercentDiff.Percent())

	mismatch := classify(Definition{}, TextValue("COMPLETE"), TextValue("PENDING"))
	assert.Equal(t, StatusMismatch, mismatch.Status)
}

func TestClassifyIdenticalErrorSentinelsMatch(t *testing.T) {
	sentinel := ErrorValue("QUERY_ERROR: division by zero")
	result := classify(Definition{}, sentinel, sentinel)
	assert.Equal(t, StatusMatch, result.Status)
}

func TestClassifyBothNullMatch(t *testing.T) {
	result := classify(Definition{}, NullValue(), NullValue())
	assert.Equal(t, StatusMatch, result.Status)
}

func TestValidateAll(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows(
			Definition{ID: "1", Name: "Total Orders", Formula: "SELECT COUNT(*) FROM ORDER_DATA"},
			Definition{ID: "2", Name: "Total Revenue", Formula: "SELECT SUM(amount) FROM order_data"},
		))
	expectProbe(mock, "PUBLIC", true)
	expectProbe(mock, "PUBLIC_MIRROR", true)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ORDERS_DB\.PUBLIC\.ORDER_DATA`).
		WillReturnRows(scalarRows(int64(100)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ORDERS_DB\.PUBLIC_MIRROR\.ORDER_DATA`).
		WillReturnRows(scalarRows(int64(80)))

	mock.ExpectQuery(`SELECT SUM\(amount\) FROM ORDERS_DB\.PUBLIC\.ORDER_DATA`).
		WillReturnRows(scalarRows("1234.50"))
	mock.ExpectQuery(`SELECT SUM\(amount\) FROM ORDERS_DB\.PUBLIC_MIRROR\.ORDER_DATA`).
		WillReturnRows(scalarRows("1234.50"))

	results, status, err := validator.ValidateAll(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")
	require.NoError(t, err)
	assert.Equal(t, "KPI validation completed", status)
	require.Len(t, results, 2)

	assert.Equal(t, "Total Orders", results[0].KPIName)
	assert.Equal(t, StatusMismatch, results[0].Status)
	assert.Equal(t, "20.00", results[0].Difference.String())
	assert.Equal(t, "20.00%", results[0].PercentDiff.Percent())

	// Driver returned the sum as a string; it still counts as numeric
	assert.Equal(t, "Total Revenue", results[1].KPIName)
	assert.Equal(t, StatusMatch, results[1].Status)
	assert.Equal(t, "0.00", results[1].Difference.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateAllMissingFactTableShortCircuits(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows(
			Definition{ID: "1", Name: "Total Orders", Formula: "SELECT COUNT(*) FROM ORDER_DATA"},
			Definition{ID: "2", Name: "Total Revenue", Formula: "SELECT SUM(amount) FROM ORDER_DATA"},
		))
	expectProbe(mock, "PUBLIC", true)
	expectProbe(mock, "PUBLIC_MIRROR", false)

	results, status, err := validator.ValidateAll(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")
	require.NoError(t, err)
	assert.Equal(t, "Validation failed - missing ORDER_DATA table", status)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.Equal(t, StatusError, result.Status)
		assert.Equal(t, "ERROR: ORDER_DATA table missing in target schema", result.SourceValue.String())
		assert.Equal(t, "ERROR: ORDER_DATA table missing in target schema", result.CloneValue.String())
		assert.Equal(t, "N/A", result.Difference.String())
	}

	// No formula may be executed when the precondition fails
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateAllMissingInBothSchemas(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows(Definition{ID: "1", Name: "Total Orders", Formula: "SELECT 1 FROM ORDER_DATA"}))
	expectProbe(mock, "PUBLIC", false)
	expectProbe(mock, "PUBLIC_MIRROR", false)

	results, _, err := validator.ValidateAll(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "ERROR: ORDER_DATA table missing in both schemas", results[0].SourceValue.String())
}

func TestValidateAllNoDefinitions(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows())

	results, status, err := validator.ValidateAll(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, "No KPIs found in ORDER_KPIS table", status)
}

func TestValidateAllDefinitionLoadFailureAborts(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnError(errors.New("ORDER_KPIS does not exist"))

	results, status, err := validator.ValidateAll(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")
	require.Error(t, err)
	assert.Empty(t, results)
	assert.Contains(t, status, "KPI validation failed")
}

func TestValidateAllIsolatesPerSideFailures(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows(Definition{ID: "1", Name: "Total Orders", Formula: "SELECT COUNT(*) FROM ORDER_DATA"}))
	expectProbe(mock, "PUBLIC", true)
	expectProbe(mock, "PUBLIC_MIRROR", true)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ORDERS_DB\.PUBLIC\.ORDER_DATA`).
		WillReturnError(errors.New("numeric value out of range\ndetails follow"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ORDERS_DB\.PUBLIC_MIRROR\.ORDER_DATA`).
		WillReturnRows(scalarRows(int64(100)))

	results, status, err := validator.ValidateAll(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")
	require.NoError(t, err)
	assert.Equal(t, "KPI validation completed", status)
	require.Len(t, results, 1)

	assert.True(t, results[0].SourceValue.IsError())
	assert.Contains(t, results[0].SourceValue.String(), "QUERY_ERROR:")
	// The clone side still reports its successful result
	assert.Equal(t, "100", results[0].CloneValue.String())
	assert.Equal(t, StatusMismatch, results[0].Status)
	assert.Equal(t, "N/A", results[0].Difference.String())
}

func TestValidateAllZeroRowsBecomesNull(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows(Definition{ID: "1", Name: "Latest Order", Formula: "SELECT MAX(id) FROM ORDER_DATA WHERE 1=0"}))
	expectProbe(mock, "PUBLIC", true)
	expectProbe(mock, "PUBLIC_MIRROR", true)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_DATA`).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(id)"}))
	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC_MIRROR\.ORDER_DATA`).
		WillReturnRows(sqlmock.NewRows([]string{"MAX(id)"}))

	results, _, err := validator.ValidateAll(context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, StatusMatch, results[0].Status)
	assert.Equal(t, "", results[0].SourceValue.String())
}

func TestValidateSelectedFiltersByName(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows(
			Definition{ID: "1", Name: "Total Orders", Formula: "SELECT COUNT(*) FROM ORDER_DATA"},
			Definition{ID: "2", Name: "Total Revenue", Formula: "SELECT SUM(amount) FROM ORDER_DATA"},
		))
	expectProbe(mock, "PUBLIC", true)
	expectProbe(mock, "PUBLIC_MIRROR", true)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ORDERS_DB\.PUBLIC\.ORDER_DATA`).
		WillReturnRows(scalarRows(int64(7)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ORDERS_DB\.PUBLIC_MIRROR\.ORDER_DATA`).
		WillReturnRows(scalarRows(int64(7)))

	results, status, hasResults, err := validator.ValidateSelected(
		context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR", []string{"Total Orders"})
	require.NoError(t, err)
	assert.True(t, hasResults)
	assert.Equal(t, "KPI validation completed", status)
	require.Len(t, results, 1)
	assert.Equal(t, "Total Orders", results[0].KPIName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateSelectedEmptySelection(t *testing.T) {
	validator, _ := newValidator(t)

	results, status, hasResults, err := validator.ValidateSelected(
		context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR", nil)
	require.NoError(t, err)
	assert.False(t, hasResults)
	assert.Empty(t, results)
	assert.Equal(t, "No KPIs selected", status)
}

func TestValidateSelectedNoMatches(t *testing.T) {
	validator, mock := newValidator(t)

	mock.ExpectQuery(`FROM ORDERS_DB\.PUBLIC\.ORDER_KPIS`).
		WillReturnRows(kpiRows(Definition{ID: "1", Name: "Total Orders", Formula: "SELECT 1 FROM ORDER_DATA"}))

	results, status, hasResults, err := validator.ValidateSelected(
		context.Background(), "ORDERS_DB", "PUBLIC", "PUBLIC_MIRROR", []string{"Unknown KPI"})
	require.NoError(t, err)
	assert.False(t, hasResults)
	assert.Empty(t, results)
	assert.Equal(t, "No matching KPIs found in ORDER_KPIS table", status)
}

func TestAsNumber(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  float64
		ok    bool
	}{
		{"int64", int64(42), 42, true},
		{"float64", 3.14, 3.14, true},
		{"numeric string", "1234.50", 1234.5, true},
		{"numeric bytes", []byte("7"), 7, true},
		{"text", "pending", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asNumber(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

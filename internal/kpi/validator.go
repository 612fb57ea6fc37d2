// Package kpi evaluates named metric formulas from the ORDER_KPIS catalog
// table against a source schema and its mirror, and classifies the deltas.
package kpi

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"schemamirror/internal/catalog"
	"schemamirror/internal/qualify"
	"schemamirror/pkg/errors"
)

// FactTable is the unqualified fact table every KPI formula references
const FactTable = "ORDER_DATA"

// kpisTable is the catalog table holding KPI definitions
const kpisTable = "ORDER_KPIS"

// Result statuses
const (
	StatusMatch    = "Match"
	StatusMismatch = "Mismatch"
	StatusError    = "Error"
)

// Definition is one stored KPI formula. Lifecycle is entirely external;
// the validator only reads these.
type Definition struct {
	ID      string
	Name    string
	Formula string
}

// Result is the outcome of evaluating one KPI against both schemas
type Result struct {
	KPIID       string
	KPIName     string
	SourceValue Value
	CloneValue  Value
	Difference  Delta
	PercentDiff Delta
	Status      string
}

// Validator evaluates KPI definitions through the catalog client
type Validator struct {
	client *catalog.Client
}

// New creates a new Validator
func New(client *catalog.Client) *Validator {
	return &Validator{client: client}
}

// Definitions loads every KPI definition from database.schema.ORDER_KPIS.
// A failure here aborts the whole validation; it is the only error that
// propagates out of this package.
func (v *Validator) Definitions(ctx context.Context, database, schema string) ([]Definition, error) {
	query := fmt.Sprintf("SELECT KPI_ID, KPI_NAME, KPI_VALUE FROM %s.%s.%s ORDER BY KPI_ID",
		database, schema, kpisTable)

	rows, err := v.client.Query(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCatalogAccess, "Failed to load KPI definitions")
	}
	defer rows.Close()

	var defs []Definition
	for rows.Next() {
		var def Definition
		if err := rows.Scan(&def.ID, &def.Name, &def.Formula); err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return defs, rows.Err()
}

// ValidateAll evaluates every stored KPI against both schemas. The error is
// non-nil only when the definition list itself cannot be obtained.
func (v *Validator) ValidateAll(ctx context.Context, database, sourceSchema, targetSchema string) ([]Result, string, error) {
	defs, err := v.Definitions(ctx, database, sourceSchema)
	if err != nil {
		return nil, fmt.Sprintf("KPI validation failed: %s", errors.FirstLine(err)), err
	}
	if len(defs) == 0 {
		return nil, "No KPIs found in ORDER_KPIS table", nil
	}

	results, status := v.evaluate(ctx, database, sourceSchema, targetSchema, defs)
	return results, status, nil
}

// ValidateSelected evaluates only the KPIs named in the allow-list. The
// extra boolean reports whether any results were produced.
func (v *Validator) ValidateSelected(ctx context.Context, database, sourceSchema, targetSchema string, names []string) ([]Result, string, bool, error) {
	if len(names) == 0 {
		return nil, "No KPIs selected", false, nil
	}

	defs, err := v.Definitions(ctx, database, sourceSchema)
	if err != nil {
		return nil, fmt.Sprintf("KPI validation failed: %s", errors.FirstLine(err)), false, err
	}

	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}

	var selected []Definition
	for _, def := range defs {
		if _, ok := allowed[def.Name]; ok {
			selected = append(selected, def)
		}
	}
	if len(selected) == 0 {
		return nil, "No matching KPIs found in ORDER_KPIS table", false, nil
	}

	results, status := v.evaluate(ctx, database, sourceSchema, targetSchema, selected)
	return results, status, len(results) > 0, nil
}

// evaluate is the shared core: fact-table precondition, then per-KPI
// per-side isolated execution and classification.
func (v *Validator) evaluate(ctx context.Context, database, sourceSchema, targetSchema string, defs []Definition) ([]Result, string) {
	sourceProbe := v.client.Probe(ctx, database, sourceSchema, FactTable)
	targetProbe := v.client.Probe(ctx, database, targetSchema, FactTable)

	// One missing fact table would otherwise surface as N identical SQL
	// errors; short-circuit with a single cause instead.
	if sourceProbe != catalog.Readable || targetProbe != catalog.Readable {
		msg := preconditionMessage(sourceProbe, targetProbe)
		results := make([]Result, 0, len(defs))
		for _, def := range defs {
			results = append(results, Result{
				KPIID:       def.ID,
				KPIName:     def.Name,
				SourceValue: ErrorValue("ERROR: " + msg),
				CloneValue:  ErrorValue("ERROR: " + msg),
				Difference:  NoDelta(),
				PercentDiff: NoDelta(),
				Status:      StatusError,
			})
		}
		return results, "Validation failed - missing ORDER_DATA table"
	}

	results := make([]Result, 0, len(defs))
	for _, def := range defs {
		sourceValue := v.evaluateSide(ctx, database, sourceSchema, def.Formula)
		cloneValue := v.evaluateSide(ctx, database, targetSchema, def.Formula)
		results = append(results, classify(def, sourceValue, cloneValue))
	}

	return results, "KPI validation completed"
}

// evaluateSide qualifies the formula for one schema and executes it. Always
// works from the original formula text, never a previously qualified copy.
func (v *Validator) evaluateSide(ctx context.Context, database, schema, formula string) Value {
	query := qualify.Table(formula, FactTable, database, schema)

	raw, found, err := v.client.QueryScalar(ctx, query)
	if err != nil {
		return ErrorValue("QUERY_ERROR: " + errors.FirstLine(err))
	}
	if !found {
		return NullValue()
	}

	if num, ok := asNumber(raw); ok {
		return NumericValue(num)
	}
	return TextValue(fmt.Sprintf("%v", raw))
}

// classify computes difference, percent difference, and status for one KPI.
// It never fails: anything it cannot compute stays at the Mismatch/N-A
// defaults.
func classify(def Definition, source, clone Value) Result {
	result := Result{
		KPIID:       def.ID,
		KPIName:     def.Name,
		SourceValue: source,
		CloneValue:  clone,
		Difference:  NoDelta(),
		PercentDiff: NoDelta(),
		Status:      StatusMismatch,
	}

	if source.IsNumeric() && clone.IsNumeric() {
		diff := source.Float() - clone.Float()
		result.Difference = NumericDelta(diff)
		if source.Float() != 0 {
			result.PercentDiff = NumericDelta(diff / source.Float() * 100)
		} else {
			result.PercentDiff = NumericDelta(math.Inf(1))
		}
		if diff == 0 {
			result.Status = StatusMatch
		}
		return result
	}

	if source.String() == clone.String() {
		result.Status = StatusMatch
	}
	return result
}

// preconditionMessage names which side lacks the fact table
func preconditionMessage(source, target catalog.ProbeResult) string {
	switch {
	case source != catalog.Readable && target != catalog.Readable:
		return "ORDER_DATA table missing in both schemas"
	case source != catalog.Readable:
		return "ORDER_DATA table missing in source schema"
	default:
		return "ORDER_DATA table missing in target schema"
	}
}

// asNumber coerces driver scalar values to float64. The warehouse driver
// returns fixed-point numbers as strings, so parseable strings count.
func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

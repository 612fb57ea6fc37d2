package kpi

import (
	"math"
	"strconv"
)

type valueKind int

const (
	valueNull valueKind = iota
	valueNumeric
	valueText
	valueError
)

// Value is the outcome of evaluating a KPI formula against one schema:
// a number, a textual result, no rows, or an error sentinel. The tagged
// form keeps downstream classification and formatting exhaustive.
type Value struct {
	kind valueKind
	num  float64
	text string
}

// NumericValue wraps a numeric query result
func NumericValue(f float64) Value {
	return Value{kind: valueNumeric, num: f}
}

// TextValue wraps a non-numeric query result
func TextValue(s string) Value {
	return Value{kind: valueText, text: s}
}

// NullValue represents a query that returned zero rows
func NullValue() Value {
	return Value{kind: valueNull}
}

// ErrorValue wraps an error sentinel such as "QUERY_ERROR: ..."
func ErrorValue(msg string) Value {
	return Value{kind: valueError, text: msg}
}

// IsNumeric reports whether the value carries a number
func (v Value) IsNumeric() bool {
	return v.kind == valueNumeric
}

// IsError reports whether the value is an error sentinel
func (v Value) IsError() bool {
	return v.kind == valueError
}

// Float returns the numeric payload; zero unless IsNumeric
func (v Value) Float() float64 {
	return v.num
}

// String renders the value for display and string-equality comparison
func (v Value) String() string {
	switch v.kind {
	case valueNumeric:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case valueText, valueError:
		return v.text
	default:
		return ""
	}
}

// Delta is a computed difference column: a number or not applicable.
// Not applicable covers every case where either side was non-numeric.
type Delta struct {
	valid bool
	num   float64
}

// NumericDelta wraps a computed numeric difference
func NumericDelta(f float64) Delta {
	return Delta{valid: true, num: f}
}

// NoDelta is the "N/A" difference
func NoDelta() Delta {
	return Delta{}
}

// IsNumeric reports whether the delta carries a number
func (d Delta) IsNumeric() bool {
	return d.valid
}

// Float returns the numeric payload; zero unless IsNumeric
func (d Delta) Float() float64 {
	return d.num
}

// String renders the difference rounded to 2 decimal places, "N/A" when
// not applicable, "Inf" when infinite
func (d Delta) String() string {
	if !d.valid {
		return "N/A"
	}
	if math.IsInf(d.num, 0) {
		return "Inf"
	}
	return strconv.FormatFloat(d.num, 'f', 2, 64)
}

// Percent renders the difference as a percentage with a "%" suffix
func (d Delta) Percent() string {
	if !d.valid {
		return "N/A"
	}
	return d.String() + "%"
}

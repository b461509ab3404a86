// Package criteria evaluates record filters written as field conditions.
//
// A filter is a map from a field path to either a value (equality) or an operator map:
//
//	{"stage": {"$in": ["Cancelado", "Devuelto"]}, "is_test": true}
//
// A record matches when every condition holds.
package criteria

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/Ramsey-B/clover/pkg/extractor"
)

// Supported operators
const (
	OpEquals   = ""          // default, no prefix - simple equality
	OpContains = "$contains" // array contains value
	OpIn       = "$in"       // value is in array of options
	OpGte      = "$gte"
	OpGt       = "$gt"
	OpLte      = "$lte"
	OpLt       = "$lt"
	OpExists   = "$exists" // field exists (value should be bool)
	OpNe       = "$ne"
)

var knownOperators = map[string]bool{
	OpContains: true, OpIn: true, OpGte: true, OpGt: true,
	OpLte: true, OpLt: true, OpExists: true, OpNe: true,
}

// Condition is a single field condition
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Filter is a set of conditions joined with AND. The zero Filter matches nothing.
type Filter struct {
	conditions []Condition
	extractor  *extractor.Extractor
}

// Parse converts a criteria map into a Filter. Unknown operators and operands of the
// wrong shape are errors.
func Parse(criteria map[string]any) (*Filter, error) {
	fields := make([]string, 0, len(criteria))
	for field := range criteria {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var conditions []Condition
	for _, field := range fields {
		ops, ok := criteria[field].(map[string]any)
		if !ok {
			conditions = append(conditions, Condition{Field: field, Operator: OpEquals, Value: criteria[field]})
			continue
		}

		names := make([]string, 0, len(ops))
		for op := range ops {
			names = append(names, op)
		}
		sort.Strings(names)
		for _, op := range names {
			cond := Condition{Field: field, Operator: op, Value: ops[op]}
			if err := cond.validate(); err != nil {
				return nil, err
			}
			conditions = append(conditions, cond)
		}
	}

	return &Filter{conditions: conditions, extractor: extractor.New()}, nil
}

// ParseJSON parses a criteria document. Blank input gives an empty filter.
func ParseJSON(data string) (*Filter, error) {
	if data == "" {
		return &Filter{extractor: extractor.New()}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}
	return Parse(m)
}

func (c Condition) validate() error {
	if !knownOperators[c.Operator] {
		return fmt.Errorf("unknown operator %q on field %q", c.Operator, c.Field)
	}
	switch c.Operator {
	case OpExists:
		if _, ok := c.Value.(bool); !ok {
			return fmt.Errorf("%s on field %q needs a boolean", c.Operator, c.Field)
		}
	case OpIn:
		if _, ok := toSlice(c.Value); !ok {
			return fmt.Errorf("%s on field %q needs a list", c.Operator, c.Field)
		}
	case OpGte, OpGt, OpLte, OpLt:
		if _, ok := toFloat64(c.Value); !ok {
			return fmt.Errorf("%s on field %q needs a number", c.Operator, c.Field)
		}
	}
	return nil
}

// Empty reports whether the filter has no conditions
func (f *Filter) Empty() bool {
	return f == nil || len(f.conditions) == 0
}

// Conditions returns the parsed conditions in field order
func (f *Filter) Conditions() []Condition {
	if f == nil {
		return nil
	}
	return append([]Condition(nil), f.conditions...)
}

// Matches reports whether the record satisfies every condition. An empty filter matches nothing.
func (f *Filter) Matches(record map[string]any) bool {
	if f.Empty() {
		return false
	}
	for _, cond := range f.conditions {
		if !f.evaluate(record, cond) {
			return false
		}
	}
	return true
}

func (f *Filter) evaluate(record map[string]any, cond Condition) bool {
	value, err := f.extractor.Extract(record, cond.Field)
	exists := err == nil && value != nil

	switch cond.Operator {
	case OpEquals:
		return exists && valuesEqual(value, cond.Value)

	case OpNe:
		return !exists || !valuesEqual(value, cond.Value)

	case OpExists:
		expect, _ := cond.Value.(bool)
		return exists == expect

	case OpContains:
		if !exists {
			return false
		}
		arr, ok := toSlice(value)
		if !ok {
			return false
		}
		for _, item := range arr {
			if valuesEqual(item, cond.Value) {
				return true
			}
		}
		return false

	case OpIn:
		if !exists {
			return false
		}
		options, _ := toSlice(cond.Value)
		for _, opt := range options {
			if valuesEqual(value, opt) {
				return true
			}
		}
		return false

	case OpGte, OpGt, OpLte, OpLt:
		return exists && compareNumeric(value, cond.Operator, cond.Value)

	default:
		return false
	}
}

// valuesEqual compares two values, treating 1 and 1.0 and "1" as equal
func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toSlice(v any) ([]any, bool) {
	switch arr := v.(type) {
	case []any:
		return arr, true
	case []string:
		result := make([]any, len(arr))
		for i, s := range arr {
			result[i] = s
		}
		return result, true
	default:
		val := reflect.ValueOf(v)
		if val.Kind() != reflect.Slice {
			return nil, false
		}
		result := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			result[i] = val.Index(i).Interface()
		}
		return result, true
	}
}

func compareNumeric(actual any, op string, expected any) bool {
	a, ok := toFloat64(actual)
	if !ok {
		return false
	}
	e, ok := toFloat64(expected)
	if !ok {
		return false
	}

	switch op {
	case OpGte:
		return a >= e
	case OpGt:
		return a > e
	case OpLte:
		return a <= e
	case OpLt:
		return a < e
	default:
		return false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

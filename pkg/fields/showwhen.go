package fields

import (
	"fmt"
	"log/slog"
	"reflect"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"mercator-hq/atrium/pkg/panel"
)

// Condition operators.
const (
	OpEqual        = "="
	OpLessThan     = "<"
	OpGreaterThan  = ">"
	OpLessEqual    = "<="
	OpGreaterEqual = ">="
	OpNotEqual     = "!="
	OpIn           = "in"
	OpNotIn        = "not in"
)

// Operators lists the recognised condition operators.
var Operators = []string{
	OpEqual, OpLessThan, OpGreaterThan, OpLessEqual, OpGreaterEqual, OpNotEqual, OpIn, OpNotIn,
}

var (
	arrayOperators = []string{OpIn, OpNotIn}

	// operators that accept a nil comparison value
	nullableOperators = []string{OpEqual, "<>", OpNotEqual}
)

// Condition is a conditional visibility rule: ShowField is displayed only
// when ChangeField compares true against Value. Conditions are immutable
// once built.
type Condition struct {
	ShowField   string `json:"showField"`
	ChangeField string `json:"changeField"`
	Operator    string `json:"operator"`
	Value       any    `json:"value"`
}

// ShowWhen builds a visibility rule for owner and attaches it to the
// field. The arguments follow the call forms
//
//	ShowWhen(f, column)                  // column = nil
//	ShowWhen(f, column, value)           // column = value
//	ShowWhen(f, column, operator, value)
//
// An operator that is not recognised is treated as the comparison value
// with operator "=". A nil value is only accepted with an equality
// operator, and the array operators require a slice or array value.
func ShowWhen(owner *Field, column string, args ...any) (Condition, error) {
	var (
		operator any
		value    any
	)

	switch len(args) {
	case 0:
	case 1:
		operator, value = OpEqual, args[0]
	case 2:
		operator, value = args[0], args[1]
	default:
		return Condition{}, panel.NewConfigurationError("showwhen",
			"field %q: expected at most operator and value, got %d arguments", owner.Name(), len(args))
	}

	op, err := prepareOperator(owner, operator, &value)
	if err != nil {
		return Condition{}, err
	}

	cond := Condition{
		ShowField:   owner.Name(),
		ChangeField: column,
		Operator:    op,
		Value:       value,
	}
	owner.condition = &cond

	return cond, nil
}

func prepareOperator(owner *Field, operator any, value *any) (string, error) {
	opStr, isString := operator.(string)
	if isString {
		opStr = strings.ToLower(opStr)
	}

	if *value == nil && isString && slices.Contains(Operators, opStr) && !slices.Contains(nullableOperators, opStr) {
		return "", panel.NewConfigurationError("showwhen",
			"field %q: illegal operator and value combination: operator %q requires a value", owner.Name(), opStr)
	}

	if !isString || !slices.Contains(Operators, opStr) {
		logUnrecognised(owner, operator)
		*value = operator
		opStr = OpEqual
	}

	if slices.Contains(arrayOperators, opStr) && !isList(*value) {
		return "", panel.NewConfigurationError("showwhen",
			"field %q: illegal operator and value combination: operator %q requires an array value, got %T",
			owner.Name(), opStr, *value)
	}

	return opStr, nil
}

func logUnrecognised(owner *Field, operator any) {
	s, ok := operator.(string)
	if !ok || s == "" {
		return
	}

	nearest, best := "", -1
	for _, op := range Operators {
		if d := levenshtein.ComputeDistance(strings.ToLower(s), op); best < 0 || d < best {
			nearest, best = op, d
		}
	}
	if best > 2 {
		return
	}

	slog.Default().With("component", "fields.showwhen").Debug("operator not recognised, comparing as value",
		"field", owner.Name(),
		"value", s,
		"nearest_operator", nearest,
	)
}

func isList(v any) bool {
	if v == nil {
		return false
	}
	k := reflect.ValueOf(v).Kind()
	return k == reflect.Slice || k == reflect.Array
}

// Matches evaluates the rule against the current values of the form,
// keyed by field name.
func (c Condition) Matches(values map[string]any) (bool, error) {
	actual := values[c.ChangeField]

	switch c.Operator {
	case OpEqual:
		return evaluateEqual(actual, c.Value)
	case OpNotEqual:
		equal, err := evaluateEqual(actual, c.Value)
		return !equal, err
	case OpLessThan:
		return evaluateCompare(actual, c.Value, func(a, b float64) bool { return a < b })
	case OpGreaterThan:
		return evaluateCompare(actual, c.Value, func(a, b float64) bool { return a > b })
	case OpLessEqual:
		return evaluateCompare(actual, c.Value, func(a, b float64) bool { return a <= b })
	case OpGreaterEqual:
		return evaluateCompare(actual, c.Value, func(a, b float64) bool { return a >= b })
	case OpIn:
		return evaluateIn(actual, c.Value)
	case OpNotIn:
		in, err := evaluateIn(actual, c.Value)
		return !in, err
	default:
		return false, fmt.Errorf("unknown operator: %q", c.Operator)
	}
}

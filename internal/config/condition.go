package config

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/samber/mo"
)

// Operator names a predicate that a schema condition applies to a value.
type Operator string

const (
	OpType     Operator = "TYPE"
	OpRange    Operator = "RANGE"
	OpFunction Operator = "FUNCTION"
)

// ErrUnsupportedOperator is returned for an operator the evaluator does not know,
// or a known operator given an operand of the wrong shape.
var ErrUnsupportedOperator = errors.New("unsupported condition operator")

// Kind is a loose runtime type used as the operand of OpType.
// Configuration trees come from YAML or JSON, so numbers may arrive as
// int or float64 depending on the decoder.
type Kind string

const (
	KindString Kind = "string"
	KindInt    Kind = "integer"
	KindFloat  Kind = "float"
	KindNumber Kind = "number"
	KindBool   Kind = "boolean"
	KindMap    Kind = "map"
	KindList   Kind = "list"
	KindAny    Kind = "any"
)

// Range is the operand of OpRange: Low <= v < High. A None bound is open.
type Range struct {
	Low  mo.Option[float64]
	High mo.Option[float64]
}

// Between builds a closed-open range with both bounds set.
func Between(low, high float64) Range {
	return Range{Low: mo.Some(low), High: mo.Some(high)}
}

// AtLeast builds a range with only a lower bound.
func AtLeast(low float64) Range {
	return Range{Low: mo.Some(low), High: mo.None[float64]()}
}

// Below builds a range with only an upper bound.
func Below(high float64) Range {
	return Range{Low: mo.None[float64](), High: mo.Some(high)}
}

// Condition pairs an operator with its operand.
type Condition struct {
	Op      Operator
	Operand any
}

// IsType is shorthand for an OpType condition.
func IsType(k Kind) Condition { return Condition{Op: OpType, Operand: k} }

// InRange is shorthand for an OpRange condition.
func InRange(r Range) Condition { return Condition{Op: OpRange, Operand: r} }

// Satisfies is shorthand for an OpFunction condition.
func Satisfies(fn func(any) bool) Condition { return Condition{Op: OpFunction, Operand: fn} }

// Evaluate reports whether value satisfies op with the given operand.
func Evaluate(value any, op Operator, operand any) (bool, error) {
	switch op {
	case OpType:
		return evalType(value, operand)
	case OpRange:
		r, ok := operand.(Range)
		if !ok {
			return false, fmt.Errorf("%w: RANGE operand must be config.Range, got %T", ErrUnsupportedOperator, operand)
		}
		return evalRange(value, r), nil
	case OpFunction:
		fn, ok := operand.(func(any) bool)
		if !ok {
			return false, fmt.Errorf("%w: FUNCTION operand must be func(any) bool, got %T", ErrUnsupportedOperator, operand)
		}
		return fn(value), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
	}
}

func evalType(value any, operand any) (bool, error) {
	switch t := operand.(type) {
	case Kind:
		return matchKind(value, t)
	case reflect.Type:
		if value == nil {
			return false, nil
		}
		vt := reflect.TypeOf(value)
		if t.Kind() == reflect.Interface {
			return vt.Implements(t), nil
		}
		return vt == t, nil
	default:
		return false, fmt.Errorf("%w: TYPE operand must be config.Kind or reflect.Type, got %T", ErrUnsupportedOperator, operand)
	}
}

func matchKind(value any, k Kind) (bool, error) {
	switch k {
	case KindAny:
		return true, nil
	case KindString:
		_, ok := value.(string)
		return ok, nil
	case KindBool:
		_, ok := value.(bool)
		return ok, nil
	case KindInt:
		switch v := value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return true, nil
		case float64:
			// JSON numbers decode as float64
			return v == math.Trunc(v) && !math.IsInf(v, 0), nil
		}
		return false, nil
	case KindFloat:
		switch value.(type) {
		case float32, float64:
			return true, nil
		}
		return false, nil
	case KindNumber:
		_, ok := toFloat(value)
		return ok, nil
	case KindMap:
		if value == nil {
			return false, nil
		}
		return reflect.TypeOf(value).Kind() == reflect.Map, nil
	case KindList:
		if value == nil {
			return false, nil
		}
		kind := reflect.TypeOf(value).Kind()
		return kind == reflect.Slice || kind == reflect.Array, nil
	default:
		return false, fmt.Errorf("%w: unknown kind %q", ErrUnsupportedOperator, k)
	}
}

func evalRange(value any, r Range) bool {
	v, ok := toFloat(value)
	if !ok {
		return false
	}
	if low, present := r.Low.Get(); present && v < low {
		return false
	}
	if high, present := r.High.Get(); present && v >= high {
		return false
	}
	return true
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	return 0, false
}

// Package compare decodes stored parameter values and applies rule
// comparisons with type coercion. Every failure mode is fail-closed.
package compare

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/model"
)

var (
	// ErrMissing means no value is stored (empty or JSON null).
	ErrMissing = eris.New("value missing")
	// ErrMalformed means the stored text is not a valid scalar of the declared type.
	ErrMalformed = eris.New("value malformed")
	// ErrTypeMismatch means the operands cannot be coerced to a common type.
	ErrTypeMismatch = eris.New("type mismatch")
	// ErrOrderingOnBoolean means <, <=, > or >= was applied to a boolean.
	ErrOrderingOnBoolean = eris.New("ordering operator applied to boolean")
	// ErrUnknownOperator means the operator is not one of the six supported.
	ErrUnknownOperator = eris.New("unknown operator")
)

// Decode turns the JSON text of a stored value into a Literal of the
// declared data type.
func Decode(raw json.RawMessage, dt model.DataType) (model.Literal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return model.Literal{}, ErrMissing
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return model.Literal{}, eris.Wrap(ErrMalformed, err.Error())
	}
	if dec.More() {
		return model.Literal{}, eris.Wrap(ErrMalformed, "trailing data")
	}

	switch dt {
	case model.DataTypeNumber:
		switch x := v.(type) {
		case json.Number:
			f, err := x.Float64()
			if err != nil {
				return model.Literal{}, eris.Wrap(ErrMalformed, err.Error())
			}
			return model.Number(f), nil
		case string:
			if f, ok := toNumber(model.String(x)); ok {
				return model.Number(f), nil
			}
		}
	case model.DataTypeBoolean:
		switch x := v.(type) {
		case bool:
			return model.Bool(x), nil
		case string:
			if b, ok := toBool(model.String(x)); ok {
				return model.Bool(b), nil
			}
		}
	case model.DataTypeString:
		switch x := v.(type) {
		case string:
			return model.String(x), nil
		case json.Number:
			return model.String(x.String()), nil
		case bool:
			return model.String(strconv.FormatBool(x)), nil
		}
	default:
		return model.Literal{}, eris.Wrapf(ErrMalformed, "unknown data type %q", dt)
	}
	return model.Literal{}, eris.Wrapf(ErrMalformed, "%s is not a %s", trimmed, dt)
}

// Compare applies op to actual and expected. Numeric comparison is used when
// the declared type is number or both operands are numbers; equality is
// exact, with no epsilon. Boolean comparison is used when either operand is
// boolean and only supports == and !=. Otherwise operands are compared as
// strings, lexicographically by code point.
func Compare(actual, expected model.Literal, dt model.DataType, op model.Operator) (bool, error) {
	if _, ok := model.ParseOperator(string(op)); !ok {
		return false, eris.Wrapf(ErrUnknownOperator, "%q", op)
	}

	bothNumbers := actual.Kind == model.LiteralNumber && expected.Kind == model.LiteralNumber
	if dt == model.DataTypeNumber || bothNumbers {
		a, okA := toNumber(actual)
		e, okE := toNumber(expected)
		if !okA || !okE {
			return false, eris.Wrapf(ErrTypeMismatch, "cannot compare %s with %s as numbers", actual.Kind, expected.Kind)
		}
		return compareOrdered(a, e, op), nil
	}

	if actual.Kind == model.LiteralBoolean || expected.Kind == model.LiteralBoolean {
		if op.IsOrdering() {
			return false, eris.Wrap(ErrOrderingOnBoolean, string(op))
		}
		a, okA := toBool(actual)
		e, okE := toBool(expected)
		if !okA || !okE {
			return false, eris.Wrapf(ErrTypeMismatch, "cannot compare %s with %s as booleans", actual.Kind, expected.Kind)
		}
		if op == model.OpEq {
			return a == e, nil
		}
		return a != e, nil
	}

	return compareOrdered(actual.Text(), expected.Text(), op), nil
}

// Result is the outcome of Evaluate.
type Result struct {
	Passed  bool
	Outcome model.Outcome
	Actual  *model.Literal
	Err     error
}

// Evaluate decodes raw and compares it against expected. It never panics and
// never passes a value it could not decode or compare.
func Evaluate(raw json.RawMessage, dt model.DataType, op model.Operator, expected model.Literal) Result {
	actual, err := Decode(raw, dt)
	switch {
	case eris.Is(err, ErrMissing):
		return Result{Outcome: model.OutcomeNoData, Err: err}
	case err != nil:
		return Result{Outcome: model.OutcomeMalformed, Err: err}
	}

	ok, err := Compare(actual, expected, dt, op)
	if err != nil {
		return Result{Outcome: model.OutcomeInvalid, Actual: &actual, Err: err}
	}
	if !ok {
		return Result{Outcome: model.OutcomeFailed, Actual: &actual}
	}
	return Result{Passed: true, Outcome: model.OutcomePassed, Actual: &actual}
}

type ordered interface {
	~float64 | ~string
}

func compareOrdered[T ordered](a, e T, op model.Operator) bool {
	switch op {
	case model.OpEq:
		return a == e
	case model.OpNeq:
		return a != e
	case model.OpLt:
		return a < e
	case model.OpLte:
		return a <= e
	case model.OpGt:
		return a > e
	case model.OpGte:
		return a >= e
	}
	return false
}

func toNumber(l model.Literal) (float64, bool) {
	switch l.Kind {
	case model.LiteralNumber:
		return l.Num, true
	case model.LiteralString:
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(l.Str), "%")), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func toBool(l model.Literal) (bool, bool) {
	switch l.Kind {
	case model.LiteralBoolean:
		return l.Bool, true
	case model.LiteralString:
		switch strings.ToLower(strings.TrimSpace(l.Str)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

package model

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/rotisserie/eris"
)

// Operator is a comparison operator in a rule condition.
type Operator string

const (
	OpEq  Operator = "=="
	OpNeq Operator = "!="
	OpLt  Operator = "<"
	OpLte Operator = "<="
	OpGt  Operator = ">"
	OpGte Operator = ">="
)

// Operators lists every supported operator.
var Operators = []Operator{OpEq, OpNeq, OpLt, OpLte, OpGt, OpGte}

// ParseOperator validates an operator token.
func ParseOperator(s string) (Operator, bool) {
	for _, op := range Operators {
		if string(op) == s {
			return op, true
		}
	}
	return "", false
}

// IsOrdering reports whether op is one of <, <=, >, >=.
func (op Operator) IsOrdering() bool {
	switch op {
	case OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// LiteralKind tags the variant held by a Literal.
type LiteralKind uint8

const (
	LiteralNumber LiteralKind = iota + 1
	LiteralBoolean
	LiteralString
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralNumber:
		return "number"
	case LiteralBoolean:
		return "boolean"
	case LiteralString:
		return "string"
	}
	return "invalid"
}

// Literal is a number, boolean or string scalar. It encodes to JSON as the
// bare scalar.
type Literal struct {
	Kind LiteralKind
	Num  float64
	Bool bool
	Str  string
}

// Number returns a numeric literal.
func Number(v float64) Literal { return Literal{Kind: LiteralNumber, Num: v} }

// Bool returns a boolean literal.
func Bool(v bool) Literal { return Literal{Kind: LiteralBoolean, Bool: v} }

// String returns a string literal.
func String(v string) Literal { return Literal{Kind: LiteralString, Str: v} }

// LiteralFromAny converts a decoded JSON/YAML scalar into a Literal.
func LiteralFromAny(v any) (Literal, error) {
	switch x := v.(type) {
	case float64:
		return Number(x), nil
	case float32:
		return Number(float64(x)), nil
	case int:
		return Number(float64(x)), nil
	case int64:
		return Number(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Literal{}, eris.Wrapf(err, "model: literal number %q", x)
		}
		return Number(f), nil
	case bool:
		return Bool(x), nil
	case string:
		return String(x), nil
	case nil:
		return Literal{}, eris.New("model: literal is null")
	default:
		return Literal{}, eris.Errorf("model: unsupported literal type %T", v)
	}
}

// Any returns the literal as a native Go scalar.
func (l Literal) Any() any {
	switch l.Kind {
	case LiteralNumber:
		return l.Num
	case LiteralBoolean:
		return l.Bool
	case LiteralString:
		return l.Str
	}
	return nil
}

// Text renders the literal without quoting.
func (l Literal) Text() string {
	switch l.Kind {
	case LiteralNumber:
		return strconv.FormatFloat(l.Num, 'f', -1, 64)
	case LiteralBoolean:
		return strconv.FormatBool(l.Bool)
	case LiteralString:
		return l.Str
	}
	return ""
}

func (l Literal) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case LiteralNumber, LiteralBoolean, LiteralString:
		return json.Marshal(l.Any())
	}
	return nil, eris.New("model: marshal empty literal")
}

func (l *Literal) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return eris.Wrap(err, "model: decode literal")
	}
	lit, err := LiteralFromAny(v)
	if err != nil {
		return err
	}
	*l = lit
	return nil
}

// ConditionTypeComparison is the only condition type.
const ConditionTypeComparison = "comparison"

// Condition is a single comparison of a parameter against a literal value.
type Condition struct {
	Type      string   `json:"type"`
	Parameter string   `json:"parameter"`
	Operator  Operator `json:"operator"`
	Value     Literal  `json:"value"`
}

// NewComparison builds a comparison condition.
func NewComparison(parameter string, op Operator, value Literal) Condition {
	return Condition{Type: ConditionTypeComparison, Parameter: parameter, Operator: op, Value: value}
}

package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/sells-group/esg-screen/internal/model"
)

// ValidationError reports a rule condition rejected at authoring time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid condition %s: %s", e.Field, e.Reason)
}

// Catalog indexes parameters by normalized name.
type Catalog map[string]model.Parameter

// NewCatalog builds a Catalog from a parameter list.
func NewCatalog(params []model.Parameter) Catalog {
	c := make(Catalog, len(params))
	for _, p := range params {
		c[model.NormalizeName(p.Name)] = p
	}
	return c
}

// Validate checks a condition against the parameter catalog: the parameter
// must exist, ordering operators are not allowed on booleans, and the literal
// must be coercible to the parameter's data type.
func Validate(c model.Condition, catalog Catalog) error {
	if c.Type != "" && c.Type != model.ConditionTypeComparison {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unsupported condition type %q", c.Type)}
	}
	if _, ok := model.ParseOperator(string(c.Operator)); !ok {
		return &ValidationError{Field: "operator", Reason: fmt.Sprintf("unsupported operator %q", c.Operator)}
	}
	if c.Value.Kind == 0 {
		return &ValidationError{Field: "value", Reason: "value is required"}
	}
	if c.Value.Kind == model.LiteralNumber && (math.IsNaN(c.Value.Num) || math.IsInf(c.Value.Num, 0)) {
		return &ValidationError{Field: "value", Reason: fmt.Sprintf("%v is not a finite number", c.Value.Num)}
	}
	p, ok := catalog[model.NormalizeName(c.Parameter)]
	if !ok {
		return &ValidationError{Field: "parameter", Reason: fmt.Sprintf("unknown parameter %q", c.Parameter)}
	}

	switch p.DataType {
	case model.DataTypeBoolean:
		if c.Operator.IsOrdering() {
			return &ValidationError{Field: "operator", Reason: fmt.Sprintf("%s cannot be applied to boolean parameter %s", c.Operator, p.Name)}
		}
		if !coercibleToBool(c.Value) {
			return &ValidationError{Field: "value", Reason: fmt.Sprintf("%s expects true or false", p.Name)}
		}
	case model.DataTypeNumber:
		if !coercibleToNumber(c.Value) {
			return &ValidationError{Field: "value", Reason: fmt.Sprintf("%s expects a number, got %s", p.Name, FormatValue(c.Value))}
		}
	case model.DataTypeString:
		if c.Value.Kind == model.LiteralBoolean && c.Operator.IsOrdering() {
			return &ValidationError{Field: "value", Reason: fmt.Sprintf("%s cannot be ordered against a boolean", p.Name)}
		}
	}
	return nil
}

func coercibleToNumber(l model.Literal) bool {
	switch l.Kind {
	case model.LiteralNumber:
		return true
	case model.LiteralString:
		_, ok := parseNumber(l.Str)
		return ok
	}
	return false
}

func coercibleToBool(l model.Literal) bool {
	switch l.Kind {
	case model.LiteralBoolean:
		return true
	case model.LiteralString:
		s := strings.ToLower(strings.TrimSpace(l.Str))
		return s == "true" || s == "false"
	}
	return false
}

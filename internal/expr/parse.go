// Package expr converts rule conditions between the structured form and the
// NAME OP VALUE text used by rule-authoring surfaces.
package expr

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/esg-screen/internal/model"
)

var conditionPattern = regexp.MustCompile(`(?s)^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(==|!=|<=|>=|<|>)\s*(.+?)\s*$`)

// Parse reads a condition such as "carbon_emissions < 500". The parameter
// name is upper-cased. It returns false when the text does not match the
// grammar; it never panics.
func Parse(text string) (*model.Condition, bool) {
	m := conditionPattern.FindStringSubmatch(text)
	if m == nil {
		return nil, false
	}
	op, ok := model.ParseOperator(m[2])
	if !ok {
		return nil, false
	}
	raw := strings.TrimSpace(m[3])
	if raw == "" {
		return nil, false
	}
	// "x <> 1" or "x === 1": the operator was not a supported token.
	if strings.ContainsRune("=<>!", rune(raw[0])) {
		return nil, false
	}
	c := model.NewComparison(strings.ToUpper(m[1]), op, parseValue(raw))
	return &c, true
}

func parseValue(raw string) model.Literal {
	if strings.HasSuffix(raw, "%") {
		// The percent sign is cosmetic: 10% is 10, not 0.1.
		if f, ok := parseNumber(strings.TrimSuffix(raw, "%")); ok {
			return model.Number(f)
		}
	}
	switch strings.ToLower(raw) {
	case "true":
		return model.Bool(true)
	case "false":
		return model.Bool(false)
	}
	if len(raw) >= 2 {
		first, last := raw[0], raw[len(raw)-1]
		if (first == '\'' || first == '"') && first == last {
			return model.String(raw[1 : len(raw)-1])
		}
	}
	if f, ok := parseNumber(raw); ok {
		return model.Number(f)
	}
	return model.String(raw)
}

// parseNumber accepts finite decimal numbers only. NaN and infinities have no
// JSON encoding, so "nan" and "inf" stay strings.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

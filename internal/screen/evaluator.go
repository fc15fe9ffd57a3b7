// Package screen evaluates criteria sets against companies and assembles
// screening results.
package screen

import (
	"fmt"
	"strings"

	"github.com/sells-group/esg-screen/internal/compare"
	"github.com/sells-group/esg-screen/internal/expr"
	"github.com/sells-group/esg-screen/internal/model"
)

// EvaluateRule evaluates one rule against a company's parameter snapshot.
// It has no side effects.
func EvaluateRule(rule model.Rule, snap model.Snapshot) model.RuleResult {
	res := model.RuleResult{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Severity: rule.Severity,
	}
	cond := rule.Expression
	param := model.NormalizeName(cond.Parameter)

	cv, ok := snap.Lookup(param)
	if !ok {
		res.Outcome = model.OutcomeNoData
		res.FailureReason = noDataReason(param)
		return res
	}

	out := compare.Evaluate(cv.Value, cv.DataType, cond.Operator, cond.Value)
	res.Passed = out.Passed
	res.Outcome = out.Outcome
	res.Actual = out.Actual

	switch out.Outcome {
	case model.OutcomePassed:
	case model.OutcomeNoData:
		res.FailureReason = noDataReason(param)
	case model.OutcomeMalformed:
		res.FailureReason = fmt.Sprintf("Malformed value for %s: %s", param, strings.TrimSpace(string(cv.Value)))
	case model.OutcomeInvalid:
		res.FailureReason = fmt.Sprintf("Invalid comparison for %s: %v", param, out.Err)
	default:
		res.FailureReason = failureReason(rule, param, out.Actual)
	}
	return res
}

func noDataReason(param string) string {
	return "No data available for " + param
}

// failureReason renders the rule's failure message template, or a default
// "<param> <op> <value> failed, actual: <actual>".
func failureReason(rule model.Rule, param string, actual *model.Literal) string {
	actualText := "unknown"
	if actual != nil {
		actualText = expr.FormatValue(*actual)
	}
	cond := rule.Expression
	if msg := strings.TrimSpace(rule.FailureMessage); msg != "" {
		return strings.NewReplacer(
			"{parameter}", param,
			"{operator}", string(cond.Operator),
			"{expected}", expr.FormatValue(cond.Value),
			"{actual}", actualText,
		).Replace(msg)
	}
	return fmt.Sprintf("%s %s %s failed, actual: %s", param, cond.Operator, expr.FormatValue(cond.Value), actualText)
}

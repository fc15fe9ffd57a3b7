package screen

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/esg-screen/internal/model"
)

// ValueSource resolves a company's current parameter values. asOf nil means
// the latest value of each parameter.
type ValueSource interface {
	CurrentParameterValues(ctx context.Context, companyID string, asOf *time.Time) (model.Snapshot, error)
}

// Evaluation is the engine output before assembly.
type Evaluation struct {
	AsOfDate *time.Time
	Summary  model.Summary
	Results  []model.CompanyScreeningResult
}

// Engine evaluates rule sets against companies.
type Engine struct {
	values  ValueSource
	workers int
}

// NewEngine returns an Engine reading snapshots from values with up to
// workers concurrent look-ups (minimum 1).
func NewEngine(values ValueSource, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{values: values, workers: workers}
}

// Evaluate screens companies against rules. Every look-up in one run uses
// the same as-of cutoff. A look-up failure fails the whole run.
func (e *Engine) Evaluate(ctx context.Context, rules []model.Rule, companies []model.Company, asOf *time.Time) (*Evaluation, error) {
	if asOf != nil {
		d := model.DateOnly(*asOf)
		asOf = &d
	}

	snaps := make([]model.Snapshot, len(companies))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, c := range companies {
		g.Go(func() error {
			snap, err := e.values.CurrentParameterValues(gCtx, c.ID, asOf)
			if err != nil {
				return eris.Wrapf(err, "screen: load parameter values for company %s", c.ID)
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	eval := EvaluateSnapshots(rules, companies, snaps)
	eval.AsOfDate = asOf
	return eval, nil
}

// EvaluateSnapshots is the pure core of Evaluate: snaps[i] belongs to
// companies[i]. Output order follows input order.
func EvaluateSnapshots(rules []model.Rule, companies []model.Company, snaps []model.Snapshot) *Evaluation {
	results := make([]model.CompanyScreeningResult, len(companies))
	for i, c := range companies {
		var snap model.Snapshot
		if i < len(snaps) {
			snap = snaps[i]
		}
		results[i] = EvaluateCompany(rules, c, snap)
	}
	return &Evaluation{
		Summary: Summarize(results),
		Results: results,
	}
}

// EvaluateCompany runs every rule for one company. The company passes unless
// a rule with a blocking severity fails; warn and info rules are recorded
// but never change the verdict.
func EvaluateCompany(rules []model.Rule, c model.Company, snap model.Snapshot) model.CompanyScreeningResult {
	ruleResults := make([]model.RuleResult, 0, len(rules))
	passed := true
	for _, r := range rules {
		rr := EvaluateRule(r, snap)
		ruleResults = append(ruleResults, rr)
		passed = passed && (rr.Passed || !rr.Severity.Blocking())
	}
	return model.CompanyScreeningResult{
		Company:     c,
		Passed:      passed,
		RuleResults: ruleResults,
	}
}

// Summarize counts verdicts. PassRate is a rounded percentage and 0 when
// there are no companies.
func Summarize(results []model.CompanyScreeningResult) model.Summary {
	s := model.Summary{TotalHoldings: len(results)}
	for _, r := range results {
		if r.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	if s.TotalHoldings > 0 {
		s.PassRate = int(math.Round(float64(s.Passed) / float64(s.TotalHoldings) * 100))
	}
	return s
}

package model

import "time"

// Outcome classifies a rule evaluation.
type Outcome string

const (
	OutcomePassed    Outcome = "passed"
	OutcomeFailed    Outcome = "failed"
	OutcomeNoData    Outcome = "no_data"
	OutcomeMalformed Outcome = "malformed"
	OutcomeInvalid   Outcome = "invalid"
)

// RuleResult is the verdict of one rule for one company.
type RuleResult struct {
	RuleID        string   `json:"rule_id"`
	RuleName      string   `json:"rule_name"`
	Passed        bool     `json:"passed"`
	Severity      Severity `json:"severity"`
	Outcome       Outcome  `json:"outcome"`
	FailureReason string   `json:"failure_reason,omitempty"`
	Actual        *Literal `json:"actual,omitempty"`
}

// CompanyScreeningResult is the verdict for one company.
type CompanyScreeningResult struct {
	Company     Company      `json:"company"`
	Passed      bool         `json:"passed"`
	Weight      *float64     `json:"weight,omitempty"`
	RuleResults []RuleResult `json:"rule_results"`
}

// Summary aggregates company verdicts.
type Summary struct {
	TotalHoldings int `json:"total_holdings"`
	Passed        int `json:"passed"`
	Failed        int `json:"failed"`
	PassRate      int `json:"pass_rate"`
}

// CriteriaSetRef identifies the criteria set a screening ran against.
type CriteriaSetRef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// PortfolioStats holds weight-based statistics for portfolio screenings.
type PortfolioStats struct {
	TotalWeight     float64 `json:"total_weight"`
	ExcludedWeight  float64 `json:"excluded_weight"`
	PassedWeight    float64 `json:"passed_weight"`
	WeightsBalanced bool    `json:"weights_balanced"`
}

// WarningCode categorizes non-fatal data-quality findings.
type WarningCode string

const (
	WarnWeightsUnbalanced WarningCode = "W1001"
	WarnUnknownCompany    WarningCode = "W1002"
)

// Warning is a non-fatal issue surfaced alongside a result.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

// ScreeningResult is the persisted outcome of one screening run. It is
// immutable once saved.
type ScreeningResult struct {
	ID          string                   `json:"id"`
	ScreenedAt  time.Time                `json:"screened_at"`
	AsOfDate    *time.Time               `json:"as_of_date,omitempty"`
	CriteriaSet CriteriaSetRef           `json:"criteria_set"`
	PortfolioID *string                  `json:"portfolio_id,omitempty"`
	Summary     Summary                  `json:"summary"`
	Results     []CompanyScreeningResult `json:"results"`
	Portfolio   *PortfolioStats          `json:"portfolio,omitempty"`
	Warnings    []Warning                `json:"warnings,omitempty"`
}

// FailedCompanyIDs returns the IDs of companies that did not pass.
func (r *ScreeningResult) FailedCompanyIDs() []string {
	var ids []string
	for _, c := range r.Results {
		if !c.Passed {
			ids = append(ids, c.Company.ID)
		}
	}
	return ids
}

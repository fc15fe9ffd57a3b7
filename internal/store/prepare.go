package store

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/model"
)

// Shared normalization applied by every Store implementation before writes.

func prepareParameter(p model.Parameter) (model.Parameter, error) {
	p.Name = model.NormalizeName(p.Name)
	if p.Name == "" {
		return p, eris.New("store: parameter name is required")
	}
	dt, err := model.ParseDataType(string(p.DataType))
	if err != nil {
		return p, err
	}
	p.DataType = dt
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()
	return p, nil
}

func prepareCompany(c model.Company) (model.Company, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, eris.New("store: company name is required")
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.Ticker = strings.ToUpper(strings.TrimSpace(c.Ticker))
	return c, nil
}

func prepareValues(values []model.ParameterValue) ([]model.ParameterValue, error) {
	out := make([]model.ParameterValue, len(values))
	for i, v := range values {
		if v.CompanyID == "" || v.ParameterID == "" {
			return nil, eris.Errorf("store: value %d: company and parameter are required", i)
		}
		if v.AsOfDate.IsZero() {
			return nil, eris.Errorf("store: value %d: as-of date is required", i)
		}
		if !json.Valid(v.Value) {
			return nil, eris.Errorf("store: value %d: %q is not valid JSON", i, string(v.Value))
		}
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		v.AsOfDate = model.DateOnly(v.AsOfDate)
		out[i] = v
	}
	return out, nil
}

func preparePortfolio(p model.Portfolio) (model.Portfolio, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return p, eris.New("store: portfolio name is required")
	}
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	seen := make(map[string]bool, len(p.Holdings))
	holdings := make([]model.Holding, len(p.Holdings))
	for i, h := range p.Holdings {
		if h.CompanyID == "" {
			return p, eris.Errorf("store: holding %d: company is required", i)
		}
		if seen[h.CompanyID] {
			return p, eris.Errorf("store: holding %d: company %s is held twice", i, h.CompanyID)
		}
		seen[h.CompanyID] = true
		if err := checkWeight(h); err != nil {
			return p, err
		}
		if h.ID == "" {
			h.ID = uuid.New().String()
		}
		h.PortfolioID = p.ID
		holdings[i] = h
	}
	p.Holdings = holdings
	return p, nil
}

func checkWeight(h model.Holding) error {
	if h.Weight < 0 || math.IsNaN(h.Weight) || math.IsInf(h.Weight, 0) {
		return eris.Errorf("store: holding %s has invalid weight %v", h.CompanyID, h.Weight)
	}
	return nil
}

func prepareCriteriaSet(cs model.CriteriaSet) (model.CriteriaSet, error) {
	cs.Name = strings.TrimSpace(cs.Name)
	cs.Version = strings.TrimSpace(cs.Version)
	if cs.Name == "" || cs.Version == "" {
		return cs, eris.New("store: criteria set name and version are required")
	}
	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	cs.CreatedAt = time.Now().UTC()
	if cs.EffectiveDate.IsZero() {
		cs.EffectiveDate = cs.CreatedAt
	}
	cs.EffectiveDate = model.DateOnly(cs.EffectiveDate)

	rules := make([]model.Rule, len(cs.Rules))
	for i, r := range cs.Rules {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}
		r.CriteriaSetID = cs.ID
		r.Position = i
		if r.Expression.Type == "" {
			r.Expression.Type = model.ConditionTypeComparison
		}
		r.Expression.Parameter = model.NormalizeName(r.Expression.Parameter)
		rules[i] = r
	}
	cs.Rules = rules
	return cs, nil
}

// resultRow is the persisted form of one CompanyScreeningResult.
type resultRow struct {
	ID          string
	CompanyID   string
	Position    int
	Passed      bool
	Weight      *float64
	Company     []byte
	RuleResults []byte
}

// encodedResult is the persisted form of a ScreeningResult header.
type encodedResult struct {
	AsOf      *string
	Stats     []byte
	Warnings  []byte
	Rows      []resultRow
	Portfolio *string
}

func encodeResult(r *model.ScreeningResult) (*encodedResult, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ScreenedAt.IsZero() {
		r.ScreenedAt = time.Now().UTC()
	}

	enc := &encodedResult{Portfolio: r.PortfolioID}
	if r.AsOfDate != nil {
		s := r.AsOfDate.Format(model.DateLayout)
		enc.AsOf = &s
	}
	if r.Portfolio != nil {
		b, err := json.Marshal(r.Portfolio)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal portfolio stats")
		}
		enc.Stats = b
	}
	warnings := r.Warnings
	if warnings == nil {
		warnings = []model.Warning{}
	}
	b, err := json.Marshal(warnings)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal warnings")
	}
	enc.Warnings = b

	enc.Rows = make([]resultRow, len(r.Results))
	for i, c := range r.Results {
		companyJSON, err := json.Marshal(c.Company)
		if err != nil {
			return nil, eris.Wrap(err, "store: marshal company")
		}
		rules := c.RuleResults
		if rules == nil {
			rules = []model.RuleResult{}
		}
		rulesJSON, err := json.Marshal(rules)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal rule results for %s", c.Company.ID)
		}
		enc.Rows[i] = resultRow{
			ID:          uuid.New().String(),
			CompanyID:   c.Company.ID,
			Position:    i,
			Passed:      c.Passed,
			Weight:      c.Weight,
			Company:     companyJSON,
			RuleResults: rulesJSON,
		}
	}
	return enc, nil
}

func decodeResultRow(r *model.CompanyScreeningResult, companyJSON, rulesJSON []byte) error {
	if err := json.Unmarshal(companyJSON, &r.Company); err != nil {
		return eris.Wrap(err, "store: unmarshal company")
	}
	if err := json.Unmarshal(rulesJSON, &r.RuleResults); err != nil {
		return eris.Wrap(err, "store: unmarshal rule results")
	}
	return nil
}

func decodeResultHeader(r *model.ScreeningResult, statsJSON, warningsJSON []byte) error {
	if len(statsJSON) > 0 {
		r.Portfolio = &model.PortfolioStats{}
		if err := json.Unmarshal(statsJSON, r.Portfolio); err != nil {
			return eris.Wrap(err, "store: unmarshal portfolio stats")
		}
	}
	if len(warningsJSON) > 0 {
		if err := json.Unmarshal(warningsJSON, &r.Warnings); err != nil {
			return eris.Wrap(err, "store: unmarshal warnings")
		}
	}
	if len(r.Warnings) == 0 {
		r.Warnings = nil
	}
	return nil
}

func listLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	return limit
}

func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := model.ParseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func cutoffArg(asOf *time.Time) any {
	if asOf == nil {
		return nil
	}
	return model.DateOnly(*asOf).Format(model.DateLayout)
}

// Package catalog reads and writes YAML documents describing criteria sets
// and portfolios.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/esg-screen/internal/expr"
	"github.com/sells-group/esg-screen/internal/model"
)

// CriteriaSetDoc is the YAML form of a criteria set.
type CriteriaSetDoc struct {
	Name          string    `yaml:"name"`
	Version       string    `yaml:"version"`
	EffectiveDate string    `yaml:"effective_date,omitempty"`
	ClientID      string    `yaml:"client_id,omitempty"`
	Rules         []RuleDoc `yaml:"rules"`
}

// RuleDoc is one rule. The condition is given either as text in When
// ("CARBON_INTENSITY < 200") or structured in Expression.
type RuleDoc struct {
	Name           string        `yaml:"name"`
	Description    string        `yaml:"description,omitempty"`
	When           string        `yaml:"when,omitempty"`
	Expression     *ConditionDoc `yaml:"expression,omitempty"`
	Severity       string        `yaml:"severity,omitempty"`
	FailureMessage string        `yaml:"failure_message,omitempty"`
}

// ConditionDoc is the structured form of a comparison.
type ConditionDoc struct {
	Parameter string `yaml:"parameter"`
	Operator  string `yaml:"operator"`
	Value     any    `yaml:"value"`
}

// LoadCriteriaSet reads a criteria set document from path.
func LoadCriteriaSet(path string) (*model.CriteriaSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	cs, err := ParseCriteriaSet(data)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: %s", path)
	}
	return cs, nil
}

// ParseCriteriaSet decodes a criteria set document. Conditions are checked
// for shape only; validation against the parameter catalog happens when the
// set is created.
func ParseCriteriaSet(data []byte) (*model.CriteriaSet, error) {
	var doc CriteriaSetDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "catalog: parse criteria set")
	}
	return doc.ToModel()
}

// ToModel converts the document into a criteria set without IDs.
func (d CriteriaSetDoc) ToModel() (*model.CriteriaSet, error) {
	cs := &model.CriteriaSet{
		Name:    strings.TrimSpace(d.Name),
		Version: strings.TrimSpace(d.Version),
		Rules:   make([]model.Rule, 0, len(d.Rules)),
	}
	if d.EffectiveDate != "" {
		t, err := model.ParseDate(d.EffectiveDate)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: effective_date")
		}
		cs.EffectiveDate = t
	}
	if id := strings.TrimSpace(d.ClientID); id != "" {
		cs.ClientID = &id
	}

	for i, rd := range d.Rules {
		rule, err := rd.toModel()
		if err != nil {
			return nil, eris.Wrapf(err, "catalog: rules[%d]", i)
		}
		rule.Position = i
		cs.Rules = append(cs.Rules, rule)
	}
	return cs, nil
}

func (r RuleDoc) toModel() (model.Rule, error) {
	var rule model.Rule

	sev, err := model.ParseSeverity(r.Severity)
	if err != nil {
		return rule, err
	}
	cond, err := r.condition()
	if err != nil {
		return rule, err
	}
	return model.Rule{
		Name:           strings.TrimSpace(r.Name),
		Description:    r.Description,
		Expression:     cond,
		FailureMessage: r.FailureMessage,
		Severity:       sev,
	}, nil
}

func (r RuleDoc) condition() (model.Condition, error) {
	switch {
	case r.When != "" && r.Expression != nil:
		return model.Condition{}, eris.Errorf("rule %q sets both when and expression", r.Name)
	case r.When != "":
		c, ok := expr.Parse(r.When)
		if !ok {
			return model.Condition{}, eris.Errorf("rule %q: cannot parse condition %q", r.Name, r.When)
		}
		return *c, nil
	case r.Expression != nil:
		op, ok := model.ParseOperator(strings.TrimSpace(r.Expression.Operator))
		if !ok {
			return model.Condition{}, eris.Errorf("rule %q: unsupported operator %q", r.Name, r.Expression.Operator)
		}
		lit, err := model.LiteralFromAny(r.Expression.Value)
		if err != nil {
			return model.Condition{}, eris.Wrapf(err, "rule %q", r.Name)
		}
		return model.NewComparison(model.NormalizeName(r.Expression.Parameter), op, lit), nil
	}
	return model.Condition{}, eris.Errorf("rule %q has no condition", r.Name)
}

// MarshalCriteriaSet renders a criteria set as a YAML document, writing
// each condition in its text form.
func MarshalCriteriaSet(cs *model.CriteriaSet) ([]byte, error) {
	doc := CriteriaSetDoc{
		Name:    cs.Name,
		Version: cs.Version,
		Rules:   make([]RuleDoc, 0, len(cs.Rules)),
	}
	if !cs.EffectiveDate.IsZero() {
		doc.EffectiveDate = cs.EffectiveDate.Format(model.DateLayout)
	}
	if cs.ClientID != nil {
		doc.ClientID = *cs.ClientID
	}
	for _, r := range cs.Rules {
		doc.Rules = append(doc.Rules, RuleDoc{
			Name:           r.Name,
			Description:    r.Description,
			When:           expr.Format(r.Expression),
			Severity:       r.Severity.String(),
			FailureMessage: r.FailureMessage,
		})
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, eris.Wrap(err, "catalog: marshal criteria set")
	}
	return out, nil
}

// PortfolioDoc is the YAML form of a portfolio.
type PortfolioDoc struct {
	Name     string       `yaml:"name"`
	ClientID string       `yaml:"client_id,omitempty"`
	Holdings []HoldingDoc `yaml:"holdings"`
}

// HoldingDoc references a company by ID or ticker.
type HoldingDoc struct {
	Company string  `yaml:"company"`
	Weight  float64 `yaml:"weight"`
}

// LoadPortfolio reads a portfolio document from path.
func LoadPortfolio(path string) (*PortfolioDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "catalog: read %s", path)
	}
	var doc PortfolioDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrapf(err, "catalog: parse portfolio %s", path)
	}
	return &doc, nil
}

// ToModel resolves holdings against the known companies. Every referenced
// company must exist and appear at most once.
func (d PortfolioDoc) ToModel(companies []model.Company) (*model.Portfolio, error) {
	if strings.TrimSpace(d.Name) == "" {
		return nil, eris.New("catalog: portfolio name is required")
	}

	byKey := make(map[string]string, 2*len(companies))
	for _, c := range companies {
		if c.Ticker != "" {
			byKey[strings.ToUpper(c.Ticker)] = c.ID
		}
	}
	for _, c := range companies {
		byKey[c.ID] = c.ID
	}

	pf := &model.Portfolio{Name: strings.TrimSpace(d.Name), Holdings: make([]model.Holding, 0, len(d.Holdings))}
	if id := strings.TrimSpace(d.ClientID); id != "" {
		pf.ClientID = &id
	}

	seen := make(map[string]bool, len(d.Holdings))
	var unknown []string
	for i, h := range d.Holdings {
		key := strings.TrimSpace(h.Company)
		id, ok := byKey[key]
		if !ok {
			id, ok = byKey[strings.ToUpper(key)]
		}
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if seen[id] {
			return nil, eris.Errorf("catalog: holdings[%d]: company %s is listed more than once", i, key)
		}
		if h.Weight < 0 {
			return nil, eris.Errorf("catalog: holdings[%d]: negative weight %v", i, h.Weight)
		}
		seen[id] = true
		pf.Holdings = append(pf.Holdings, model.Holding{CompanyID: id, Weight: h.Weight})
	}
	if len(unknown) > 0 {
		return nil, eris.Errorf("catalog: unknown companies: %s", strings.Join(unknown, ", "))
	}
	return pf, nil
}

// String summarizes the document for log lines.
func (d PortfolioDoc) String() string {
	return fmt.Sprintf("%s (%d holdings)", d.Name, len(d.Holdings))
}

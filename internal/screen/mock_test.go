package screen

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/store"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) CurrentParameterValues(ctx context.Context, companyID string, asOf *time.Time) (model.Snapshot, error) {
	args := m.Called(ctx, companyID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(model.Snapshot), args.Error(1)
}

func (m *mockRepo) ListParameters(ctx context.Context) ([]model.Parameter, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Parameter), args.Error(1)
}

func (m *mockRepo) ListCompanies(ctx context.Context, filter store.CompanyFilter) ([]model.Company, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Company), args.Error(1)
}

func (m *mockRepo) GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Portfolio), args.Error(1)
}

func (m *mockRepo) UpdateHoldingWeights(ctx context.Context, portfolioID string, holdings []model.Holding) error {
	args := m.Called(ctx, portfolioID, holdings)
	return args.Error(0)
}

func (m *mockRepo) GetCriteriaSet(ctx context.Context, id string) (*model.CriteriaSet, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CriteriaSet), args.Error(1)
}

func (m *mockRepo) CreateCriteriaSet(ctx context.Context, cs model.CriteriaSet) (*model.CriteriaSet, error) {
	args := m.Called(ctx, cs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CriteriaSet), args.Error(1)
}

func (m *mockRepo) SaveScreeningResult(ctx context.Context, r *model.ScreeningResult) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

// staticSource serves fixed snapshots keyed by company ID.
type staticSource map[string]model.Snapshot

func (s staticSource) CurrentParameterValues(_ context.Context, companyID string, _ *time.Time) (model.Snapshot, error) {
	return s[companyID], nil
}

func num(name string, v float64) model.CurrentValue {
	raw, _ := json.Marshal(v)
	return model.CurrentValue{Parameter: name, DataType: model.DataTypeNumber, Value: raw}
}

func boolean(name string, v bool) model.CurrentValue {
	raw, _ := json.Marshal(v)
	return model.CurrentValue{Parameter: name, DataType: model.DataTypeBoolean, Value: raw}
}

func rawValue(name string, dt model.DataType, raw string) model.CurrentValue {
	return model.CurrentValue{Parameter: name, DataType: dt, Value: json.RawMessage(raw)}
}

func snapshot(values ...model.CurrentValue) model.Snapshot {
	s := make(model.Snapshot, len(values))
	for _, v := range values {
		s[model.NormalizeName(v.Parameter)] = v
	}
	return s
}

func rule(id, text string, sev model.Severity) model.Rule {
	c, ok := exprMust(text)
	if !ok {
		panic("bad test expression: " + text)
	}
	return model.Rule{ID: id, Name: id, Expression: c, Severity: sev}
}

// scenarioRules is the three-rule carbon / diversity / policy set.
func scenarioRules() []model.Rule {
	return []model.Rule{
		rule("carbon", "carbon_emissions < 500", model.SeverityExclude),
		rule("diversity", "board_diversity_pct >= 30", model.SeverityExclude),
		rule("policy", "has_environmental_policy == true", model.SeverityWarn),
	}
}

func laggard() model.Snapshot {
	return snapshot(
		num("CARBON_EMISSIONS", 5000),
		num("BOARD_DIVERSITY_PCT", 15),
		boolean("HAS_ENVIRONMENTAL_POLICY", false),
	)
}

func leader() model.Snapshot {
	return snapshot(
		num("CARBON_EMISSIONS", 120),
		num("BOARD_DIVERSITY_PCT", 42),
		boolean("HAS_ENVIRONMENTAL_POLICY", true),
	)
}

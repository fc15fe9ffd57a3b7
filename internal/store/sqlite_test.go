package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-screen/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSQLite(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func date(s string) time.Time {
	t, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	carbon, diversity, policy model.Parameter
	acme, bright              model.Company
}

func seed(t *testing.T, s Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture

	mk := func(name string, dt model.DataType) model.Parameter {
		p, err := s.CreateParameter(ctx, model.Parameter{Name: name, DataType: dt})
		require.NoError(t, err)
		return *p
	}
	f.carbon = mk("carbon_emissions", model.DataTypeNumber)
	f.diversity = mk("BOARD_DIVERSITY_PCT", model.DataTypeNumber)
	f.policy = mk("has_environmental_policy", model.DataTypeBoolean)

	acme, err := s.CreateCompany(ctx, model.Company{Name: "Acme Industrial", Ticker: "acm", Sector: "Industrials", Region: "NA"})
	require.NoError(t, err)
	bright, err := s.CreateCompany(ctx, model.Company{Name: "Bright Energy", Ticker: "BRT", Sector: "Energy", Region: "EU"})
	require.NoError(t, err)
	f.acme, f.bright = *acme, *bright
	return f
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))
	v, err := s.MigrationVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestSQLiteStore_Parameters(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	f := seed(t, s)

	assert.Equal(t, "CARBON_EMISSIONS", f.carbon.Name)
	assert.NotEmpty(t, f.carbon.ID)

	params, err := s.ListParameters(ctx)
	require.NoError(t, err)
	require.Len(t, params, 3)
	assert.Equal(t, "BOARD_DIVERSITY_PCT", params[0].Name)
	assert.Equal(t, model.DataTypeBoolean, params[2].DataType)

	_, err = s.CreateParameter(ctx, model.Parameter{Name: "Carbon_Emissions", DataType: model.DataTypeNumber})
	assert.Error(t, err, "names are unique after normalization")

	_, err = s.CreateParameter(ctx, model.Parameter{Name: "water", DataType: "percent"})
	assert.Error(t, err)
}

func TestSQLiteStore_ListCompanies(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	f := seed(t, s)

	all, err := s.ListCompanies(ctx, CompanyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme Industrial", all[0].Name)
	assert.Equal(t, "ACM", all[0].Ticker)

	energy, err := s.ListCompanies(ctx, CompanyFilter{Sector: "energy"})
	require.NoError(t, err)
	require.Len(t, energy, 1)
	assert.Equal(t, f.bright.ID, energy[0].ID)

	byID, err := s.ListCompanies(ctx, CompanyFilter{IDs: []string{f.acme.ID, "missing"}})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, f.acme.ID, byID[0].ID)

	none, err := s.ListCompanies(ctx, CompanyFilter{Sector: "Energy", Region: "NA"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteStore_CurrentParameterValues(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	f := seed(t, s)

	n, err := s.UpsertParameterValues(ctx, []model.ParameterValue{
		{CompanyID: f.acme.ID, ParameterID: f.carbon.ID, AsOfDate: date("2023-01-01"), Value: json.RawMessage(`900`), Source: "cdp"},
		{CompanyID: f.acme.ID, ParameterID: f.carbon.ID, AsOfDate: date("2024-01-01"), Value: json.RawMessage(`480`), Source: "cdp"},
		{CompanyID: f.acme.ID, ParameterID: f.diversity.ID, AsOfDate: date("2024-06-01"), Value: json.RawMessage(`35`)},
		{CompanyID: f.bright.ID, ParameterID: f.policy.ID, AsOfDate: date("2024-02-01"), Value: json.RawMessage(`true`)},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	latest, err := s.CurrentParameterValues(ctx, f.acme.ID, nil)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.JSONEq(t, `480`, string(latest["CARBON_EMISSIONS"].Value))
	assert.Equal(t, date("2024-01-01"), latest["CARBON_EMISSIONS"].AsOfDate)
	assert.Equal(t, "cdp", latest["CARBON_EMISSIONS"].Source)
	assert.Equal(t, model.DataTypeNumber, latest["BOARD_DIVERSITY_PCT"].DataType)

	cutoff := date("2023-12-31")
	past, err := s.CurrentParameterValues(ctx, f.acme.ID, &cutoff)
	require.NoError(t, err)
	require.Len(t, past, 1)
	assert.JSONEq(t, `900`, string(past["CARBON_EMISSIONS"].Value))

	exact := time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC)
	onDay, err := s.CurrentParameterValues(ctx, f.acme.ID, &exact)
	require.NoError(t, err)
	assert.JSONEq(t, `480`, string(onDay["CARBON_EMISSIONS"].Value))

	empty, err := s.CurrentParameterValues(ctx, "no-such-company", nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStore_UpsertReplacesValue(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	f := seed(t, s)

	v := model.ParameterValue{CompanyID: f.acme.ID, ParameterID: f.carbon.ID, AsOfDate: date("2024-01-01"), Value: json.RawMessage(`480`)}
	_, err := s.UpsertParameterValues(ctx, []model.ParameterValue{v})
	require.NoError(t, err)

	v.Value = json.RawMessage(`455.5`)
	_, err = s.UpsertParameterValues(ctx, []model.ParameterValue{v})
	require.NoError(t, err)

	snap, err := s.CurrentParameterValues(ctx, f.acme.ID, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `455.5`, string(snap["CARBON_EMISSIONS"].Value))
}

func TestSQLiteStore_UpsertRejectsInvalidJSON(t *testing.T) {
	s := newTestSQLiteStore(t)
	f := seed(t, s)

	_, err := s.UpsertParameterValues(context.Background(), []model.ParameterValue{
		{CompanyID: f.acme.ID, ParameterID: f.carbon.ID, AsOfDate: date("2024-01-01"), Value: json.RawMessage(`not json`)},
	})
	assert.Error(t, err)
}

func TestSQLiteStore_Portfolio(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	f := seed(t, s)
	client := "client-7"

	created, err := s.CreatePortfolio(ctx, model.Portfolio{
		Name:     "Growth",
		ClientID: &client,
		Holdings: []model.Holding{
			{CompanyID: f.bright.ID, Weight: 70},
			{CompanyID: f.acme.ID, Weight: 50},
		},
	})
	require.NoError(t, err)

	got, err := s.GetPortfolio(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Growth", got.Name)
	require.NotNil(t, got.ClientID)
	assert.Equal(t, client, *got.ClientID)
	require.Len(t, got.Holdings, 2)
	assert.Equal(t, f.bright.ID, got.Holdings[0].CompanyID)
	require.NotNil(t, got.Holdings[0].Company)
	assert.Equal(t, "Bright Energy", got.Holdings[0].Company.Name)
	assert.Equal(t, 50.0, got.Holdings[1].Weight)

	got.Holdings[0].Weight = 58.33
	got.Holdings[1].Weight = 41.67
	require.NoError(t, s.UpdateHoldingWeights(ctx, created.ID, got.Holdings))

	again, err := s.GetPortfolio(ctx, created.ID)
	require.NoError(t, err)
	assert.InDelta(t, 58.33, again.Holdings[0].Weight, 1e-9)
	assert.InDelta(t, 41.67, again.Holdings[1].Weight, 1e-9)

	err = s.UpdateHoldingWeights(ctx, created.ID, []model.Holding{{CompanyID: "nobody", Weight: 1}})
	assert.True(t, eris.Is(err, ErrNotFound))

	_, err = s.GetPortfolio(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteStore_PortfolioRejectsUnknownCompany(t *testing.T) {
	s := newTestSQLiteStore(t)

	_, err := s.CreatePortfolio(context.Background(), model.Portfolio{
		Name:     "Ghost",
		Holdings: []model.Holding{{CompanyID: "missing", Weight: 100}},
	})
	assert.Error(t, err)
}

func TestSQLiteStore_CriteriaSet(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	seed(t, s)
	client := "client-7"

	created, err := s.CreateCriteriaSet(ctx, model.CriteriaSet{
		Name:          "Climate Core",
		Version:       "2024.1",
		EffectiveDate: date("2024-01-01"),
		Rules: []model.Rule{
			{Name: "carbon", Expression: model.NewComparison("carbon_emissions", model.OpLt, model.Number(500)), FailureMessage: "too much carbon: {actual}"},
			{Name: "diversity", Expression: model.NewComparison("BOARD_DIVERSITY_PCT", model.OpGte, model.Number(30))},
			{Name: "policy", Expression: model.NewComparison("HAS_ENVIRONMENTAL_POLICY", model.OpEq, model.Bool(true)), Severity: model.SeverityWarn},
		},
	})
	require.NoError(t, err)
	_, err = s.CreateCriteriaSet(ctx, model.CriteriaSet{Name: "Client Overlay", Version: "1", ClientID: &client})
	require.NoError(t, err)

	got, err := s.GetCriteriaSet(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Climate Core", got.Name)
	assert.Equal(t, date("2024-01-01"), got.EffectiveDate)
	assert.Nil(t, got.ClientID)
	require.Len(t, got.Rules, 3)
	assert.Equal(t, []string{"carbon", "diversity", "policy"}, []string{got.Rules[0].Name, got.Rules[1].Name, got.Rules[2].Name})
	assert.Equal(t, "CARBON_EMISSIONS", got.Rules[0].Expression.Parameter)
	assert.Equal(t, model.Number(500), got.Rules[0].Expression.Value)
	assert.Equal(t, "too much carbon: {actual}", got.Rules[0].FailureMessage)
	assert.Equal(t, model.SeverityWarn, got.Rules[2].Severity)
	assert.Equal(t, model.Bool(true), got.Rules[2].Expression.Value)

	global, err := s.ListCriteriaSets(ctx, CriteriaSetFilter{})
	require.NoError(t, err)
	require.Len(t, global, 1)

	forClient, err := s.ListCriteriaSets(ctx, CriteriaSetFilter{ClientID: client})
	require.NoError(t, err)
	assert.Len(t, forClient, 2)

	other, err := s.ListCriteriaSets(ctx, CriteriaSetFilter{ClientID: "client-8"})
	require.NoError(t, err)
	assert.Len(t, other, 1)

	_, err = s.GetCriteriaSet(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func sampleResult(f fixture, portfolioID *string) *model.ScreeningResult {
	w1, w2 := 60.0, 40.0
	asOf := date("2024-06-30")
	return &model.ScreeningResult{
		ScreenedAt:  time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		AsOfDate:    &asOf,
		CriteriaSet: model.CriteriaSetRef{ID: "cs1", Name: "Climate Core", Version: "2024.1"},
		PortfolioID: portfolioID,
		Summary:     model.Summary{TotalHoldings: 2, Passed: 1, Failed: 1, PassRate: 50},
		Results: []model.CompanyScreeningResult{
			{
				Company: f.acme,
				Passed:  false,
				Weight:  &w1,
				RuleResults: []model.RuleResult{{
					RuleID: "r1", RuleName: "carbon", Outcome: model.OutcomeFailed,
					FailureReason: "CARBON_EMISSIONS < 500 failed, actual: 900", Actual: &model.Literal{Kind: model.LiteralNumber, Num: 900},
				}},
			},
			{
				Company:     f.bright,
				Passed:      true,
				Weight:      &w2,
				RuleResults: []model.RuleResult{{RuleID: "r1", RuleName: "carbon", Passed: true, Outcome: model.OutcomePassed}},
			},
		},
		Portfolio: &model.PortfolioStats{TotalWeight: 100, ExcludedWeight: 60, PassedWeight: 40, WeightsBalanced: true},
		Warnings:  []model.Warning{{Code: model.WarnUnknownCompany, Message: "company x not found; skipped"}},
	}
}

func TestSQLiteStore_ScreeningResults(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()
	f := seed(t, s)
	pid := "p1"

	in := sampleResult(f, &pid)
	id, err := s.SaveScreeningResult(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, in.ID, id)

	got, err := s.GetScreeningResult(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, in.ScreenedAt.Unix(), got.ScreenedAt.Unix())
	got.ScreenedAt = in.ScreenedAt
	assert.Equal(t, in, got)

	adhoc := sampleResult(f, nil)
	adhoc.Portfolio = nil
	adhoc.Warnings = nil
	adhoc.ScreenedAt = adhoc.ScreenedAt.Add(time.Hour)
	_, err = s.SaveScreeningResult(ctx, adhoc)
	require.NoError(t, err)

	list, err := s.ListScreeningResults(ctx, ResultFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, adhoc.ID, list[0].ID, "newest first")

	byPortfolio, err := s.ListScreeningResults(ctx, ResultFilter{PortfolioID: pid})
	require.NoError(t, err)
	require.Len(t, byPortfolio, 1)
	assert.Equal(t, id, byPortfolio[0].ID)
	assert.Equal(t, 50, byPortfolio[0].Summary.PassRate)

	_, err = s.SaveScreeningResult(ctx, in)
	assert.Error(t, err, "results are immutable once saved")

	require.NoError(t, s.DeleteScreeningResult(ctx, id))
	_, err = s.GetScreeningResult(ctx, id)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.True(t, eris.Is(s.DeleteScreeningResult(ctx, id), ErrNotFound))
}

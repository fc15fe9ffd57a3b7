package screen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-screen/internal/model"
)

func fixedAssembler() *Assembler {
	a := NewAssembler(0.01)
	a.now = func() time.Time { return time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC) }
	a.newID = func() string { return "result-1" }
	return a
}

func testCriteriaSet() *model.CriteriaSet {
	return &model.CriteriaSet{ID: "cs1", Name: "Climate Core", Version: "2024.1", Rules: scenarioRules()}
}

func TestAssemble_Companies(t *testing.T) {
	eval := EvaluateSnapshots(scenarioRules(), []model.Company{acme, bright}, []model.Snapshot{laggard(), leader()})
	warn := model.Warning{Code: model.WarnUnknownCompany, Message: "company zz not found; skipped"}

	res, err := fixedAssembler().Assemble(eval, AssembleInput{CriteriaSet: testCriteriaSet(), Warnings: []model.Warning{warn}})
	require.NoError(t, err)

	assert.Equal(t, "result-1", res.ID)
	assert.Equal(t, time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC), res.ScreenedAt)
	assert.Equal(t, model.CriteriaSetRef{ID: "cs1", Name: "Climate Core", Version: "2024.1"}, res.CriteriaSet)
	assert.Nil(t, res.PortfolioID)
	assert.Nil(t, res.Portfolio)
	assert.Equal(t, []model.Warning{warn}, res.Warnings)
	assert.Nil(t, res.Results[0].Weight)
	assert.Equal(t, []string{"c1"}, res.FailedCompanyIDs())
}

func TestAssemble_PortfolioStats(t *testing.T) {
	pf := &model.Portfolio{
		ID:   "p1",
		Name: "Growth",
		Holdings: []model.Holding{
			{CompanyID: "c1", Company: &acme, Weight: 25},
			{CompanyID: "c2", Company: &bright, Weight: 75},
		},
	}
	eval := EvaluateSnapshots(scenarioRules(), pf.Companies(), []model.Snapshot{laggard(), leader()})

	res, err := fixedAssembler().Assemble(eval, AssembleInput{CriteriaSet: testCriteriaSet(), Portfolio: pf})
	require.NoError(t, err)

	require.NotNil(t, res.PortfolioID)
	assert.Equal(t, "p1", *res.PortfolioID)
	require.NotNil(t, res.Portfolio)
	assert.InDelta(t, 100, res.Portfolio.TotalWeight, 1e-9)
	assert.InDelta(t, 25, res.Portfolio.ExcludedWeight, 1e-9)
	assert.InDelta(t, 75, res.Portfolio.PassedWeight, 1e-9)
	assert.True(t, res.Portfolio.WeightsBalanced)
	assert.Empty(t, res.Warnings)

	require.NotNil(t, res.Results[0].Weight)
	assert.Equal(t, 25.0, *res.Results[0].Weight)
	assert.Equal(t, 75.0, *res.Results[1].Weight)
}

func TestAssemble_UnbalancedWeightsWarns(t *testing.T) {
	pf := &model.Portfolio{
		ID: "p1",
		Holdings: []model.Holding{
			{CompanyID: "c1", Weight: 40},
			{CompanyID: "c2", Weight: 40},
			{CompanyID: "c3", Weight: 40},
		},
	}
	eval := EvaluateSnapshots(nil, pf.Companies(), nil)

	res, err := fixedAssembler().Assemble(eval, AssembleInput{CriteriaSet: testCriteriaSet(), Portfolio: pf})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, model.WarnWeightsUnbalanced, res.Warnings[0].Code)
	assert.Contains(t, res.Warnings[0].Message, "120.00%")
	assert.False(t, res.Portfolio.WeightsBalanced)
	assert.Equal(t, 100, res.Summary.PassRate)
}

func TestAssemble_RequiresInputs(t *testing.T) {
	a := fixedAssembler()

	_, err := a.Assemble(nil, AssembleInput{CriteriaSet: testCriteriaSet()})
	assert.Error(t, err)

	_, err = a.Assemble(&Evaluation{}, AssembleInput{})
	assert.Error(t, err)
}

func TestNewAssembler_DefaultTolerance(t *testing.T) {
	assert.Equal(t, 0.01, NewAssembler(0).tolerance)
	assert.Equal(t, 0.5, NewAssembler(0.5).tolerance)
	assert.NotEmpty(t, NewAssembler(0).newID())
}

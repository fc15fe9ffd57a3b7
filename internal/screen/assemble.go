package screen

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/portfolio"
)

// AssembleInput carries the context an Evaluation is assembled with.
// Portfolio is nil for ad-hoc company screenings.
type AssembleInput struct {
	CriteriaSet *model.CriteriaSet
	Portfolio   *model.Portfolio
	Warnings    []model.Warning
}

// Assembler turns an Evaluation into a ScreeningResult.
type Assembler struct {
	tolerance float64
	now       func() time.Time
	newID     func() string
}

// NewAssembler returns an Assembler flagging portfolios whose weights are more
// than tolerance away from 100. A non-positive tolerance uses
// portfolio.DefaultTolerance.
func NewAssembler(tolerance float64) *Assembler {
	if tolerance <= 0 {
		tolerance = portfolio.DefaultTolerance
	}
	return &Assembler{
		tolerance: tolerance,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// Assemble stamps the result identity and computes portfolio statistics.
func (a *Assembler) Assemble(eval *Evaluation, in AssembleInput) (*model.ScreeningResult, error) {
	if eval == nil {
		return nil, eris.New("screen: assemble: nil evaluation")
	}
	if in.CriteriaSet == nil {
		return nil, eris.New("screen: assemble: criteria set is required")
	}

	res := &model.ScreeningResult{
		ID:          a.newID(),
		ScreenedAt:  a.now(),
		AsOfDate:    eval.AsOfDate,
		CriteriaSet: in.CriteriaSet.Ref(),
		Summary:     eval.Summary,
		Results:     eval.Results,
	}
	res.Warnings = append(res.Warnings, in.Warnings...)

	if p := in.Portfolio; p != nil {
		id := p.ID
		res.PortfolioID = &id

		weights := make(map[string]float64, len(p.Holdings))
		for _, h := range p.Holdings {
			weights[h.CompanyID] = h.Weight
		}
		for i := range res.Results {
			if w, ok := weights[res.Results[i].Company.ID]; ok {
				res.Results[i].Weight = &w
			}
		}

		failed := make(map[string]bool)
		for _, id := range res.FailedCompanyIDs() {
			failed[id] = true
		}
		stats := portfolio.Stats(p.Holdings, failed, a.tolerance)
		res.Portfolio = &stats
		if w := portfolio.CheckWeights(p.Holdings, a.tolerance); w != nil {
			res.Warnings = append(res.Warnings, *w)
		}
	}
	return res, nil
}

// Package portfolio computes holding-weight statistics and rescales weights.
package portfolio

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/model"
)

// FullWeight is the total all holding weights should add up to.
const FullWeight = 100.0

// DefaultTolerance is the allowed distance from FullWeight before weights are
// reported as unbalanced.
const DefaultTolerance = 0.01

// TotalWeight sums holding weights.
func TotalWeight(holdings []model.Holding) float64 {
	var sum float64
	for _, h := range holdings {
		sum += h.Weight
	}
	return sum
}

// Balanced reports whether total is within tolerance of FullWeight.
func Balanced(total, tolerance float64) bool {
	return math.Abs(total-FullWeight) <= tolerance
}

// CheckWeights returns a warning when holdings do not sum to 100%. It is a
// data-quality signal, not an error.
func CheckWeights(holdings []model.Holding, tolerance float64) *model.Warning {
	if len(holdings) == 0 {
		return nil
	}
	total := TotalWeight(holdings)
	if Balanced(total, tolerance) {
		return nil
	}
	return &model.Warning{
		Code:    model.WarnWeightsUnbalanced,
		Message: fmt.Sprintf("holding weights sum to %.2f%%, not 100%%; normalize weights to rescale them", total),
	}
}

// Stats computes total, excluded and passed weight. failed holds the IDs of
// companies that did not pass screening.
func Stats(holdings []model.Holding, failed map[string]bool, tolerance float64) model.PortfolioStats {
	var st model.PortfolioStats
	for _, h := range holdings {
		st.TotalWeight += h.Weight
		if failed[h.CompanyID] {
			st.ExcludedWeight += h.Weight
		} else {
			st.PassedWeight += h.Weight
		}
	}
	st.WeightsBalanced = len(holdings) == 0 || Balanced(st.TotalWeight, tolerance)
	return st
}

// NormalizeReport describes a weight normalization.
type NormalizeReport struct {
	Before  float64
	After   float64
	Changed bool
	Message string
}

// Normalize rescales holding weights proportionally so they sum to 100. The
// input slice is not modified. Negative weights are rejected, and so is a
// zero total because it has no proportions to preserve.
func Normalize(holdings []model.Holding) ([]model.Holding, NormalizeReport, error) {
	if len(holdings) == 0 {
		return nil, NormalizeReport{Message: "portfolio has no holdings to normalize"}, nil
	}
	for _, h := range holdings {
		if h.Weight < 0 || math.IsNaN(h.Weight) || math.IsInf(h.Weight, 0) {
			return nil, NormalizeReport{}, eris.Errorf("portfolio: holding %s has invalid weight %v", h.CompanyID, h.Weight)
		}
	}
	total := TotalWeight(holdings)
	if total == 0 {
		return nil, NormalizeReport{}, eris.New("portfolio: cannot normalize weights that sum to zero")
	}

	out := make([]model.Holding, len(holdings))
	factor := FullWeight / total
	for i, h := range holdings {
		h.Weight *= factor
		out[i] = h
	}
	after := TotalWeight(out)
	rep := NormalizeReport{
		Before:  total,
		After:   after,
		Changed: total != FullWeight,
	}
	if rep.Changed {
		rep.Message = fmt.Sprintf("Weights normalized from %.2f%% to 100%% across %d holdings", total, len(out))
	} else {
		rep.Message = "Weights already sum to 100%"
	}
	return out, rep, nil
}

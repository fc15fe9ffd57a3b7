package screen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-screen/internal/expr"
	"github.com/sells-group/esg-screen/internal/model"
	"github.com/sells-group/esg-screen/internal/portfolio"
	"github.com/sells-group/esg-screen/internal/store"
)

// ErrInvalidRequest marks a screening request that cannot be run as given.
var ErrInvalidRequest = eris.New("invalid screening request")

// Repository is the subset of store.Store the service needs.
type Repository interface {
	ValueSource
	ListParameters(ctx context.Context) ([]model.Parameter, error)
	ListCompanies(ctx context.Context, filter store.CompanyFilter) ([]model.Company, error)
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)
	UpdateHoldingWeights(ctx context.Context, portfolioID string, holdings []model.Holding) error
	GetCriteriaSet(ctx context.Context, id string) (*model.CriteriaSet, error)
	CreateCriteriaSet(ctx context.Context, cs model.CriteriaSet) (*model.CriteriaSet, error)
	SaveScreeningResult(ctx context.Context, r *model.ScreeningResult) (string, error)
}

// Target selects what to screen. Exactly one mode is used: a portfolio, an
// explicit company list, or a sector/region filter.
type Target struct {
	PortfolioID string   `json:"portfolio_id,omitempty"`
	CompanyIDs  []string `json:"company_ids,omitempty"`
	Sector      string   `json:"sector,omitempty"`
	Region      string   `json:"region,omitempty"`
}

// Validate checks that exactly one selection mode is set.
func (t Target) Validate() error {
	modes := 0
	if t.PortfolioID != "" {
		modes++
	}
	if len(t.CompanyIDs) > 0 {
		modes++
	}
	if t.Sector != "" || t.Region != "" {
		modes++
	}
	switch modes {
	case 0:
		return eris.Wrap(ErrInvalidRequest, "screen: a portfolio, company ids or a sector/region filter is required")
	case 1:
		return nil
	default:
		return eris.Wrap(ErrInvalidRequest, "screen: portfolio, company ids and sector/region filter are mutually exclusive")
	}
}

func (t Target) describe() string {
	switch {
	case t.PortfolioID != "":
		return "portfolio " + t.PortfolioID
	case len(t.CompanyIDs) > 0:
		return fmt.Sprintf("%d companies", len(t.CompanyIDs))
	default:
		return fmt.Sprintf("companies (sector=%q region=%q)", t.Sector, t.Region)
	}
}

// Request is one screening run. AsOfDate nil screens against the latest
// available values.
type Request struct {
	CriteriaSetID string
	Target        Target
	AsOfDate      *time.Time
	Save          bool
}

// Service runs screenings end to end: load, evaluate, assemble, persist.
type Service struct {
	repo      Repository
	engine    *Engine
	assembler *Assembler
}

// NewService creates a Service.
func NewService(repo Repository, workers int, tolerance float64) *Service {
	return &Service{
		repo:      repo,
		engine:    NewEngine(repo, workers),
		assembler: NewAssembler(tolerance),
	}
}

// Screen runs req. On any failure nothing is persisted and a single wrapped
// error is returned.
func (s *Service) Screen(ctx context.Context, req Request) (*model.ScreeningResult, error) {
	log := zap.L().With(
		zap.String("criteria_set_id", req.CriteriaSetID),
		zap.String("target", req.Target.describe()),
	)

	res, err := s.screen(ctx, req)
	if err != nil {
		log.Error("screen: run failed", zap.Error(err))
		if req.Target.PortfolioID != "" {
			return nil, eris.Wrapf(err, "screen: failed to screen portfolio %s", req.Target.PortfolioID)
		}
		return nil, eris.Wrapf(err, "screen: failed to screen %s", req.Target.describe())
	}

	log.Info("screen: run complete",
		zap.String("result_id", res.ID),
		zap.Int("total", res.Summary.TotalHoldings),
		zap.Int("passed", res.Summary.Passed),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("warnings", len(res.Warnings)),
		zap.Bool("saved", req.Save),
	)
	return res, nil
}

func (s *Service) screen(ctx context.Context, req Request) (*model.ScreeningResult, error) {
	if strings.TrimSpace(req.CriteriaSetID) == "" {
		return nil, eris.Wrap(ErrInvalidRequest, "screen: criteria set id is required")
	}
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}

	cs, err := s.repo.GetCriteriaSet(ctx, req.CriteriaSetID)
	if err != nil {
		return nil, eris.Wrapf(err, "screen: load criteria set %s", req.CriteriaSetID)
	}

	var (
		pf        *model.Portfolio
		companies []model.Company
		warnings  []model.Warning
	)
	switch t := req.Target; {
	case t.PortfolioID != "":
		pf, err = s.repo.GetPortfolio(ctx, t.PortfolioID)
		if err != nil {
			return nil, eris.Wrapf(err, "screen: load portfolio %s", t.PortfolioID)
		}
		companies = pf.Companies()
	case len(t.CompanyIDs) > 0:
		companies, warnings, err = s.resolveCompanies(ctx, t.CompanyIDs)
		if err != nil {
			return nil, err
		}
	default:
		companies, err = s.repo.ListCompanies(ctx, store.CompanyFilter{Sector: t.Sector, Region: t.Region})
		if err != nil {
			return nil, eris.Wrap(err, "screen: list companies")
		}
	}

	eval, err := s.engine.Evaluate(ctx, cs.Rules, companies, req.AsOfDate)
	if err != nil {
		return nil, err
	}

	res, err := s.assembler.Assemble(eval, AssembleInput{
		CriteriaSet: cs,
		Portfolio:   pf,
		Warnings:    warnings,
	})
	if err != nil {
		return nil, err
	}

	if req.Save {
		id, err := s.repo.SaveScreeningResult(ctx, res)
		if err != nil {
			return nil, eris.Wrap(err, "screen: save result")
		}
		res.ID = id
	}
	return res, nil
}

// resolveCompanies loads companies in request order. Unknown IDs are skipped
// with a W1002 warning. Duplicate IDs are screened once.
func (s *Service) resolveCompanies(ctx context.Context, ids []string) ([]model.Company, []model.Warning, error) {
	found, err := s.repo.ListCompanies(ctx, store.CompanyFilter{IDs: ids})
	if err != nil {
		return nil, nil, eris.Wrap(err, "screen: list companies")
	}
	byID := make(map[string]model.Company, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}

	seen := make(map[string]bool, len(ids))
	companies := make([]model.Company, 0, len(ids))
	var warnings []model.Warning
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := byID[id]
		if !ok {
			warnings = append(warnings, model.Warning{
				Code:    model.WarnUnknownCompany,
				Message: fmt.Sprintf("company %s not found; skipped", id),
			})
			continue
		}
		companies = append(companies, c)
	}
	return companies, warnings, nil
}

// NormalizeWeights rescales a portfolio's holding weights to sum to 100 and
// persists them. It returns the updated portfolio and a status message.
func (s *Service) NormalizeWeights(ctx context.Context, portfolioID string) (*model.Portfolio, string, error) {
	pf, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, "", eris.Wrapf(err, "screen: load portfolio %s", portfolioID)
	}

	holdings, rep, err := portfolio.Normalize(pf.Holdings)
	if err != nil {
		return nil, "", eris.Wrapf(err, "screen: normalize portfolio %s", portfolioID)
	}
	if !rep.Changed {
		return pf, rep.Message, nil
	}

	if err := s.repo.UpdateHoldingWeights(ctx, portfolioID, holdings); err != nil {
		return nil, "", eris.Wrapf(err, "screen: save weights for portfolio %s", portfolioID)
	}
	pf.Holdings = holdings

	zap.L().Info("screen: weights normalized",
		zap.String("portfolio_id", portfolioID),
		zap.Float64("before", rep.Before),
		zap.Float64("after", rep.After),
	)
	return pf, rep.Message, nil
}

// CreateCriteriaSet validates every rule against the parameter catalog and
// stores the set. Nothing is written if any rule is invalid.
func (s *Service) CreateCriteriaSet(ctx context.Context, cs model.CriteriaSet) (*model.CriteriaSet, error) {
	if err := s.ValidateCriteriaSet(ctx, &cs); err != nil {
		return nil, err
	}
	created, err := s.repo.CreateCriteriaSet(ctx, cs)
	if err != nil {
		return nil, eris.Wrapf(err, "screen: create criteria set %s", cs.Name)
	}
	zap.L().Info("screen: criteria set created",
		zap.String("criteria_set_id", created.ID),
		zap.String("name", created.Name),
		zap.String("version", created.Version),
		zap.Int("rules", len(created.Rules)),
	)
	return created, nil
}

// ValidateCriteriaSet checks set metadata and every rule condition. Rule
// parameter names are normalized and positions assigned in list order.
func (s *Service) ValidateCriteriaSet(ctx context.Context, cs *model.CriteriaSet) error {
	if strings.TrimSpace(cs.Name) == "" {
		return &expr.ValidationError{Field: "name", Reason: "criteria set name is required"}
	}
	if strings.TrimSpace(cs.Version) == "" {
		return &expr.ValidationError{Field: "version", Reason: "criteria set version is required"}
	}

	params, err := s.repo.ListParameters(ctx)
	if err != nil {
		return eris.Wrap(err, "screen: list parameters")
	}
	catalog := expr.NewCatalog(params)

	for i := range cs.Rules {
		r := &cs.Rules[i]
		if strings.TrimSpace(r.Name) == "" {
			return &expr.ValidationError{Field: fmt.Sprintf("rules[%d].name", i), Reason: "rule name is required"}
		}
		if r.Expression.Type == "" {
			r.Expression.Type = model.ConditionTypeComparison
		}
		r.Expression.Parameter = model.NormalizeName(r.Expression.Parameter)
		if err := expr.Validate(r.Expression, catalog); err != nil {
			return eris.Wrapf(err, "screen: rule %q", r.Name)
		}
		r.Position = i
	}
	return nil
}

package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-screen/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("not found")

// CompanyFilter selects companies. Empty fields match everything.
type CompanyFilter struct {
	IDs    []string `json:"ids,omitempty"`
	Sector string   `json:"sector,omitempty"`
	Region string   `json:"region,omitempty"`
	Limit  int      `json:"limit,omitempty"`
}

// CriteriaSetFilter selects criteria sets. A non-empty ClientID returns the
// client's sets plus all global sets; an empty one returns only global sets
// unless All is set.
type CriteriaSetFilter struct {
	ClientID string `json:"client_id,omitempty"`
	All      bool   `json:"all,omitempty"`
}

// ResultFilter selects screening results.
type ResultFilter struct {
	CriteriaSetID string `json:"criteria_set_id,omitempty"`
	PortfolioID   string `json:"portfolio_id,omitempty"`
	Limit         int    `json:"limit,omitempty"`
	Offset        int    `json:"offset,omitempty"`
}

// ResultSummary is a screening result without per-company rows.
type ResultSummary struct {
	ID          string               `json:"id"`
	ScreenedAt  time.Time            `json:"screened_at"`
	AsOfDate    *time.Time           `json:"as_of_date,omitempty"`
	CriteriaSet model.CriteriaSetRef `json:"criteria_set"`
	PortfolioID *string              `json:"portfolio_id,omitempty"`
	Summary     model.Summary        `json:"summary"`
}

// Store defines the persistence interface for screening.
type Store interface {
	// Parameters
	CreateParameter(ctx context.Context, p model.Parameter) (*model.Parameter, error)
	ListParameters(ctx context.Context) ([]model.Parameter, error)

	// Companies
	CreateCompany(ctx context.Context, c model.Company) (*model.Company, error)
	ListCompanies(ctx context.Context, filter CompanyFilter) ([]model.Company, error)

	// Parameter values
	UpsertParameterValues(ctx context.Context, values []model.ParameterValue) (int, error)
	CurrentParameterValues(ctx context.Context, companyID string, asOf *time.Time) (model.Snapshot, error)

	// Portfolios
	CreatePortfolio(ctx context.Context, p model.Portfolio) (*model.Portfolio, error)
	GetPortfolio(ctx context.Context, id string) (*model.Portfolio, error)
	UpdateHoldingWeights(ctx context.Context, portfolioID string, holdings []model.Holding) error

	// Criteria sets
	CreateCriteriaSet(ctx context.Context, cs model.CriteriaSet) (*model.CriteriaSet, error)
	GetCriteriaSet(ctx context.Context, id string) (*model.CriteriaSet, error)
	ListCriteriaSets(ctx context.Context, filter CriteriaSetFilter) ([]model.CriteriaSet, error)

	// Screening results
	SaveScreeningResult(ctx context.Context, r *model.ScreeningResult) (string, error)
	GetScreeningResult(ctx context.Context, id string) (*model.ScreeningResult, error)
	ListScreeningResults(ctx context.Context, filter ResultFilter) ([]ResultSummary, error)
	DeleteScreeningResult(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

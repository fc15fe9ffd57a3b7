package model

import "time"

// Company is a screenable issuer.
type Company struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ticker string `json:"ticker,omitempty"`
	Sector string `json:"sector,omitempty"`
	Region string `json:"region,omitempty"`
}

// Portfolio is a named collection of weighted holdings.
type Portfolio struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ClientID  *string   `json:"client_id,omitempty"`
	Holdings  []Holding `json:"holdings"`
	CreatedAt time.Time `json:"created_at"`
}

// Holding associates a company with a portfolio at a weight in percent.
type Holding struct {
	ID          string   `json:"id"`
	PortfolioID string   `json:"portfolio_id"`
	CompanyID   string   `json:"company_id"`
	Company     *Company `json:"company,omitempty"`
	Weight      float64  `json:"weight"`
}

// Companies returns the holdings' companies in holding order. Holdings
// without a loaded company get a stub carrying only the ID.
func (p *Portfolio) Companies() []Company {
	out := make([]Company, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		if h.Company != nil {
			out = append(out, *h.Company)
			continue
		}
		out = append(out, Company{ID: h.CompanyID})
	}
	return out
}

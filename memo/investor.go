package memo

import "time"

// TicketSize is an investor's check-size range in base currency units.
type TicketSize struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg,omitempty"`
}

// InvestmentProfile describes what an investor looks for.
type InvestmentProfile struct {
	SectorFocus     []string   `json:"sector_focus"`
	StagePreference []string   `json:"stage_preference"`
	Ticket          TicketSize `json:"ticket_size"`
	Geography       []string   `json:"geography"`
	BusinessModel   []string   `json:"business_model,omitempty"`
}

// PortfolioMetrics holds investor-declared portfolio requirements.
type PortfolioMetrics struct {
	// NRRRequirement is the minimum net revenue retention, as a percent,
	// that the investor expects; 0 means no declared requirement.
	NRRRequirement float64 `json:"nrr_requirement,omitempty"`
}

// Contact is an investor's contact block.
type Contact struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// Investor is one catalog entry.
type Investor struct {
	ID              string            `json:"investor_id"`
	Name            string            `json:"name"`
	Firm            string            `json:"firm"`
	Contact         Contact           `json:"contact,omitempty"`
	Profile         InvestmentProfile `json:"investment_profile"`
	PastInvestments []string          `json:"past_investments,omitempty"`
	Thesis          string            `json:"thesis,omitempty"`
	Portfolio       PortfolioMetrics  `json:"portfolio_metrics,omitempty"`
	UploadedAt      time.Time         `json:"uploaded_at,omitempty"`
	LastUpdated     time.Time         `json:"last_updated,omitempty"`
}

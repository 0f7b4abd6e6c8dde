package memory

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"legalintel/internal/core"
)

// Fixture is the complete data set served by the memory backend.
type Fixture struct {
	Events     []core.Event                          `json:"events"`
	Loan       core.LoanDetails                      `json:"loanDetails"`
	Status     core.CaseStatus                       `json:"caseStatus"`
	Financials core.FinancialSeries                  `json:"financialData"`
	Analyses   map[core.Perspective]core.POVAnalysis `json:"analyses"`
}

// DefaultFixture returns the built-in ARIBIA case data.
func DefaultFixture() Fixture {
	updated := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return Fixture{
		Events: []core.Event{
			{ID: 1, Title: "ARIBIA LLC Formation", Date: core.NewDate(2022, 8, 1), Type: "formation", Color: core.ColorGreen,
				Description: "Operating Agreement executed", Source: "Illinois Secretary of State API"},
			{ID: 2, Title: "Initial Capital Contribution", Date: core.NewDate(2022, 9, 15), Type: "financial", Color: core.ColorAmber,
				Description: "Members contribute $120K initial capital", Source: "Bank transaction feed"},
			{ID: 3, Title: "Property Acquisition", Date: core.NewDate(2023, 2, 10), Type: "financial", Color: core.ColorBlue,
				Description: "Two properties acquired with member capital", Source: "County recorder"},
			{ID: 4, Title: "Member Loan Executed", Date: core.NewDate(2023, 6, 1), Type: "financial", Color: core.ColorPurple,
				Description: "$100K loan at 4.66% secured by two properties", Source: "Loan Servicing System"},
			{ID: 5, Title: "Member Withdrawal Dispute", Date: core.NewDate(2023, 11, 20), Type: "member", Color: core.ColorAmber,
				Description: "Former member contests capital accounts", Source: "Court case management system"},
			{ID: 6, Title: "Temporary Restraining Order", Date: core.NewDate(2024, 1, 4), Type: "member", Color: core.ColorRed,
				Description: "TRO entered against asset transfers", Source: "Court case management system"},
		},
		Loan: core.LoanDetails{
			Principal:    decimal.NewFromInt(100000),
			InterestRate: decimal.RequireFromString("4.66"),
			Status:       "Active - Under TRO",
			Source:       "Loan Servicing System",
			LastUpdated:  updated,
		},
		Status: core.CaseStatus{TRODays: 118, LegalStatus: "Active Litigation"},
		Financials: core.FinancialSeries{
			CapitalContributions: []core.SeriesPoint{
				{Date: "2022", Amount: 120000},
				{Date: "2023", Amount: 302000},
			},
			OutstandingObligations: []core.SeriesPoint{
				{Date: "2022", Amount: 0},
				{Date: "2023", Amount: 100000},
			},
		},
		Analyses: map[core.Perspective]core.POVAnalysis{
			core.PerspectiveAribia: {
				Analysis:      "Company records show separate funding and a fully secured loan.",
				StrengthScore: 95,
				Findings: []core.Finding{
					{Title: "Corporate Formalities", Score: 95},
					{Title: "Separate Funding", Score: 90},
					{Title: "Loan Security", Score: 100, Note: "$100K secured by two properties"},
					{Title: "Documentation", Score: 95},
				},
			},
			core.PerspectiveSharon: {
				Analysis:      "Lender position is protected by recorded security interests.",
				StrengthScore: 88,
			},
			core.PerspectiveLuisa: {
				Analysis:      "Claim rests on disputed capital account balances.",
				StrengthScore: 35,
			},
			core.PerspectiveLegal: {
				Analysis:      "The court is likely to weigh the operating agreement and loan documents.",
				StrengthScore: 70,
			},
			core.PerspectiveColombia: {
				Analysis:      "Cross-border enforcement depends on recognition of the US judgment.",
				StrengthScore: 55,
			},
		},
	}
}

// LoadFixture reads a JSON fixture from path. Sections missing from the file
// keep the built-in defaults.
func LoadFixture(path string) (Fixture, error) {
	fx := DefaultFixture()
	b, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var in struct {
		Events     []core.Event                          `json:"events"`
		Loan       *core.LoanDetails                     `json:"loanDetails"`
		Status     *core.CaseStatus                      `json:"caseStatus"`
		Financials *core.FinancialSeries                 `json:"financialData"`
		Analyses   map[core.Perspective]core.POVAnalysis `json:"analyses"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	if in.Events != nil {
		fx.Events = in.Events
	}
	if in.Loan != nil {
		fx.Loan = *in.Loan
	}
	if in.Status != nil {
		fx.Status = *in.Status
	}
	if in.Financials != nil {
		fx.Financials = *in.Financials
	}
	if in.Analyses != nil {
		fx.Analyses = in.Analyses
	}
	return fx, nil
}

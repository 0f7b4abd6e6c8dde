// Package core holds the case-intelligence domain model and the pure
// transformations the dashboard renders from it.
//
// This file covers the loan terms and the headline metric cards.
package core

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// LoanDetails describes the disputed loan as reported by the servicing system.
type LoanDetails struct {
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interestRate"` // percent, e.g. 4.66
	Status       string          `json:"status"`
	Source       string          `json:"source,omitempty"`
	LastUpdated  time.Time       `json:"lastUpdated"`
}

// PrincipalDisplay renders the principal in whole dollars with thousands
// separators ($100,000).
func (l LoanDetails) PrincipalDisplay() string {
	p := l.Principal.Round(0)
	if p.IsNegative() {
		return "-$" + humanize.Comma(p.Neg().IntPart())
	}
	return "$" + humanize.Comma(p.IntPart())
}

// RateDisplay renders the interest rate as a percentage (4.66%).
func (l LoanDetails) RateDisplay() string {
	return l.InterestRate.String() + "%"
}

// AnnualInterest returns principal * rate / 100, rounded to cents.
func (l LoanDetails) AnnualInterest() decimal.Decimal {
	return l.Principal.Mul(l.InterestRate).Div(decimal.NewFromInt(100)).Round(2)
}

// Metric is one headline card of the dashboard.
type Metric struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Tone  string `json:"tone"`
}

// CaseStatus carries the litigation figures that are not part of the loan record.
type CaseStatus struct {
	TRODays     int    `json:"troDays"`
	LegalStatus string `json:"legalStatus"`
}

// CoreMetrics builds the four headline cards in display order.
func CoreMetrics(loan LoanDetails, status CaseStatus) []Metric {
	return []Metric{
		{Title: "Loan Principal", Value: loan.PrincipalDisplay(), Tone: "green"},
		{Title: "Interest Rate", Value: loan.RateDisplay(), Tone: "blue"},
		{Title: "TRO Duration", Value: humanize.Comma(int64(status.TRODays)) + " Days", Tone: "red"},
		{Title: "Legal Status", Value: status.LegalStatus, Tone: "amber"},
	}
}

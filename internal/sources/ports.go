package sources

import (
	"context"
	"time"

	"legalintel/internal/core"
)

// TimelinePayload is the shape the timeline fetch boundary returns.
type TimelinePayload struct {
	Events []core.Event `json:"events"`
}

// FinancialPayload is core.FinancialSeries plus provenance, as served by the API.
type FinancialPayload struct {
	core.FinancialSeries
	Source      string    `json:"source,omitempty"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Ports for outbound adapters.
type (
	TimelineReader interface {
		ReadTimeline(ctx context.Context) (TimelinePayload, error)
	}

	LoanReader interface {
		ReadLoanDetails(ctx context.Context) (core.LoanDetails, error)
	}

	// AnalysisReader returns the analysis of the case from one perspective.
	AnalysisReader interface {
		ReadAnalysis(ctx context.Context, p core.Perspective) (core.POVAnalysis, error)
	}

	// FinancialReader returns the contribution and obligation series.
	FinancialReader interface {
		ReadFinancials(ctx context.Context) (FinancialPayload, error)
	}

	// CaseStatusReader returns litigation figures not held in the loan record.
	CaseStatusReader interface {
		ReadCaseStatus(ctx context.Context) (core.CaseStatus, error)
	}

	// EventWriter persists a timeline event and returns its ID.
	EventWriter interface {
		AppendEvent(ctx context.Context, e core.Event) (int64, error)
	}

	// Reader is the full read side a backend provides to the dashboard.
	Reader interface {
		TimelineReader
		LoanReader
		AnalysisReader
		FinancialReader
		CaseStatusReader
	}
)

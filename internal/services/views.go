package services

import (
	"legalintel/internal/core"
)

// TimelineView is the list of events the timeline shows for activeFilter.
// It recomputes on every call.
func TimelineView(events []core.Event, activeFilter string) []core.Event {
	return core.FilterEvents(events, activeFilter)
}

// ChartView pairs contributions (primary) with obligations (secondary) by
// position for the financial flow chart.
func ChartView(series core.FinancialSeries) []core.TimeSeriesPoint {
	return core.PairSeries(series.CapitalContributions, series.OutstandingObligations)
}

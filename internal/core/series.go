package core

import (
	"math"
	"strconv"
)

type (
	// SeriesPoint is one dated amount of a financial series.
	SeriesPoint struct {
		Date   string  `json:"date"`
		Amount float64 `json:"amount"`
	}

	// FinancialSeries holds the two sequences plotted by the financial chart.
	// The producer aligns them by index.
	FinancialSeries struct {
		CapitalContributions   []SeriesPoint `json:"capitalContributions"`
		OutstandingObligations []SeriesPoint `json:"outstandingObligations"`
	}

	// TimeSeriesPoint is a chart point built from index-aligned series entries.
	TimeSeriesPoint struct {
		Date            string  `json:"date"`
		PrimaryAmount   float64 `json:"primaryAmount"`
		SecondaryAmount float64 `json:"secondaryAmount"`
	}

	// ChartSummary holds the headline figures shown under the chart.
	ChartSummary struct {
		InitialCapital     float64 `json:"initialCapital"`
		TotalContributions float64 `json:"totalContributions"`
		ActiveLoan         float64 `json:"activeLoan"`
	}
)

// PairSeries zips primary and secondary by position. The result always has
// len(primary) points: a missing secondary entry counts as 0 and secondary
// entries past the end of primary are dropped. Dates are never matched.
func PairSeries(primary, secondary []SeriesPoint) []TimeSeriesPoint {
	out := make([]TimeSeriesPoint, len(primary))
	for i, p := range primary {
		var sec float64
		if i < len(secondary) {
			sec = finiteOrZero(secondary[i].Amount)
		}
		out[i] = TimeSeriesPoint{
			Date:            p.Date,
			PrimaryAmount:   finiteOrZero(p.Amount),
			SecondaryAmount: sec,
		}
	}
	return out
}

// FormatCurrencyCompact renders v in thousands as "$<v/1000>K" using the
// shortest decimal representation, without rounding (100500 -> "$100.5K").
// Negative values keep their sign ("$-5K"); NaN and infinities render as "$0K".
func FormatCurrencyCompact(v float64) string {
	v = finiteOrZero(v)
	k := v / 1000
	if k == 0 {
		k = 0 // drop negative zero
	}
	return "$" + strconv.FormatFloat(k, 'f', -1, 64) + "K"
}

// SummarizeChart returns the first contribution, the latest contribution and
// the latest obligation of the paired series.
func SummarizeChart(points []TimeSeriesPoint) ChartSummary {
	if len(points) == 0 {
		return ChartSummary{}
	}
	last := points[len(points)-1]
	return ChartSummary{
		InitialCapital:     points[0].PrimaryAmount,
		TotalContributions: last.PrimaryAmount,
		ActiveLoan:         last.SecondaryAmount,
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

package services

import (
	"math"
	"strconv"
	"strings"

	"legalintel/internal/core"
)

// Chart drawing area in SVG user units.
const (
	chartWidth    = 640.0
	chartHeight   = 280.0
	chartPadLeft  = 64.0
	chartPadTop   = 16.0
	chartPadBot   = 32.0
	chartPadRight = 16.0
	chartYTicks   = 4
)

// AxisTick is a labelled position on one chart axis.
type AxisTick struct {
	Label string  `json:"label"`
	Pos   float64 `json:"pos"`
}

// ChartModel is everything the dashboard needs to draw the financial chart.
type ChartModel struct {
	Points        []core.TimeSeriesPoint `json:"points"`
	Summary       core.ChartSummary      `json:"summary"`
	SummaryLabels SummaryLabels          `json:"summaryLabels"`
	Width         float64                `json:"width"`
	Height        float64                `json:"height"`
	PrimaryPath   string                 `json:"primaryPath"`
	SecondaryPath string                 `json:"secondaryPath"`
	XTicks        []AxisTick             `json:"xTicks"`
	YTicks        []AxisTick             `json:"yTicks"`
}

// SummaryLabels are the compact currency strings for core.ChartSummary.
type SummaryLabels struct {
	InitialCapital     string `json:"initialCapital"`
	TotalContributions string `json:"totalContributions"`
	ActiveLoan         string `json:"activeLoan"`
}

// Empty reports whether there is nothing to plot.
func (m ChartModel) Empty() bool {
	return len(m.Points) == 0
}

// BuildChart runs ChartView over series and lays the result out as SVG
// polylines with compact currency tick labels.
func BuildChart(series core.FinancialSeries) ChartModel {
	points := ChartView(series)
	summary := core.SummarizeChart(points)
	m := ChartModel{
		Points:  points,
		Summary: summary,
		SummaryLabels: SummaryLabels{
			InitialCapital:     core.FormatCurrencyCompact(summary.InitialCapital),
			TotalContributions: core.FormatCurrencyCompact(summary.TotalContributions),
			ActiveLoan:         core.FormatCurrencyCompact(summary.ActiveLoan),
		},
		Width:  chartWidth,
		Height: chartHeight,
		XTicks: []AxisTick{},
		YTicks: []AxisTick{},
	}
	if len(points) == 0 {
		return m
	}

	lo, hi := 0.0, 0.0
	for _, p := range points {
		lo = min(lo, p.PrimaryAmount, p.SecondaryAmount)
		hi = max(hi, p.PrimaryAmount, p.SecondaryAmount)
	}
	if hi == lo {
		hi = lo + 1
	}

	plotW := chartWidth - chartPadLeft - chartPadRight
	plotH := chartHeight - chartPadTop - chartPadBot
	x := func(i int) float64 {
		if len(points) == 1 {
			return chartPadLeft + plotW/2
		}
		return chartPadLeft + plotW*float64(i)/float64(len(points)-1)
	}
	y := func(v float64) float64 {
		return chartPadTop + plotH*(1-(v-lo)/(hi-lo))
	}

	var prim, sec strings.Builder
	for i, p := range points {
		sep := " "
		if i == 0 {
			sep = ""
		}
		prim.WriteString(sep + coord(x(i)) + "," + coord(y(p.PrimaryAmount)))
		sec.WriteString(sep + coord(x(i)) + "," + coord(y(p.SecondaryAmount)))
		m.XTicks = append(m.XTicks, AxisTick{Label: axisLabel(p.Date), Pos: round1(x(i))})
	}
	m.PrimaryPath = prim.String()
	m.SecondaryPath = sec.String()

	for i := 0; i <= chartYTicks; i++ {
		v := lo + (hi-lo)*float64(i)/chartYTicks
		m.YTicks = append(m.YTicks, AxisTick{Label: core.FormatCurrencyCompact(v), Pos: round1(y(v))})
	}
	return m
}

// axisLabel shortens ISO dates to "Jan 22"; anything else (e.g. a bare year)
// is shown as given.
func axisLabel(date string) string {
	if d, err := core.ParseDate(date); err == nil {
		return d.AxisLabel()
	}
	return date
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func coord(v float64) string {
	return strconv.FormatFloat(round1(v), 'f', -1, 64)
}

package google

import (
	"fmt"
	"strconv"
	"strings"

	"legalintel/internal/core"
)

// parseTimeline converts a values matrix (as returned by Sheets API) into
// events. The first row must be a header containing Title, Date and Type;
// ID, Description, Color and Source are optional. Rows without a title or
// with an unparseable date are skipped.
func parseTimeline(values [][]interface{}) ([]core.Event, error) {
	if len(values) == 0 {
		return []core.Event{}, nil
	}
	headers := toStrings(values[0])
	colID := indexOf(headers, "ID")
	colTitle := indexOf(headers, "Title")
	colDate := indexOf(headers, "Date")
	colDesc := indexOf(headers, "Description")
	colType := indexOf(headers, "Type")
	colColor := indexOf(headers, "Color")
	colSource := indexOf(headers, "Source")
	if colTitle == -1 || colDate == -1 || colType == -1 {
		missing := make([]string, 0, 3)
		if colTitle == -1 {
			missing = append(missing, "Title")
		}
		if colDate == -1 {
			missing = append(missing, "Date")
		}
		if colType == -1 {
			missing = append(missing, "Type")
		}
		return nil, fmt.Errorf("unexpected timeline header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	events := make([]core.Event, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		title := safeGet(row, colTitle)
		if title == "" {
			continue
		}
		date, err := core.ParseDate(safeGet(row, colDate))
		if err != nil {
			continue
		}
		id, err := strconv.ParseInt(safeGet(row, colID), 10, 64)
		if err != nil {
			id = int64(i) // sheet row position keeps IDs stable between reads
		}
		events = append(events, core.Event{
			ID:          id,
			Title:       title,
			Date:        date,
			Description: safeGet(row, colDesc),
			Type:        strings.ToLower(safeGet(row, colType)),
			Color:       core.ParseColor(safeGet(row, colColor)),
			Source:      safeGet(row, colSource),
		})
	}
	return events, nil
}

// parseFinancials reads a Date / Contribution / Obligation matrix into the
// two chart series. Both series get one entry per data row so they stay
// index-aligned; blank or invalid amounts become 0.
func parseFinancials(values [][]interface{}) (core.FinancialSeries, error) {
	out := core.FinancialSeries{
		CapitalContributions:   []core.SeriesPoint{},
		OutstandingObligations: []core.SeriesPoint{},
	}
	if len(values) == 0 {
		return out, nil
	}
	headers := toStrings(values[0])
	colDate := indexOf(headers, "Date")
	colContrib := indexOf(headers, "Contribution")
	colOblig := indexOf(headers, "Obligation")
	if colDate == -1 || colContrib == -1 {
		return out, fmt.Errorf("unexpected financials header: need Date and Contribution; got headers=%v", headers)
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		date := safeGet(row, colDate)
		if date == "" {
			continue
		}
		contrib, _ := parseAmount(safeGet(row, colContrib))
		oblig, _ := parseAmount(safeGet(row, colOblig))
		out.CapitalContributions = append(out.CapitalContributions, core.SeriesPoint{Date: date, Amount: contrib})
		out.OutstandingObligations = append(out.OutstandingObligations, core.SeriesPoint{Date: date, Amount: oblig})
	}
	return out, nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// parseAmount accepts "120000", "120,000", "$120,000.50" and "1.5".
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

package core

import (
	"slices"
	"strings"
)

// FilterAll is the category selector that disables timeline filtering.
const FilterAll = "all"

// Color is the semantic color tag of a timeline event.
type Color int

const (
	ColorDefault Color = iota
	ColorGreen
	ColorAmber
	ColorBlue
	ColorPurple
	ColorRed
)

// ParseColor maps a tag to its Color. Unknown tags map to ColorDefault.
func ParseColor(tag string) Color {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "green":
		return ColorGreen
	case "amber":
		return ColorAmber
	case "blue":
		return ColorBlue
	case "purple":
		return ColorPurple
	case "red":
		return ColorRed
	default:
		return ColorDefault
	}
}

// String returns the wire tag. ColorDefault has none.
func (c Color) String() string {
	switch c {
	case ColorGreen:
		return "green"
	case ColorAmber:
		return "amber"
	case ColorBlue:
		return "blue"
	case ColorPurple:
		return "purple"
	case ColorRed:
		return "red"
	default:
		return ""
	}
}

// Class returns the display token for the color.
func (c Color) Class() string {
	switch c {
	case ColorGreen:
		return "bg-green-500"
	case ColorAmber:
		return "bg-amber-500"
	case ColorBlue:
		return "bg-blue-500"
	case ColorPurple:
		return "bg-purple-500"
	case ColorRed:
		return "bg-red-500"
	default:
		return "bg-gray-500"
	}
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	*c = ParseColor(string(b))
	return nil
}

// ColorClass maps a color to its display token.
func ColorClass(c Color) string {
	return c.Class()
}

// TimelineFilter is one filter button of the timeline.
type TimelineFilter struct {
	ID    string
	Label string
}

// TimelineFilters lists the filters offered by the dashboard, "all" first.
func TimelineFilters() []TimelineFilter {
	return []TimelineFilter{
		{ID: FilterAll, Label: "All Events"},
		{ID: "financial", Label: "Financial"},
		{ID: "member", Label: "Legal"},
	}
}

// FilterEvents returns the events whose Type equals category, keeping their
// relative order. FilterAll returns every event. The input is never modified
// and the result is never nil.
func FilterEvents(events []Event, category string) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if category == FilterAll || e.Type == category {
			out = append(out, e)
		}
	}
	return out
}

// SortChronological returns a copy of events ordered by date, ties broken by ID.
func SortChronological(events []Event) []Event {
	out := slices.Clone(events)
	if out == nil {
		out = []Event{}
	}
	slices.SortStableFunc(out, func(a, b Event) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

package core

import (
	"errors"
	"strings"
	"time"
)

// Perspective identifies a point of view the case can be analysed from.
type Perspective string

const (
	PerspectiveAribia   Perspective = "aribia"
	PerspectiveSharon   Perspective = "sharon"
	PerspectiveLuisa    Perspective = "luisa"
	PerspectiveLegal    Perspective = "legal"
	PerspectiveColombia Perspective = "colombia"
)

var ErrUnknownPerspective = errors.New("unknown perspective")

// PerspectiveOption is a selectable perspective with its display labels.
type PerspectiveOption struct {
	ID          Perspective
	Label       string
	Description string
}

// Perspectives lists the selectable perspectives in display order.
func Perspectives() []PerspectiveOption {
	return []PerspectiveOption{
		{ID: PerspectiveAribia, Label: "ARIBIA LLC", Description: "Business Defense"},
		{ID: PerspectiveSharon, Label: "Sharon Jones", Description: "Lender & President"},
		{ID: PerspectiveLuisa, Label: "Luisa Arias", Description: "Former Member"},
		{ID: PerspectiveLegal, Label: "Legal Neutral", Description: "Court Analysis"},
		{ID: PerspectiveColombia, Label: "Colombian Legal", Description: "International"},
	}
}

// ParsePerspective normalizes s and checks it against the known perspectives.
func ParsePerspective(s string) (Perspective, error) {
	p := Perspective(strings.ToLower(strings.TrimSpace(s)))
	for _, o := range Perspectives() {
		if o.ID == p {
			return p, nil
		}
	}
	return "", ErrUnknownPerspective
}

// Label returns the display label, or the raw ID when unknown.
func (p Perspective) Label() string {
	for _, o := range Perspectives() {
		if o.ID == p {
			return o.Label
		}
	}
	return string(p)
}

// Finding is one scored argument of an analysis.
type Finding struct {
	Title string `json:"title"`
	Score int    `json:"score"`
	Note  string `json:"note,omitempty"`
}

// POVAnalysis is the analysis of the case from one perspective.
type POVAnalysis struct {
	Perspective   Perspective `json:"perspective"`
	Analysis      string      `json:"analysis"`
	StrengthScore int         `json:"strengthScore"`
	Findings      []Finding   `json:"findings,omitempty"`
	Source        string      `json:"source,omitempty"`
	LastUpdated   time.Time   `json:"lastUpdated"`
}

// Normalize clamps every score into 0..100.
func (a POVAnalysis) Normalize() POVAnalysis {
	a.StrengthScore = clampScore(a.StrengthScore)
	if len(a.Findings) > 0 {
		fs := make([]Finding, len(a.Findings))
		for i, f := range a.Findings {
			f.Score = clampScore(f.Score)
			fs[i] = f
		}
		a.Findings = fs
	}
	return a
}

func clampScore(v int) int {
	return min(max(v, 0), 100)
}

// Package export flattens standings into per-athlete rows and renders them
// as CSV, XLSX and a team chart.
package export

import (
	"strconv"
	"strings"

	"github.com/okian/barbell/internal/domain/model"
)

// Marks are the cell texts for judged attempt outcomes.
type Marks struct {
	Success string
	Fail    string
	Pass    string
	Pending string
}

// DefaultMarks returns the conventional result marks.
func DefaultMarks() Marks {
	return Marks{Success: "○", Fail: "×", Pass: "PASS"}
}

func (m Marks) of(s model.Status) string {
	switch s {
	case model.StatusSuccess:
		return m.Success
	case model.StatusFail:
		return m.Fail
	case model.StatusPass:
		return m.Pass
	default:
		return m.Pending
	}
}

// Exporter renders standings.
type Exporter struct {
	marks        Marks
	genderLabels map[string]string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithMarks overrides the attempt outcome marks. Empty fields keep the default.
func WithMarks(m Marks) Option {
	return func(e *Exporter) {
		if m.Success != "" {
			e.marks.Success = m.Success
		}
		if m.Fail != "" {
			e.marks.Fail = m.Fail
		}
		if m.Pass != "" {
			e.marks.Pass = m.Pass
		}
		e.marks.Pending = m.Pending
	}
}

// WithGenderLabels maps stored genders to display labels. Unmapped genders
// are shown as stored.
func WithGenderLabels(labels map[string]string) Option {
	return func(e *Exporter) {
		for k, v := range labels {
			e.genderLabels[k] = v
		}
	}
}

// New creates an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		marks:        DefaultMarks(),
		genderLabels: make(map[string]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Header is the first row of every tabular export.
var Header = []string{ //nolint:gochecknoglobals // fixed column layout
	"Class", "Gender", "Total Rank", "Name", "Team",
	"SN 1", "SN 1 Result", "SN 2", "SN 2 Result", "SN 3", "SN 3 Result", "SN Best", "SN Rank",
	"CJ 1", "CJ 1 Result", "CJ 2", "CJ 2 Result", "CJ 3", "CJ 3 Result", "CJ Best", "CJ Rank",
	"Total", "Points",
}

// Rows returns the header followed by one row per athlete, in standings order.
func (e *Exporter) Rows(s model.Standings) [][]string {
	rows := [][]string{Header}
	for _, wc := range s.WeightClasses {
		class := ClassLabel(wc.WeightClass)
		gender := wc.Gender
		if label, ok := e.genderLabels[gender]; ok {
			gender = label
		}
		for i := range wc.Athletes {
			rows = append(rows, e.row(class, gender, &wc.Athletes[i]))
		}
	}
	return rows
}

func (e *Exporter) row(class, gender string, r *model.AthleteResult) []string {
	row := make([]string, 0, len(Header))
	row = append(row, class, gender, itoa(r.TotalRank), r.Athlete.Name, r.Athlete.TeamName())
	row = e.appendDiscipline(row, r.SnatchAttempts, r.BestSnatch, r.SnatchRank)
	row = e.appendDiscipline(row, r.CJAttempts, r.BestCJ, r.CJRank)
	row = append(row, itoa(r.Total))
	if r.Points > 0 {
		row = append(row, strconv.Itoa(r.Points))
	} else {
		row = append(row, "")
	}
	return row
}

func (e *Exporter) appendDiscipline(row []string, slots [model.MaxAttempts]*model.Attempt, best, rank *int) []string {
	for _, a := range slots {
		if a == nil {
			row = append(row, "", "")
			continue
		}
		row = append(row, itoa(a.DeclaredWeight), e.marks.of(a.Status))
	}
	return append(row, itoa(best), itoa(rank))
}

// ClassLabel renders a weight class with its unit, e.g. "81" -> "81kg".
// Labels that already carry the unit, and the unknown label, are unchanged.
func ClassLabel(class string) string {
	if class == "" || strings.HasSuffix(strings.ToLower(class), "kg") {
		return class
	}
	if _, err := strconv.ParseFloat(strings.Trim(class, "+"), 64); err != nil {
		return class
	}
	return class + "kg"
}

func itoa(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

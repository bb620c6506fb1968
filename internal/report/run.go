package report

import (
	"errors"
	"time"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/timeutil"
)

// Trends holds the period-over-period comparisons surfaced
// alongside the aggregates.
type Trends struct {
	TotalHours    Trend `json:"total_hours"`
	HeadlineHours Trend `json:"headline_hours"`
	AverageRating Trend `json:"average_rating"`
}

// Report is the full output of one reporting run: aggregates for
// the current and previous windows, trends, and insights. It is
// plain serializable data ready for the API or an exporter.
type Report struct {
	Kind     timeutil.PeriodKind `json:"kind"`
	From     string              `json:"from"`
	To       string              `json:"to"` // exclusive
	PrevFrom string              `json:"prev_from"`
	PrevTo   string              `json:"prev_to"`

	Headline string `json:"headline,omitempty"`

	Current  Aggregate `json:"current"`
	Previous Aggregate `json:"previous"`
	Trends   Trends    `json:"trends"`

	Insights         []Insight `json:"insights"`
	InsufficientData bool      `json:"insufficient_data"`
}

// headlineGroupName is preferred for the headline metric when
// the catalog contains a group by this name.
const headlineGroupName = "Work"

// pickHeadlineGroup resolves the headline group: the group named
// "Work" when present, otherwise the group with the most hours
// in the current window. Returns (0, "") when no group has data.
func pickHeadlineGroup(
	logs []db.HourLog, w timeutil.Window, cat db.Catalog,
) (int64, string) {
	for _, g := range cat.Groups {
		if g.Name == headlineGroupName {
			return g.ID, g.Name
		}
	}
	pre := Build(logs, w, cat, 0)
	if len(pre.ByGroup) == 0 {
		return 0, ""
	}
	return pre.ByGroup[0].GroupID, pre.ByGroup[0].Name
}

// Run executes the whole pipeline for one period: aggregate both
// windows, compare them, and generate insights. curLogs and
// prevLogs are snapshots covering at least their respective
// windows; extra rows outside the window are filtered here.
func Run(
	curLogs, prevLogs []db.HourLog,
	ref time.Time, kind timeutil.PeriodKind, cat db.Catalog,
) Report {
	w := timeutil.WindowFor(ref, kind)
	pw := timeutil.Previous(w, kind)

	headlineID, headlineName := pickHeadlineGroup(curLogs, w, cat)

	cur := Build(curLogs, w, cat, headlineID)
	prev := Build(prevLogs, pw, cat, headlineID)

	r := Report{
		Kind:     kind,
		From:     timeutil.FormatDate(w.Start),
		To:       timeutil.FormatDate(w.End),
		PrevFrom: timeutil.FormatDate(pw.Start),
		PrevTo:   timeutil.FormatDate(pw.End),
		Headline: headlineName,
		Current:  cur,
		Previous: prev,
		Trends: Trends{
			TotalHours: Compare(
				float64(cur.TotalHours), float64(prev.TotalHours)),
			HeadlineHours: Compare(
				float64(cur.HeadlineHours),
				float64(prev.groupHoursFor(headlineID))),
			AverageRating: Compare(
				cur.AverageRating, prev.AverageRating),
		},
	}

	insights, err := Insights(cur, prev, Config{
		Kind:            kind,
		HeadlineGroupID: headlineID,
		HeadlineName:    headlineName,
		Thresholds:      ThresholdsFor(kind),
	})
	if errors.Is(err, ErrInsufficientData) {
		r.InsufficientData = true
		return r
	}
	r.Insights = insights
	return r
}

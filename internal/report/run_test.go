package report

import (
	"testing"
	"time"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/timeutil"
)

func juneRef() time.Time {
	return time.Date(2024, 6, 12, 0, 0, 0, 0, time.Local)
}

func TestRunWeekWindows(t *testing.T) {
	r := Run(nil, nil, juneRef(), timeutil.PeriodWeek, testCatalog())

	if r.Kind != timeutil.PeriodWeek {
		t.Errorf("Kind = %q", r.Kind)
	}
	if r.From != "2024-06-09" || r.To != "2024-06-16" {
		t.Errorf("window = %s..%s", r.From, r.To)
	}
	if r.PrevFrom != "2024-06-02" || r.PrevTo != "2024-06-09" {
		t.Errorf("prev window = %s..%s", r.PrevFrom, r.PrevTo)
	}
	if !r.InsufficientData {
		t.Error("empty window should flag InsufficientData")
	}
	if len(r.Insights) != 0 {
		t.Errorf("insights on empty window: %+v", r.Insights)
	}
}

func TestRunPicksWorkHeadline(t *testing.T) {
	logs := []db.HourLog{
		log("2024-06-10", 9, 20, 0), // Exercise: most hours
		log("2024-06-10", 10, 20, 0),
		log("2024-06-11", 9, 10, 0), // Deep Work
	}
	r := Run(logs, nil, juneRef(), timeutil.PeriodWeek, testCatalog())

	// "Work" wins over the larger Health group by name.
	if r.Headline != "Work" {
		t.Errorf("Headline = %q, want Work", r.Headline)
	}
	if r.Current.HeadlineHours != 1 {
		t.Errorf("HeadlineHours = %d, want 1", r.Current.HeadlineHours)
	}
}

func TestRunHeadlineFallsBackToLargestGroup(t *testing.T) {
	cat := testCatalog()
	cat.Groups[0].Name = "Career" // no group named Work
	logs := []db.HourLog{
		log("2024-06-10", 9, 20, 0),
		log("2024-06-10", 10, 20, 0),
		log("2024-06-11", 9, 10, 0),
	}
	r := Run(logs, nil, juneRef(), timeutil.PeriodWeek, cat)

	if r.Headline != "Health" {
		t.Errorf("Headline = %q, want Health", r.Headline)
	}
	if r.Current.HeadlineHours != 2 {
		t.Errorf("HeadlineHours = %d, want 2", r.Current.HeadlineHours)
	}
}

func TestRunHeadlineEmptyWithoutGroups(t *testing.T) {
	cat := db.Catalog{
		Categories: []db.Category{{ID: 30, Name: "Misc"}},
	}
	logs := []db.HourLog{log("2024-06-10", 9, 30, 0)}
	r := Run(logs, nil, juneRef(), timeutil.PeriodWeek, cat)

	if r.Headline != "" {
		t.Errorf("Headline = %q, want empty", r.Headline)
	}
}

func TestRunTrends(t *testing.T) {
	cur := []db.HourLog{
		log("2024-06-10", 9, 10, 8),
		log("2024-06-10", 10, 10, 8),
		log("2024-06-11", 9, 10, 0),
		log("2024-06-11", 10, 10, 0),
	}
	prev := []db.HourLog{
		log("2024-06-03", 9, 10, 4),
		log("2024-06-03", 10, 10, 0),
	}
	r := Run(cur, prev, juneRef(), timeutil.PeriodWeek, testCatalog())

	tot := r.Trends.TotalHours
	if !tot.HasPrior || tot.Delta != 2 {
		t.Errorf("TotalHours trend = %+v", tot)
	}
	if tot.PercentDelta == nil || *tot.PercentDelta != 100 {
		t.Errorf("TotalHours percent = %v", tot.PercentDelta)
	}

	head := r.Trends.HeadlineHours
	if !head.HasPrior || head.Delta != 2 {
		t.Errorf("HeadlineHours trend = %+v", head)
	}

	rating := r.Trends.AverageRating
	if !rating.HasPrior || rating.Delta != 4 {
		t.Errorf("AverageRating trend = %+v", rating)
	}
}

func TestRunFiltersStrayRows(t *testing.T) {
	// Snapshot rows outside either window must not leak into
	// the aggregates.
	cur := []db.HourLog{
		log("2024-06-10", 9, 10, 0),
		log("2024-07-01", 9, 10, 0),
	}
	prev := []db.HourLog{
		log("2024-06-03", 9, 10, 0),
		log("2024-05-01", 9, 10, 0),
	}
	r := Run(cur, prev, juneRef(), timeutil.PeriodWeek, testCatalog())

	if r.Current.TotalHours != 1 {
		t.Errorf("Current.TotalHours = %d, want 1", r.Current.TotalHours)
	}
	if r.Previous.TotalHours != 1 {
		t.Errorf("Previous.TotalHours = %d, want 1", r.Previous.TotalHours)
	}
}

func TestRunMonthNormalization(t *testing.T) {
	ref := time.Date(2024, 3, 31, 0, 0, 0, 0, time.Local)
	r := Run(nil, nil, ref, timeutil.PeriodMonth, testCatalog())

	if r.From != "2024-03-01" || r.To != "2024-04-01" {
		t.Errorf("window = %s..%s", r.From, r.To)
	}
	if r.PrevFrom != "2024-02-01" || r.PrevTo != "2024-03-01" {
		t.Errorf("prev window = %s..%s", r.PrevFrom, r.PrevTo)
	}
}

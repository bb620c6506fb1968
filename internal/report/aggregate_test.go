package report

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/timeutil"
)

func i64(n int64) *int64 { return &n }
func ip(n int) *int      { return &n }

// testCatalog: Work(1){Deep Work(10), Meetings(11)},
// Health(2){Exercise(20)}, ungrouped Misc(30).
func testCatalog() db.Catalog {
	return db.Catalog{
		Groups: []db.Group{
			{ID: 1, Name: "Work", Color: "#34C759", SortOrder: 0},
			{ID: 2, Name: "Health", Color: "#FF9500", SortOrder: 1},
		},
		Categories: []db.Category{
			{ID: 10, Name: "Deep Work", SortOrder: 0, GroupID: i64(1)},
			{ID: 11, Name: "Meetings", SortOrder: 1, GroupID: i64(1)},
			{ID: 20, Name: "Exercise", SortOrder: 0, GroupID: i64(2)},
			{ID: 30, Name: "Misc", SortOrder: 0},
		},
	}
}

func log(day string, hour int, catID int64, rating int) db.HourLog {
	l := db.HourLog{Day: day, Hour: hour}
	if catID != 0 {
		l.CategoryID = i64(catID)
	}
	if rating != 0 {
		l.Rating = ip(rating)
	}
	return l
}

func juneWeek() timeutil.Window {
	// Sunday 2024-06-09 .. Sunday 2024-06-16.
	return timeutil.WindowFor(
		time.Date(2024, 6, 12, 0, 0, 0, 0, time.Local),
		timeutil.PeriodWeek)
}

func TestBuildEmpty(t *testing.T) {
	agg := Build(nil, juneWeek(), testCatalog(), 1)
	if agg.TotalHours != 0 || agg.RatedHours != 0 {
		t.Errorf("empty aggregate has counts: %+v", agg)
	}
	if len(agg.ByCategory) != 0 || len(agg.ByGroup) != 0 {
		t.Errorf("empty aggregate has buckets: %+v", agg)
	}
	if agg.AverageRating != 0 {
		t.Errorf("AverageRating = %v, want 0", agg.AverageRating)
	}
}

func TestBuildFiltersWindow(t *testing.T) {
	logs := []db.HourLog{
		log("2024-06-08", 10, 10, 0), // day before the window
		log("2024-06-09", 0, 10, 0),  // first instant included
		log("2024-06-15", 23, 10, 0), // last day included
		log("2024-06-16", 0, 10, 0),  // window end excluded
	}
	agg := Build(logs, juneWeek(), testCatalog(), 1)
	if agg.TotalHours != 2 {
		t.Errorf("TotalHours = %d, want 2", agg.TotalHours)
	}
}

func TestBuildCategoryAndGroupBuckets(t *testing.T) {
	logs := []db.HourLog{
		log("2024-06-10", 9, 10, 0),
		log("2024-06-10", 10, 10, 0),
		log("2024-06-10", 11, 11, 0),
		log("2024-06-11", 7, 20, 0),
		log("2024-06-11", 8, 30, 0), // ungrouped category
		log("2024-06-11", 9, 0, 0),  // unlogged hour
	}
	agg := Build(logs, juneWeek(), testCatalog(), 1)

	if agg.TotalHours != 6 {
		t.Fatalf("TotalHours = %d, want 6", agg.TotalHours)
	}

	wantCats := []CategoryHours{
		{CategoryID: 10, Name: "Deep Work", Hours: 2},
		{CategoryID: 11, Name: "Meetings", Hours: 1},
		{CategoryID: 20, Name: "Exercise", Hours: 1},
		{CategoryID: 30, Name: "Misc", Hours: 1},
	}
	if diff := cmp.Diff(wantCats, agg.ByCategory); diff != "" {
		t.Errorf("ByCategory mismatch (-want +got):\n%s", diff)
	}

	// Misc is ungrouped, so group totals only cover Work+Health.
	wantGroups := []GroupHours{
		{GroupID: 1, Name: "Work", Color: "#34C759", Hours: 3},
		{GroupID: 2, Name: "Health", Color: "#FF9500", Hours: 1},
	}
	if diff := cmp.Diff(wantGroups, agg.ByGroup); diff != "" {
		t.Errorf("ByGroup mismatch (-want +got):\n%s", diff)
	}

	// Category totals never exceed the overall count.
	sum := 0
	for _, c := range agg.ByCategory {
		sum += c.Hours
	}
	if sum > agg.TotalHours {
		t.Errorf("category sum %d exceeds total %d", sum, agg.TotalHours)
	}

	if agg.HeadlineHours != 3 {
		t.Errorf("HeadlineHours = %d, want 3", agg.HeadlineHours)
	}
}

func TestBuildTieBreaksBySortOrder(t *testing.T) {
	// Equal hours: Deep Work (sort 0) must precede Meetings (sort 1)
	// regardless of input order.
	logs := []db.HourLog{
		log("2024-06-10", 9, 11, 0),
		log("2024-06-10", 10, 10, 0),
	}
	agg := Build(logs, juneWeek(), testCatalog(), 0)
	if agg.ByCategory[0].CategoryID != 10 || agg.ByCategory[1].CategoryID != 11 {
		t.Errorf("tie break wrong: %+v", agg.ByCategory)
	}
}

func TestBuildDanglingReferences(t *testing.T) {
	cat := testCatalog()
	// Category 99 doesn't exist; category 40's group 9 doesn't exist.
	cat.Categories = append(cat.Categories,
		db.Category{ID: 40, Name: "Orphan", GroupID: i64(9)})
	logs := []db.HourLog{
		log("2024-06-10", 9, 99, 0),
		log("2024-06-10", 10, 40, 0),
	}
	agg := Build(logs, juneWeek(), cat, 0)

	if agg.TotalHours != 2 {
		t.Errorf("TotalHours = %d, want 2", agg.TotalHours)
	}
	// The unknown category is treated as unlogged; the orphan
	// category counts but stays out of group totals.
	if agg.categoryHoursFor(40) != 1 || agg.categoryHoursFor(99) != 0 {
		t.Errorf("dangling handling wrong: %+v", agg.ByCategory)
	}
	if len(agg.ByGroup) != 0 {
		t.Errorf("orphan group counted: %+v", agg.ByGroup)
	}
}

func TestBuildWeekdayBuckets(t *testing.T) {
	logs := []db.HourLog{
		log("2024-06-09", 9, 0, 0),  // Sunday
		log("2024-06-10", 9, 0, 0),  // Monday
		log("2024-06-10", 10, 0, 0), // Monday
		log("2024-06-15", 9, 0, 0),  // Saturday
	}
	agg := Build(logs, juneWeek(), testCatalog(), 0)
	if agg.ByWeekday[1] != 1 || agg.ByWeekday[2] != 2 || agg.ByWeekday[7] != 1 {
		t.Errorf("ByWeekday = %v", agg.ByWeekday)
	}
}

func TestBuildHourOfDayRatings(t *testing.T) {
	logs := []db.HourLog{
		log("2024-06-10", 14, 0, 6),
		log("2024-06-11", 14, 0, 8),
		log("2024-06-12", 14, 0, 10),
		log("2024-06-12", 16, 0, 0), // unrated log at 16:00
	}
	agg := Build(logs, juneWeek(), testCatalog(), 0)

	if got := agg.ByHour[14]; got.Rated != 3 || got.Average != 8.0 {
		t.Errorf("ByHour[14] = %+v, want avg 8.0 over 3", got)
	}
	// Hour 15 has no logs at all: the sentinel, not a zero rating.
	if got := agg.ByHour[15]; got.Count != 0 || got.Rated != 0 {
		t.Errorf("ByHour[15] = %+v, want no data", got)
	}
	// Hour 16 has a log but no rating.
	if got := agg.ByHour[16]; got.Count != 1 || got.Rated != 0 {
		t.Errorf("ByHour[16] = %+v, want count 1, rated 0", got)
	}
	if agg.RatedHours != 3 || agg.AverageRating != 8.0 {
		t.Errorf("overall rating = %d/%v, want 3/8.0",
			agg.RatedHours, agg.AverageRating)
	}
}

func TestBuildToleratesOutOfRangeRating(t *testing.T) {
	logs := []db.HourLog{
		log("2024-06-10", 9, 0, 14), // beyond the 1-10 scale
		log("2024-06-10", 10, 0, 6),
	}
	agg := Build(logs, juneWeek(), testCatalog(), 0)
	if agg.AverageRating != 10.0 {
		t.Errorf("AverageRating = %v, want 10.0", agg.AverageRating)
	}
}

func TestBuildDeterministic(t *testing.T) {
	logs := []db.HourLog{
		log("2024-06-10", 9, 10, 7),
		log("2024-06-10", 10, 11, 5),
		log("2024-06-11", 9, 20, 9),
	}
	first := Build(logs, juneWeek(), testCatalog(), 1)
	for range 5 {
		if diff := cmp.Diff(first, Build(logs, juneWeek(), testCatalog(), 1)); diff != "" {
			t.Fatalf("Build not deterministic:\n%s", diff)
		}
	}
}

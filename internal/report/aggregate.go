// Package report implements the reporting pipeline over hour-log
// snapshots: windowed aggregation, period-over-period trends, and
// rule-generated insights. Everything here is pure computation;
// callers pass in store snapshots and get plain data back.
package report

import (
	"sort"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/timeutil"
)

// CategoryHours is one category's hour count within a window.
type CategoryHours struct {
	CategoryID int64  `json:"category_id"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Hours      int    `json:"hours"`
}

// GroupHours is one group's hour count within a window.
type GroupHours struct {
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Hours   int    `json:"hours"`
}

// HourRating is the rating aggregate for one hour-of-day slot.
// Count is the number of logs at that hour; Rated is how many of
// them carried a rating. Rated == 0 is the "no data" sentinel,
// distinct from an average of exactly 0.
type HourRating struct {
	Count   int     `json:"count"`
	Rated   int     `json:"rated"`
	Average float64 `json:"average"`
}

// Aggregate is the windowed reduction of a log snapshot. Each
// log counts as exactly one hour.
type Aggregate struct {
	TotalHours int `json:"total_hours"`

	// ByCategory and ByGroup are sorted by hours descending,
	// ties broken by the catalog's declared sort order then
	// name, so output is deterministic.
	ByCategory []CategoryHours `json:"by_category"`
	ByGroup    []GroupHours    `json:"by_group"`

	// ByWeekday counts hours per weekday, 1=Sunday..7=Saturday.
	// Index 0 is unused.
	ByWeekday [8]int `json:"by_weekday"`

	// ByHour holds rating averages per hour-of-day slot.
	ByHour [24]HourRating `json:"by_hour"`

	// AverageRating is the mean rating across rated logs in the
	// window; meaningless unless RatedHours > 0.
	AverageRating float64 `json:"average_rating"`
	RatedHours    int     `json:"rated_hours"`

	// HeadlineHours counts hours in the headline group, with a
	// per-weekday breakdown for the best-day rule.
	HeadlineHours     int    `json:"headline_hours"`
	HeadlineByWeekday [8]int `json:"-"`
}

// Build reduces the logs falling inside the window. The catalog
// supplies the category/group hierarchy; headlineGroupID selects
// the group whose hours form the headline metric (0 for none).
// Logs without a category still count toward TotalHours but are
// excluded from category and group buckets; a category whose
// group no longer exists is treated as group-less.
func Build(
	logs []db.HourLog, w timeutil.Window, cat db.Catalog,
	headlineGroupID int64,
) Aggregate {
	from := timeutil.FormatDate(w.Start)
	to := timeutil.FormatDate(w.End)

	var agg Aggregate
	catHours := make(map[int64]int)
	groupHours := make(map[int64]int)
	var ratingSum float64
	hourSums := [24]float64{}

	for _, l := range logs {
		// ISO dates compare lexically.
		if l.Day < from || l.Day >= to {
			continue
		}
		agg.TotalHours++

		if day, err := timeutil.ParseDate(l.Day); err == nil {
			agg.ByWeekday[int(day.Weekday())+1]++
		}

		if l.Hour >= 0 && l.Hour < 24 {
			agg.ByHour[l.Hour].Count++
			if l.Rating != nil {
				agg.ByHour[l.Hour].Rated++
				hourSums[l.Hour] += float64(*l.Rating)
			}
		}
		if l.Rating != nil {
			agg.RatedHours++
			ratingSum += float64(*l.Rating)
		}

		if l.CategoryID == nil {
			continue
		}
		c := cat.CategoryByID(*l.CategoryID)
		if c == nil {
			// Dangling reference; counts as unlogged.
			continue
		}
		catHours[c.ID]++
		if c.GroupID == nil {
			continue
		}
		if cat.GroupByID(*c.GroupID) == nil {
			continue
		}
		groupHours[*c.GroupID]++
		if *c.GroupID == headlineGroupID {
			agg.HeadlineHours++
			if day, err := timeutil.ParseDate(l.Day); err == nil {
				agg.HeadlineByWeekday[int(day.Weekday())+1]++
			}
		}
	}

	if agg.RatedHours > 0 {
		agg.AverageRating = ratingSum / float64(agg.RatedHours)
	}
	for h := range agg.ByHour {
		if agg.ByHour[h].Rated > 0 {
			agg.ByHour[h].Average = hourSums[h] / float64(agg.ByHour[h].Rated)
		}
	}

	agg.ByCategory = sortCategories(catHours, cat)
	agg.ByGroup = sortGroups(groupHours, cat)
	return agg
}

func sortCategories(hours map[int64]int, cat db.Catalog) []CategoryHours {
	out := make([]CategoryHours, 0, len(hours))
	order := make(map[int64]int, len(cat.Categories))
	for _, c := range cat.Categories {
		n, ok := hours[c.ID]
		if !ok {
			continue
		}
		order[c.ID] = c.SortOrder
		out = append(out, CategoryHours{
			CategoryID: c.ID, Name: c.Name, Icon: c.Icon, Hours: n,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		if order[out[i].CategoryID] != order[out[j].CategoryID] {
			return order[out[i].CategoryID] < order[out[j].CategoryID]
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func sortGroups(hours map[int64]int, cat db.Catalog) []GroupHours {
	out := make([]GroupHours, 0, len(hours))
	order := make(map[int64]int, len(cat.Groups))
	for _, g := range cat.Groups {
		n, ok := hours[g.ID]
		if !ok {
			continue
		}
		order[g.ID] = g.SortOrder
		out = append(out, GroupHours{
			GroupID: g.ID, Name: g.Name, Color: g.Color, Hours: n,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Hours != out[j].Hours {
			return out[i].Hours > out[j].Hours
		}
		if order[out[i].GroupID] != order[out[j].GroupID] {
			return order[out[i].GroupID] < order[out[j].GroupID]
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// groupHoursFor returns the hour count for a group ID, 0 when absent.
func (a Aggregate) groupHoursFor(id int64) int {
	for _, g := range a.ByGroup {
		if g.GroupID == id {
			return g.Hours
		}
	}
	return 0
}

// categoryHoursFor returns the hour count for a category ID.
func (a Aggregate) categoryHoursFor(id int64) int {
	for _, c := range a.ByCategory {
		if c.CategoryID == id {
			return c.Hours
		}
	}
	return 0
}

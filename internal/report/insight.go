package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/daylog/daylog/internal/timeutil"
)

// ErrInsufficientData signals a window with zero logged hours.
// Callers surface this as an explicit empty state rather than an
// insight list that merely happened to be empty.
var ErrInsufficientData = errors.New("insufficient data for insights")

// maxInsights caps the insight list per view.
const maxInsights = 4

// Insight is one rule-generated observation. Icon and Color are
// opaque presentation tags; Text is fully rendered with numbers
// interpolated here so output is deterministic.
type Insight struct {
	Icon  string `json:"icon"`
	Color string `json:"color"`
	Text  string `json:"text"`
}

// Thresholds gate the insight rules. Monthly values are larger
// than weekly ones because monthly totals are larger.
type Thresholds struct {
	HeadlineDelta int     // hours, rule 3
	CategoryDelta int     // hours, rule 4
	SplitMargin   float64 // hours, rule 6
	PeakRating    float64 // absolute floor, rule 1
	TroughRating  float64 // absolute ceiling, rule 2
	RatingDelta   float64 // rule 7
}

// ThresholdsFor returns the stock thresholds for a period kind.
func ThresholdsFor(kind timeutil.PeriodKind) Thresholds {
	t := Thresholds{
		PeakRating:   7,
		TroughRating: 5,
		RatingDelta:  0.5,
		SplitMargin:  3,
	}
	switch kind {
	case timeutil.PeriodMonth:
		t.HeadlineDelta = 10
		t.CategoryDelta = 15
	case timeutil.PeriodWeek:
		t.HeadlineDelta = 3
		t.CategoryDelta = 5
	default:
		t.HeadlineDelta = 2
		t.CategoryDelta = 2
	}
	return t
}

// Config parameterizes insight generation for one view.
type Config struct {
	Kind            timeutil.PeriodKind
	HeadlineGroupID int64
	HeadlineName    string
	Thresholds      Thresholds
}

// priorPhrase names the previous period in insight text.
func priorPhrase(kind timeutil.PeriodKind) string {
	switch kind {
	case timeutil.PeriodWeek:
		return "last week"
	case timeutil.PeriodMonth:
		return "last month"
	default:
		return "the day before"
	}
}

// periodNoun names the current period in insight text.
func periodNoun(kind timeutil.PeriodKind) string {
	switch kind {
	case timeutil.PeriodWeek:
		return "week"
	case timeutil.PeriodMonth:
		return "month"
	default:
		return "day"
	}
}

// formatHour renders an hour-of-day in the en-US clock style
// used across the app ("12 AM", "3 PM").
func formatHour(hour int) string {
	switch {
	case hour == 0:
		return "12 AM"
	case hour < 12:
		return fmt.Sprintf("%d AM", hour)
	case hour == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", hour-12)
	}
}

var weekdayNames = [8]string{
	"", "Sunday", "Monday", "Tuesday", "Wednesday",
	"Thursday", "Friday", "Saturday",
}

// rule is one entry in the ordered rule table: a name for tests
// and an evaluator that returns nil when the rule does not fire.
type rule struct {
	name string
	eval func(cur, prev Aggregate, cfg Config) *Insight
}

// rules is the fixed priority order. Later rules (the dominant-
// category share in particular) are almost always eligible and
// would crowd out the rarer ones if evaluated first.
var rules = []rule{
	{"peak-rating-hour", rulePeakHour},
	{"trough-rating-hour", ruleTroughHour},
	{"headline-change", ruleHeadlineChange},
	{"category-change", ruleCategoryChange},
	{"best-weekday", ruleBestWeekday},
	{"split", ruleSplit},
	{"rating-change", ruleRatingChange},
	{"dominant-category", ruleDominantCategory},
}

// Insights evaluates the rule table in priority order against
// the current and previous aggregates, keeping the first four
// that fire. A window with no logged hours yields
// ErrInsufficientData instead of an empty list.
func Insights(cur, prev Aggregate, cfg Config) ([]Insight, error) {
	if cur.TotalHours == 0 {
		return nil, ErrInsufficientData
	}

	var out []Insight
	for _, r := range rules {
		if ins := r.eval(cur, prev, cfg); ins != nil {
			out = append(out, *ins)
			if len(out) == maxInsights {
				break
			}
		}
	}
	return out, nil
}

func rulePeakHour(cur, _ Aggregate, cfg Config) *Insight {
	best, avg := -1, 0.0
	for h, hr := range cur.ByHour {
		if hr.Rated > 0 && (best < 0 || hr.Average > avg) {
			best, avg = h, hr.Average
		}
	}
	if best < 0 || avg < cfg.Thresholds.PeakRating {
		return nil
	}
	return &Insight{
		Icon:  "bolt.fill",
		Color: "green",
		Text: fmt.Sprintf("Ratings peak at %s (avg %.1f/10)",
			formatHour(best), avg),
	}
}

func ruleTroughHour(cur, _ Aggregate, cfg Config) *Insight {
	worst, avg := -1, 0.0
	for h, hr := range cur.ByHour {
		if hr.Rated > 0 && (worst < 0 || hr.Average < avg) {
			worst, avg = h, hr.Average
		}
	}
	if worst < 0 || avg >= cfg.Thresholds.TroughRating {
		return nil
	}
	return &Insight{
		Icon:  "moon.zzz.fill",
		Color: "orange",
		Text: fmt.Sprintf("Ratings dip at %s (avg %.1f/10)",
			formatHour(worst), avg),
	}
}

func ruleHeadlineChange(cur, prev Aggregate, cfg Config) *Insight {
	if cfg.HeadlineName == "" {
		return nil
	}
	t := Compare(float64(cur.HeadlineHours),
		float64(prev.groupHoursFor(cfg.HeadlineGroupID)))
	if !t.HasPrior || math.Abs(t.Delta) < float64(cfg.Thresholds.HeadlineDelta) {
		return nil
	}
	if t.Delta > 0 {
		return &Insight{
			Icon:  "arrow.up.right.circle.fill",
			Color: "green",
			Text: fmt.Sprintf("%s time up %dh (+%d%%) from %s",
				cfg.HeadlineName, int(t.Delta), *t.PercentDelta,
				priorPhrase(cfg.Kind)),
		}
	}
	return &Insight{
		Icon:  "arrow.down.right.circle.fill",
		Color: "orange",
		Text: fmt.Sprintf("%s time down %dh from %s",
			cfg.HeadlineName, int(-t.Delta), priorPhrase(cfg.Kind)),
	}
}

// ruleCategoryChange scans categories in descending current-hour
// order and emits the first large swing, then stops: one such
// insight per view avoids near-duplicate noise.
func ruleCategoryChange(cur, prev Aggregate, cfg Config) *Insight {
	for _, c := range cur.ByCategory {
		t := Compare(float64(c.Hours),
			float64(prev.categoryHoursFor(c.CategoryID)))
		if !t.HasPrior || math.Abs(t.Delta) < float64(cfg.Thresholds.CategoryDelta) {
			continue
		}
		if t.Delta > 0 {
			return &Insight{
				Icon:  "arrow.up.circle.fill",
				Color: "green",
				Text: fmt.Sprintf("%s up %dh (+%d%%) vs %s",
					c.Name, int(t.Delta), *t.PercentDelta,
					priorPhrase(cfg.Kind)),
			}
		}
		return &Insight{
			Icon:  "arrow.down.circle.fill",
			Color: "orange",
			Text: fmt.Sprintf("%s down %dh from %s",
				c.Name, int(-t.Delta), priorPhrase(cfg.Kind)),
		}
	}
	return nil
}

func ruleBestWeekday(cur, _ Aggregate, cfg Config) *Insight {
	if cfg.HeadlineName == "" {
		return nil
	}
	best, hours := 0, 0
	for wd := 1; wd <= 7; wd++ {
		if cur.HeadlineByWeekday[wd] > hours {
			best, hours = wd, cur.HeadlineByWeekday[wd]
		}
	}
	if hours == 0 {
		return nil
	}
	return &Insight{
		Icon:  "star.fill",
		Color: "yellow",
		Text: fmt.Sprintf("%s had the most %s time (%dh)",
			weekdayNames[best], cfg.HeadlineName, hours),
	}
}

// ruleSplit compares weekday and weekend per-day averages (week
// and month views) or morning and afternoon totals (day view).
// The margin is in absolute hours, not a percentage, so small
// samples stay quiet.
func ruleSplit(cur, _ Aggregate, cfg Config) *Insight {
	if cfg.Kind == timeutil.PeriodDay {
		morning, afternoon := 0, 0
		for h, hr := range cur.ByHour {
			if h < 12 {
				morning += hr.Count
			} else {
				afternoon += hr.Count
			}
		}
		if math.Abs(float64(morning-afternoon)) < cfg.Thresholds.SplitMargin {
			return nil
		}
		return &Insight{
			Icon:  "sun.and.horizon.fill",
			Color: "blue",
			Text: fmt.Sprintf("%dh logged in the morning vs %dh in the afternoon",
				morning, afternoon),
		}
	}

	weekend := cur.ByWeekday[1] + cur.ByWeekday[7]
	weekday := 0
	for wd := 2; wd <= 6; wd++ {
		weekday += cur.ByWeekday[wd]
	}
	avgWeekday := float64(weekday) / 5
	avgWeekend := float64(weekend) / 2
	if math.Abs(avgWeekday-avgWeekend) < cfg.Thresholds.SplitMargin {
		return nil
	}
	return &Insight{
		Icon:  "calendar",
		Color: "blue",
		Text: fmt.Sprintf("Weekdays average %.1fh logged vs %.1fh on weekends",
			avgWeekday, avgWeekend),
	}
}

func ruleRatingChange(cur, prev Aggregate, cfg Config) *Insight {
	if cur.RatedHours == 0 || prev.RatedHours == 0 {
		return nil
	}
	t := Compare(cur.AverageRating, prev.AverageRating)
	if !t.HasPrior || math.Abs(t.Delta) < cfg.Thresholds.RatingDelta {
		return nil
	}
	direction, icon, color := "up", "face.smiling.fill", "green"
	if t.Delta < 0 {
		direction, icon, color = "down", "cloud.rain.fill", "orange"
	}
	return &Insight{
		Icon:  icon,
		Color: color,
		Text: fmt.Sprintf("Average rating %s %.1f from %s (now %.1f/10)",
			direction, math.Abs(t.Delta), priorPhrase(cfg.Kind),
			cur.AverageRating),
	}
}

// ruleDominantCategory is the fallback: almost always eligible,
// so it runs last and keeps the list non-empty whenever any
// categorized data exists.
func ruleDominantCategory(cur, _ Aggregate, cfg Config) *Insight {
	if len(cur.ByCategory) == 0 || cur.TotalHours == 0 {
		return nil
	}
	top := cur.ByCategory[0]
	pct := top.Hours * 100 / cur.TotalHours
	return &Insight{
		Icon:  "chart.pie.fill",
		Color: "purple",
		Text: fmt.Sprintf("%d%% of your %s spent on %s",
			pct, periodNoun(cfg.Kind), top.Name),
	}
}

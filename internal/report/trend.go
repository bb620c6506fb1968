package report

import "math"

// Trend compares a metric between the current period and the
// previous period of equal length.
type Trend struct {
	// Delta is always computable, even without prior data.
	Delta float64 `json:"delta"`

	// PercentDelta is rounded to the nearest integer and nil
	// when there is no prior baseline: a zero previous period is
	// "no baseline", not "0% of everything".
	PercentDelta *int `json:"percent_delta,omitempty"`

	HasPrior bool `json:"has_prior"`
}

// Compare derives the trend between two metric values.
func Compare(current, previous float64) Trend {
	t := Trend{Delta: current - previous}
	if previous == 0 {
		return t
	}
	t.HasPrior = true
	pct := int(math.Round((current - previous) / previous * 100))
	t.PercentDelta = &pct
	return t
}

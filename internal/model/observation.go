package model

import "time"

// ContinentTotalSuffix marks synthetic rows whose country field holds a
// pre-aggregated continent, e.g. "Europe (total)".
const ContinentTotalSuffix = " (total)"

// Observation is one weekly data point for a (country, indicator) series.
//
// Seq is the store-assigned insertion order. It breaks ties between rows
// sharing a year-week and is never serialized.
type Observation struct {
	ID              string    `json:"_id"`
	Seq             int64     `json:"-"`
	Country         string    `json:"country"`
	CountryCode     *string   `json:"country_code,omitempty"`
	Continent       string    `json:"continent"`
	Population      int64     `json:"population"`
	Indicator       string    `json:"indicator"`
	WeeklyCount     int64     `json:"weekly_count"`
	YearWeek        string    `json:"year_week"`
	Rate14Day       *float64  `json:"rate_14_day,omitempty"`
	CumulativeCount int64     `json:"cumulative_count"`
	Source          string    `json:"source"`
	CreatedAt       time.Time `json:"created_at"`
}

// Newer reports whether o supersedes other in a latest-row search:
// greater year-week first, then greater Seq.
// Rows with an unparseable year-week lose to any parseable one.
func (o Observation) Newer(other Observation) bool {
	a, errA := ParseYearWeek(o.YearWeek)
	b, errB := ParseYearWeek(other.YearWeek)

	switch {
	case errA != nil && errB != nil:
		return o.Seq > other.Seq
	case errA != nil:
		return false
	case errB != nil:
		return true
	}

	if c := a.Compare(b); c != 0 {
		return c > 0
	}
	return o.Seq > other.Seq
}

// Latest picks the newest observation per Newer, or nil for an empty slice.
func Latest(observations []Observation) *Observation {
	if len(observations) == 0 {
		return nil
	}

	best := observations[0]
	for _, o := range observations[1:] {
		if o.Newer(best) {
			best = o
		}
	}
	return &best
}

// UpdateResult acknowledges a partial update.
type UpdateResult struct {
	Matched  int64 `json:"matched"`
	Modified int64 `json:"modified"`
}

// DeleteResult acknowledges a delete.
type DeleteResult struct {
	Deleted int64 `json:"deleted"`
}

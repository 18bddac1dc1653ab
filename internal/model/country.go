package model

// CountryReference is one entry of the static country list driving the
// country summary.
type CountryReference struct {
	Code    string `json:"code" yaml:"code"`
	Country string `json:"country" yaml:"country"`
}

// MissingDataMessage marks country summary entries with no observations.
const MissingDataMessage = "missing data"

// CountryTotal is one country summary entry. CumulativeCount is nil and
// Error set when the country has no data.
type CountryTotal struct {
	Code            string `json:"code"`
	Country         string `json:"country"`
	CumulativeCount *int64 `json:"cumulative_count"`
	Error           string `json:"error,omitempty"`
}

// Missing reports whether the entry carries no data.
func (c CountryTotal) Missing() bool {
	return c.CumulativeCount == nil
}

// Continent is one of the five summarised continents.
type Continent struct {
	Name string
	Key  string
}

// Continents lists the continent summary entries in response order.
var Continents = []Continent{
	{Name: "Asia", Key: "asiaTotal"},
	{Name: "Africa", Key: "africaTotal"},
	{Name: "Europe", Key: "europeTotal"},
	{Name: "America", Key: "americaTotal"},
	{Name: "Oceania", Key: "oceaniaTotal"},
}

// TotalEntity is the synthetic country name holding the continent aggregate.
func (c Continent) TotalEntity() string {
	return c.Name + ContinentTotalSuffix
}

// ContinentSummary maps a continent key to its latest aggregate row, or nil.
type ContinentSummary map[string]*Observation

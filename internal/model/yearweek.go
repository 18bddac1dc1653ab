package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// LastRegularWeek is the highest week number that does not roll the year.
// A stored week above it (53) is followed by week 0 of the next year.
const LastRegularWeek = 52

// ErrInvalidYearWeek is returned for strings not shaped "{year}-{week}".
var ErrInvalidYearWeek = errors.New("invalid year-week")

// YearWeek identifies a reporting period, written "YYYY-W" or "YYYY-WW".
type YearWeek struct {
	Year int
	Week int
}

// ParseYearWeek parses "{year}-{week}". Week may be unpadded.
func ParseYearWeek(s string) (YearWeek, error) {
	yearPart, weekPart, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return YearWeek{}, fmt.Errorf("%w: %q", ErrInvalidYearWeek, s)
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil || year < 0 {
		return YearWeek{}, fmt.Errorf("%w: %q", ErrInvalidYearWeek, s)
	}

	week, err := strconv.Atoi(weekPart)
	if err != nil || week < 0 {
		return YearWeek{}, fmt.Errorf("%w: %q", ErrInvalidYearWeek, s)
	}

	return YearWeek{Year: year, Week: week}, nil
}

// String formats without zero padding, matching what Next produces.
func (yw YearWeek) String() string {
	return fmt.Sprintf("%d-%d", yw.Year, yw.Week)
}

// Compare orders numerically by year then week.
func (yw YearWeek) Compare(other YearWeek) int {
	switch {
	case yw.Year != other.Year:
		if yw.Year < other.Year {
			return -1
		}
		return 1
	case yw.Week < other.Week:
		return -1
	case yw.Week > other.Week:
		return 1
	}
	return 0
}

// Next returns the period following yw. Weeks above 52 roll over to
// week 0 of the following year; every other week increments.
func (yw YearWeek) Next() YearWeek {
	if yw.Week > LastRegularWeek {
		return YearWeek{Year: yw.Year + 1, Week: 0}
	}
	return YearWeek{Year: yw.Year, Week: yw.Week + 1}
}

// NextYearWeek parses s and returns the following period as a string.
func NextYearWeek(s string) (string, error) {
	yw, err := ParseYearWeek(s)
	if err != nil {
		return "", err
	}
	return yw.Next().String(), nil
}

// Package timeseries provides the date-indexed daily series primitives the
// factor pipeline is built on. All series are time-zone naive: dates are
// normalized to UTC midnight before any cross-series arithmetic.
package timeseries

import (
	"sort"
	"time"
)

// Day normalizes a timestamp to a tz-naive calendar day (UTC midnight)
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Series is an immutable daily series with strictly increasing dates.
// When the input carries duplicate dates, the last observation wins.
type Series struct {
	dates  []time.Time
	values []float64
}

// New builds a series from parallel date/value slices. Input ordering does
// not matter; dates are normalized and sorted.
func New(dates []time.Time, values []float64) Series {
	n := len(dates)
	if len(values) < n {
		n = len(values)
	}

	type obs struct {
		date  time.Time
		value float64
	}
	observations := make([]obs, n)
	for i := 0; i < n; i++ {
		observations[i] = obs{date: Day(dates[i]), value: values[i]}
	}
	sort.SliceStable(observations, func(i, j int) bool {
		return observations[i].date.Before(observations[j].date)
	})

	s := Series{
		dates:  make([]time.Time, 0, n),
		values: make([]float64, 0, n),
	}
	for _, o := range observations {
		if last := len(s.dates) - 1; last >= 0 && s.dates[last].Equal(o.date) {
			s.values[last] = o.value
			continue
		}
		s.dates = append(s.dates, o.date)
		s.values = append(s.values, o.value)
	}
	return s
}

// Len returns the number of observations
func (s Series) Len() int {
	return len(s.dates)
}

// Empty reports whether the series has no observations
func (s Series) Empty() bool {
	return len(s.dates) == 0
}

// Dates returns the observation dates in ascending order
func (s Series) Dates() []time.Time {
	return s.dates
}

// Values returns the observation values, parallel to Dates
func (s Series) Values() []float64 {
	return s.values
}

// At returns the value observed on a date
func (s Series) At(date time.Time) (float64, bool) {
	d := Day(date)
	i := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(d) })
	if i < len(s.dates) && s.dates[i].Equal(d) {
		return s.values[i], true
	}
	return 0, false
}

// AtOrBefore returns the most recent value observed at or before a date
func (s Series) AtOrBefore(date time.Time) (float64, bool) {
	d := Day(date)
	i := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(d) })
	if i == 0 {
		return 0, false
	}
	return s.values[i-1], true
}

// First returns the earliest observation
func (s Series) First() (time.Time, float64, bool) {
	if s.Empty() {
		return time.Time{}, 0, false
	}
	return s.dates[0], s.values[0], true
}

// Last returns the latest observation
func (s Series) Last() (time.Time, float64, bool) {
	if s.Empty() {
		return time.Time{}, 0, false
	}
	n := len(s.dates) - 1
	return s.dates[n], s.values[n], true
}

// Slice returns the observations within [from, to] inclusive
func (s Series) Slice(from, to time.Time) Series {
	f, t := Day(from), Day(to)
	lo := sort.Search(len(s.dates), func(i int) bool { return !s.dates[i].Before(f) })
	hi := sort.Search(len(s.dates), func(i int) bool { return s.dates[i].After(t) })
	if lo >= hi {
		return Series{}
	}
	return Series{dates: s.dates[lo:hi], values: s.values[lo:hi]}
}

// PctChange returns simple returns between consecutive observations:
// r_t = v_t/v_{t-1} - 1. The first observation is necessarily dropped.
// Observations with a zero predecessor are skipped.
func (s Series) PctChange() Series {
	if s.Len() < 2 {
		return Series{}
	}
	dates := make([]time.Time, 0, s.Len()-1)
	values := make([]float64, 0, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		prev := s.values[i-1]
		if prev == 0 {
			continue
		}
		dates = append(dates, s.dates[i])
		values = append(values, s.values[i]/prev-1)
	}
	return Series{dates: dates, values: values}
}

// Scale returns a new series with every value multiplied by f
func (s Series) Scale(f float64) Series {
	values := make([]float64, s.Len())
	for i, v := range s.values {
		values[i] = v * f
	}
	return Series{dates: s.dates, values: values}
}

// Mean returns the arithmetic mean of the values
func (s Series) Mean() float64 {
	if s.Empty() {
		return 0
	}
	var sum float64
	for _, v := range s.values {
		sum += v
	}
	return sum / float64(s.Len())
}

// ForwardFillTo reindexes the series onto a target calendar, carrying the
// most recent observation forward. Calendar dates before the first
// observation are dropped, never zero-filled.
func (s Series) ForwardFillTo(calendar []time.Time) Series {
	dates := make([]time.Time, 0, len(calendar))
	values := make([]float64, 0, len(calendar))
	for _, d := range calendar {
		v, ok := s.AtOrBefore(d)
		if !ok {
			continue
		}
		dates = append(dates, Day(d))
		values = append(values, v)
	}
	return Series{dates: dates, values: values}
}

// Sub returns the element-wise difference s - other over the dates both
// series observe
func (s Series) Sub(other Series) Series {
	dates := make([]time.Time, 0, s.Len())
	values := make([]float64, 0, s.Len())
	for i, d := range s.dates {
		v, ok := other.At(d)
		if !ok {
			continue
		}
		dates = append(dates, d)
		values = append(values, s.values[i]-v)
	}
	return Series{dates: dates, values: values}
}

// MeanAcross computes the per-date mean over a group of series. A date
// contributes whenever at least one series observes it; absent observations
// are skipped, not zero-filled.
func MeanAcross(group []Series) Series {
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, s := range group {
		for i, d := range s.dates {
			sums[d] += s.values[i]
			counts[d]++
		}
	}

	dates := make([]time.Time, 0, len(sums))
	for d := range sums {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	values := make([]float64, len(dates))
	for i, d := range dates {
		values[i] = sums[d] / float64(counts[d])
	}
	return Series{dates: dates, values: values}
}

// ConcatAveraging concatenates series parts, averaging values where the same
// calendar date appears in more than one part
func ConcatAveraging(parts []Series) Series {
	return MeanAcross(parts)
}

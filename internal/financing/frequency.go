package financing

import (
	"math"
	"time"
)

// Frequency is the spacing between two consecutive installments.
type Frequency string

const (
	FrequencyMonthly    Frequency = "MONTHLY"
	FrequencyBimonthly  Frequency = "BIMONTHLY"
	FrequencyQuarterly  Frequency = "QUARTERLY"
	FrequencySemiannual Frequency = "SEMIANNUAL"
	FrequencyAnnual     Frequency = "ANNUAL"
)

var monthsPerPeriod = map[Frequency]int{
	FrequencyMonthly:    1,
	FrequencyBimonthly:  2,
	FrequencyQuarterly:  3,
	FrequencySemiannual: 6,
	FrequencyAnnual:     12,
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	_, ok := monthsPerPeriod[f]
	return ok
}

// Months returns the calendar months covered by one period.
func (f Frequency) Months() int {
	return monthsPerPeriod[f]
}

// YearFraction returns the share of a year covered by one period.
func (f Frequency) YearFraction() float64 {
	return float64(f.Months()) / 12
}

// EffectiveRate converts an annual nominal rate in percent to the compounded
// rate of a single period: (1 + annual)^fraction - 1.
func EffectiveRate(annualRatePercent float64, f Frequency) float64 {
	if annualRatePercent == 0 {
		return 0
	}
	return math.Pow(1+annualRatePercent/100, f.YearFraction()) - 1
}

// AddMonths moves t forward by the given number of calendar months, clamping
// the day to the last day of the target month (Jan 31 + 1 month = Feb 28).
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// DateOnly drops the clock part of t, keeping the calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts whole calendar days from a to b (negative when b is
// before a).
func daysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

package parse

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DurationToken is a relative time span built from per-unit
// quantities. Quantities are non-negative; Past marks spans that point
// backward ("10 minutes ago").
type DurationToken struct {
	Years   float64 `json:"years,omitempty"`
	Months  float64 `json:"months,omitempty"`
	Weeks   float64 `json:"weeks,omitempty"`
	Days    float64 `json:"days,omitempty"`
	Hours   float64 `json:"hours,omitempty"`
	Minutes float64 `json:"minutes,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
	Past    bool    `json:"past,omitempty"`
}

func (d *DurationToken) Valid() bool {
	for _, v := range []float64{d.Years, d.Months, d.Weeks, d.Days, d.Hours, d.Minutes, d.Seconds} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsZero reports whether the span is empty ("now").
func (d *DurationToken) IsZero() bool {
	return d.Years == 0 && d.Months == 0 && d.Weeks == 0 && d.Days == 0 &&
		d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0
}

// EndTimeAfter adds the span to start. Whole months and years advance
// the calendar with the day clamped to the target month's length, so
// January 31 plus one month lands on the last day of February.
// Fractional months count 30 days and fractional years 365.
func (d *DurationToken) EndTimeAfter(start time.Time) (time.Time, bool) {
	if !d.Valid() {
		return time.Time{}, false
	}
	sign := 1
	if d.Past {
		sign = -1
	}
	wholeYears, fracYears := math.Modf(d.Years)
	wholeMonths, fracMonths := math.Modf(d.Months)
	end := addMonths(start, sign*(int(wholeYears)*12+int(wholeMonths)))

	days := fracYears*365 + fracMonths*30 + d.Weeks*7 + d.Days
	rest := time.Duration((days*24+d.Hours)*float64(time.Hour) +
		d.Minutes*float64(time.Minute) +
		d.Seconds*float64(time.Second))
	if sign < 0 {
		rest = -rest
	}
	return end.Add(rest), true
}

// Duration is the fixed-length view of the span, counting 30 days per
// month and 365 per year.
func (d *DurationToken) Duration() time.Duration {
	days := d.Years*365 + d.Months*30 + d.Weeks*7 + d.Days
	v := time.Duration((days*24+d.Hours)*float64(time.Hour) +
		d.Minutes*float64(time.Minute) +
		d.Seconds*float64(time.Second))
	if d.Past {
		return -v
	}
	return v
}

func (d *DurationToken) String() string {
	var parts []string
	add := func(v float64, unit string) {
		if v == 0 {
			return
		}
		parts = append(parts, formatQuantity(v, unit))
	}
	add(d.Years, "year")
	add(d.Months, "month")
	add(d.Weeks, "week")
	add(d.Days, "day")
	add(d.Hours, "hour")
	add(d.Minutes, "minute")
	add(d.Seconds, "second")
	if len(parts) == 0 {
		return "0 seconds"
	}
	s := strings.Join(parts, " ")
	if d.Past {
		s += " ago"
	}
	return s
}

func formatQuantity(v float64, unit string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == 1 {
		return s + " " + unit
	}
	return s + " " + unit + "s"
}

// addMonths advances t by whole calendar months. Unlike AddDate, the
// day is clamped to the last day of the target month instead of
// spilling into the next one.
func addMonths(t time.Time, months int) time.Time {
	y, m, day := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	h, min, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), day, h, min, sec, t.Nanosecond(), t.Location())
}

package parse

import (
	"fmt"
	"strings"
	"time"
)

// maxYearScan bounds the forward search used when a date pattern omits
// the year. February 29 needs at most eight years to reach a leap year
// across a skipped century.
const maxYearScan = 12

// DateKind selects which DatePart field group is meaningful.
type DateKind string

const (
	DateAbsolute    DateKind = "absolute"
	DateDayOfWeek   DateKind = "day_of_week"
	DateRelativeDay DateKind = "relative_day"
)

// WeekdayRelation qualifies a day-of-week pattern. Upcoming and Next
// both resolve to the soonest matching instant; Last points at the
// most recent occurrence before the reference date.
type WeekdayRelation string

const (
	WeekdayUpcoming WeekdayRelation = ""
	WeekdayNext     WeekdayRelation = "next"
	WeekdayLast     WeekdayRelation = "last"
)

// DatePart is the date half of a DateTimeToken.
type DatePart struct {
	Kind DateKind `json:"kind"`

	// Absolute calendar date. Year 0 means unspecified.
	Year  int        `json:"year,omitempty"`
	Month time.Month `json:"month,omitempty"`
	Day   int        `json:"day,omitempty"`

	Weekday  time.Weekday    `json:"weekday,omitempty"`
	Relation WeekdayRelation `json:"relation,omitempty"`

	// Day offset from the reference date: 0 today, 1 tomorrow,
	// -1 yesterday.
	Offset int `json:"offset,omitempty"`
}

type Meridiem string

const (
	MeridiemNone Meridiem = ""
	MeridiemAM   Meridiem = "am"
	MeridiemPM   Meridiem = "pm"
)

// TimePart is the clock half of a DateTimeToken. With MeridiemNone an
// hour from 1 to 12 matches both the morning and the evening reading
// and resolution picks whichever comes first.
type TimePart struct {
	Hour     int      `json:"hour"`
	Minute   int      `json:"minute,omitempty"`
	Second   int      `json:"second,omitempty"`
	Meridiem Meridiem `json:"meridiem,omitempty"`
}

// DateTimeToken is a calendar pattern: an optional date part plus an
// optional time part, at least one of which is present. A missing time
// part means midnight; a missing date part recurs daily.
type DateTimeToken struct {
	Date *DatePart `json:"date,omitempty"`
	Time *TimePart `json:"time,omitempty"`
}

func (t *DateTimeToken) Valid() bool {
	if t.Date == nil && t.Time == nil {
		return false
	}
	if t.Date != nil && !t.Date.valid() {
		return false
	}
	if t.Time != nil && !t.Time.valid() {
		return false
	}
	return true
}

func (p *DatePart) valid() bool {
	switch p.Kind {
	case DateAbsolute:
		if p.Month < time.January || p.Month > time.December || p.Day < 1 {
			return false
		}
		if p.Year != 0 {
			return p.Day <= daysIn(p.Year, p.Month)
		}
		// Without a year the day only has to be possible in some year.
		return p.Day <= maxDaysIn(p.Month)
	case DateDayOfWeek:
		return p.Weekday >= time.Sunday && p.Weekday <= time.Saturday
	case DateRelativeDay:
		return p.Offset >= -1 && p.Offset <= 1
	default:
		return false
	}
}

func (p *TimePart) valid() bool {
	if p.Minute < 0 || p.Minute > 59 || p.Second < 0 || p.Second > 59 {
		return false
	}
	if p.Meridiem == MeridiemNone {
		return p.Hour >= 0 && p.Hour <= 23
	}
	return p.Hour >= 1 && p.Hour <= 12
}

// EndTimeAfter picks the earliest reading of the pattern strictly
// after start. When every reading is in the past (an explicit old
// date, "yesterday", a "last" weekday) the earliest reading is
// returned so the caller can tell how stale the pattern is.
func (t *DateTimeToken) EndTimeAfter(start time.Time) (time.Time, bool) {
	if !t.Valid() {
		return time.Time{}, false
	}
	dates, ok := t.candidateDates(start)
	if !ok {
		return time.Time{}, false
	}
	clocks := t.candidateClocks()

	var first, best time.Time
	haveFirst, haveBest := false, false
	for _, d := range dates {
		for _, c := range clocks {
			at := time.Date(d.Year(), d.Month(), d.Day(), c.hour, c.min, c.sec, 0, start.Location())
			if !haveFirst || at.Before(first) {
				first, haveFirst = at, true
			}
			if at.After(start) && (!haveBest || at.Before(best)) {
				best, haveBest = at, true
			}
		}
	}
	if haveBest {
		return best, true
	}
	return first, haveFirst
}

// candidateDates lists the midnights the pattern could fall on,
// ascending. ok is false when no calendar date matches (February 30).
func (t *DateTimeToken) candidateDates(start time.Time) ([]time.Time, bool) {
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	if t.Date == nil {
		// Time-only patterns recur daily.
		return []time.Time{day, day.AddDate(0, 0, 1)}, true
	}
	p := t.Date
	switch p.Kind {
	case DateRelativeDay:
		return []time.Time{day.AddDate(0, 0, p.Offset)}, true
	case DateDayOfWeek:
		if p.Relation == WeekdayLast {
			back := (int(start.Weekday()) - int(p.Weekday) + 7) % 7
			if back == 0 {
				back = 7
			}
			return []time.Time{day.AddDate(0, 0, -back)}, true
		}
		ahead := (int(p.Weekday) - int(start.Weekday()) + 7) % 7
		d0 := day.AddDate(0, 0, ahead)
		return []time.Time{d0, d0.AddDate(0, 0, 7)}, true
	case DateAbsolute:
		if p.Year != 0 {
			if p.Day > daysIn(p.Year, p.Month) {
				return nil, false
			}
			return []time.Time{time.Date(p.Year, p.Month, p.Day, 0, 0, 0, 0, start.Location())}, true
		}
		var out []time.Time
		for y := start.Year(); y <= start.Year()+maxYearScan; y++ {
			if p.Day <= daysIn(y, p.Month) {
				out = append(out, time.Date(y, p.Month, p.Day, 0, 0, 0, 0, start.Location()))
			}
		}
		return out, len(out) > 0
	}
	return nil, false
}

type clockReading struct {
	hour, min, sec int
}

func (t *DateTimeToken) candidateClocks() []clockReading {
	if t.Time == nil {
		return []clockReading{{0, 0, 0}}
	}
	p := t.Time
	switch p.Meridiem {
	case MeridiemAM:
		return []clockReading{{p.Hour % 12, p.Minute, p.Second}}
	case MeridiemPM:
		return []clockReading{{p.Hour%12 + 12, p.Minute, p.Second}}
	default:
		if p.Hour >= 1 && p.Hour <= 12 {
			return []clockReading{
				{p.Hour % 12, p.Minute, p.Second},
				{p.Hour%12 + 12, p.Minute, p.Second},
			}
		}
		return []clockReading{{p.Hour, p.Minute, p.Second}}
	}
}

func (t *DateTimeToken) String() string {
	var parts []string
	if t.Date != nil {
		parts = append(parts, t.Date.String())
	}
	if t.Time != nil {
		parts = append(parts, t.Time.String())
	}
	return strings.Join(parts, " ")
}

func (p *DatePart) String() string {
	switch p.Kind {
	case DateRelativeDay:
		switch p.Offset {
		case -1:
			return "yesterday"
		case 1:
			return "tomorrow"
		default:
			return "today"
		}
	case DateDayOfWeek:
		name := strings.ToLower(p.Weekday.String())
		if p.Relation != WeekdayUpcoming {
			return string(p.Relation) + " " + name
		}
		return name
	case DateAbsolute:
		name := strings.ToLower(p.Month.String())
		if p.Year != 0 {
			return fmt.Sprintf("%s %d, %d", name, p.Day, p.Year)
		}
		return fmt.Sprintf("%s %d", name, p.Day)
	}
	return ""
}

func (p *TimePart) String() string {
	suffix := ""
	switch p.Meridiem {
	case MeridiemAM:
		suffix = " am"
	case MeridiemPM:
		suffix = " pm"
	}
	if p.Second != 0 {
		return fmt.Sprintf("%d:%02d:%02d%s", p.Hour, p.Minute, p.Second, suffix)
	}
	if p.Minute != 0 || p.Meridiem == MeridiemNone {
		return fmt.Sprintf("%d:%02d%s", p.Hour, p.Minute, suffix)
	}
	return fmt.Sprintf("%d%s", p.Hour, suffix)
}

// daysIn is the number of days in the given month.
func daysIn(year int, m time.Month) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// maxDaysIn is the month length in the friendliest possible year.
func maxDaysIn(m time.Month) int {
	if m == time.February {
		return 29
	}
	return daysIn(2001, m)
}

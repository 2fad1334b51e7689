package parse

import "time"

var unitWords = map[string]string{
	"s": "second", "sec": "second", "secs": "second", "second": "second", "seconds": "second",
	"m": "minute", "min": "minute", "mins": "minute", "minute": "minute", "minutes": "minute",
	"h": "hour", "hr": "hour", "hrs": "hour", "hour": "hour", "hours": "hour",
	"d": "day", "day": "day", "days": "day",
	"w": "week", "wk": "week", "wks": "week", "week": "week", "weeks": "week",
	"mo": "month", "month": "month", "months": "month",
	"y": "year", "yr": "year", "yrs": "year", "year": "year", "years": "year",
}

var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

var weekdayWords = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "weds": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

var monthWords = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var ordinalWords = map[string]bool{
	"st": true, "nd": true, "rd": true, "th": true,
}

// Filler words tolerated between calendar parts ("tomorrow at noon",
// "5 o'clock on friday").
var noiseWords = map[string]bool{
	"at": true, "on": true, "the": true, "of": true, "this": true, "oclock": true,
}

// Parse reads a time pattern from input. Durations win ties, so a bare
// number is a count of minutes while anything with a colon is a clock
// time. Parse returns nil when nothing matches; it never panics on
// user text.
func Parse(input string) Token {
	items, ok := scan(input)
	if !ok || len(items) == 0 {
		return nil
	}
	if len(items) == 1 && items[0].kind == itemWord && items[0].text == "now" {
		return &DurationToken{}
	}
	if d, ok := parseDuration(items); ok {
		return d
	}
	if dt, ok := parseDateTime(items); ok {
		return dt
	}
	return nil
}

func parseDuration(items []item) (*DurationToken, bool) {
	c := &cursor{items: items}
	tok := &DurationToken{}

	// A leading minus reads the whole span as past.
	if it, ok := c.peek(); ok && (it.kind == itemDash || it.kind == itemPlus) {
		tok.Past = it.kind == itemDash
		c.pos++
	}
	c.acceptWord("in")

	// A bare number is a count of minutes.
	if len(items) == c.pos+1 && items[c.pos].kind == itemNumber {
		tok.Minutes = items[c.pos].num
		return tok, true
	}

	groups := 0
	lastUnit := ""
	for {
		c.skipConnectives()
		qty, half, ok := c.quantity()
		if !ok {
			break
		}
		unit, uok := c.unit()
		if !uok {
			// "an hour and a half": a trailing half inherits the unit
			// of the previous group.
			if half && qty == 0.5 && lastUnit != "" {
				unit = lastUnit
			} else {
				return nil, false
			}
		}
		tok.addUnit(unit, qty)
		lastUnit = unit
		groups++
	}
	if groups == 0 {
		return nil, false
	}

	if c.acceptWord("ago") {
		tok.Past = true
	} else if c.acceptWord("from") {
		if !c.acceptWord("now") {
			return nil, false
		}
	}
	if !c.done() {
		return nil, false
	}
	return tok, true
}

func (d *DurationToken) addUnit(unit string, v float64) {
	switch unit {
	case "year":
		d.Years += v
	case "month":
		d.Months += v
	case "week":
		d.Weeks += v
	case "day":
		d.Days += v
	case "hour":
		d.Hours += v
	case "minute":
		d.Minutes += v
	case "second":
		d.Seconds += v
	}
}

func (c *cursor) skipConnectives() {
	for {
		it, ok := c.peek()
		if !ok {
			return
		}
		if it.kind == itemComma || (it.kind == itemWord && it.text == "and") {
			c.pos++
			continue
		}
		return
	}
}

// quantity reads a numeric or spelled amount. half is true when the
// amount came from a "half" form and may stand without its own unit.
func (c *cursor) quantity() (float64, bool, bool) {
	it, ok := c.peek()
	if !ok {
		return 0, false, false
	}
	var v float64
	half := false
	switch {
	case it.kind == itemNumber:
		v = it.num
		c.pos++
	case it.kind == itemWord:
		if n, found := numberWords[it.text]; found {
			v = n
			c.pos++
		} else if it.text == "a" || it.text == "an" {
			v = 1
			c.pos++
			if c.acceptWord("half") {
				v = 0.5
				half = true
			}
		} else if it.text == "half" {
			c.pos++
			v = 0.5
			half = true
			if !c.acceptWord("an") {
				c.acceptWord("a")
			}
		} else {
			return 0, false, false
		}
	default:
		return 0, false, false
	}

	// "two and a half minutes"
	if !half && c.andAHalfBeforeUnit() {
		c.acceptWord("and")
		if !c.acceptWord("a") {
			c.acceptWord("an")
		}
		c.acceptWord("half")
		v += 0.5
	}
	return v, half, true
}

// andAHalfBeforeUnit looks ahead for "and a half" followed directly by
// a unit, which extends the current quantity rather than opening a new
// group.
func (c *cursor) andAHalfBeforeUnit() bool {
	i := c.pos
	match := func(s string) bool {
		if i < len(c.items) && c.items[i].kind == itemWord && c.items[i].text == s {
			i++
			return true
		}
		return false
	}
	if !match("and") {
		return false
	}
	if !match("a") {
		match("an")
	}
	if !match("half") {
		return false
	}
	if i >= len(c.items) || c.items[i].kind != itemWord {
		return false
	}
	_, isUnit := unitWords[c.items[i].text]
	return isUnit
}

func (c *cursor) unit() (string, bool) {
	it, ok := c.peek()
	if !ok || it.kind != itemWord {
		return "", false
	}
	u, found := unitWords[it.text]
	if !found {
		return "", false
	}
	c.pos++
	return u, true
}

// parseDateTime tries both orderings since date and time may appear
// either way around ("tomorrow 5pm", "5pm tomorrow").
func parseDateTime(items []item) (*DateTimeToken, bool) {
	if tok, ok := tryDateTime(items, true); ok {
		return tok, ok
	}
	return tryDateTime(items, false)
}

func tryDateTime(items []item, dateFirst bool) (*DateTimeToken, bool) {
	c := &cursor{items: items}
	tok := &DateTimeToken{}
	c.skipNoise()
	if dateFirst {
		if dp, ok := c.datePart(); ok {
			tok.Date = dp
		}
		c.skipNoise()
		if tp, ok := c.timePart(); ok {
			tok.Time = tp
		}
	} else {
		if tp, ok := c.timePart(); ok {
			tok.Time = tp
		}
		c.skipNoise()
		if dp, ok := c.datePart(); ok {
			tok.Date = dp
		}
	}
	c.skipNoise()
	if !c.done() || (tok.Date == nil && tok.Time == nil) {
		return nil, false
	}
	return tok, true
}

func (c *cursor) skipNoise() {
	for {
		it, ok := c.peek()
		if !ok {
			return
		}
		if it.kind == itemComma || (it.kind == itemWord && noiseWords[it.text]) {
			c.pos++
			continue
		}
		return
	}
}

func (c *cursor) timePart() (*TimePart, bool) {
	start := c.pos
	it, ok := c.peek()
	if !ok {
		return nil, false
	}

	if it.kind == itemWord {
		switch it.text {
		case "noon", "midday":
			c.pos++
			return &TimePart{Hour: 12, Meridiem: MeridiemPM}, true
		case "midnight":
			c.pos++
			return &TimePart{Hour: 12, Meridiem: MeridiemAM}, true
		}
		return nil, false
	}
	if !isIntItem(it) {
		return nil, false
	}

	p := &TimePart{Hour: int(it.num)}
	c.pos++

	if nxt, ok2 := c.peek(); ok2 && nxt.kind == itemColon {
		c.pos++
		mIt, ok3 := c.next()
		if !ok3 || !isIntItem(mIt) || mIt.num > 59 {
			c.pos = start
			return nil, false
		}
		p.Minute = int(mIt.num)
		if nxt2, ok4 := c.peek(); ok4 && nxt2.kind == itemColon {
			c.pos++
			sIt, ok5 := c.next()
			if !ok5 || !isIntItem(sIt) || sIt.num > 59 {
				c.pos = start
				return nil, false
			}
			p.Second = int(sIt.num)
		}
	}

	p.Meridiem = c.meridiem()

	if !p.valid() {
		c.pos = start
		return nil, false
	}
	return p, true
}

func (c *cursor) meridiem() Meridiem {
	it, ok := c.peek()
	if !ok || it.kind != itemWord {
		return MeridiemNone
	}
	switch it.text {
	case "am", "a":
		c.pos++
		return MeridiemAM
	case "pm", "p":
		c.pos++
		return MeridiemPM
	}
	return MeridiemNone
}

func (c *cursor) datePart() (*DatePart, bool) {
	start := c.pos
	it, ok := c.peek()
	if !ok {
		return nil, false
	}

	if it.kind == itemWord {
		switch it.text {
		case "today":
			c.pos++
			return &DatePart{Kind: DateRelativeDay, Offset: 0}, true
		case "tomorrow":
			c.pos++
			return &DatePart{Kind: DateRelativeDay, Offset: 1}, true
		case "yesterday":
			c.pos++
			return &DatePart{Kind: DateRelativeDay, Offset: -1}, true
		case "next", "last":
			rel := WeekdayNext
			if it.text == "last" {
				rel = WeekdayLast
			}
			c.pos++
			if wIt, ok2 := c.peek(); ok2 && wIt.kind == itemWord {
				if wd, found := weekdayWords[wIt.text]; found {
					c.pos++
					return &DatePart{Kind: DateDayOfWeek, Weekday: wd, Relation: rel}, true
				}
			}
			c.pos = start
			return nil, false
		}
		if wd, found := weekdayWords[it.text]; found {
			c.pos++
			return &DatePart{Kind: DateDayOfWeek, Weekday: wd}, true
		}
		if mo, found := monthWords[it.text]; found {
			// "december 25", "december 25th, 2024"
			c.pos++
			dayIt, ok2 := c.peek()
			if !ok2 || !isIntItem(dayIt) || dayIt.num < 1 || dayIt.num > 31 {
				c.pos = start
				return nil, false
			}
			c.pos++
			c.acceptOrdinal()
			p := &DatePart{Kind: DateAbsolute, Month: mo, Day: int(dayIt.num)}
			p.Year = c.acceptYear()
			return p, true
		}
		return nil, false
	}

	if isIntItem(it) {
		// "25 december 2024", "25th of december"
		if it.num >= 1 && it.num <= 31 {
			save := c.pos
			c.pos++
			c.acceptOrdinal()
			c.acceptWord("of")
			if mIt, ok2 := c.peek(); ok2 && mIt.kind == itemWord {
				if mo, found := monthWords[mIt.text]; found {
					c.pos++
					p := &DatePart{Kind: DateAbsolute, Month: mo, Day: int(it.num)}
					p.Year = c.acceptYear()
					return p, true
				}
			}
			c.pos = save
		}
		return c.numericDate()
	}
	return nil, false
}

func (c *cursor) acceptOrdinal() {
	if it, ok := c.peek(); ok && it.kind == itemWord && ordinalWords[it.text] {
		c.pos++
	}
}

// acceptYear reads an optional 4-digit year, tolerating a comma before
// it ("december 25, 2024").
func (c *cursor) acceptYear() int {
	save := c.pos
	if it, ok := c.peek(); ok && it.kind == itemComma {
		c.pos++
	}
	if it, ok := c.peek(); ok && isIntItem(it) && len(it.text) == 4 {
		c.pos++
		return int(it.num)
	}
	c.pos = save
	return 0
}

// numericDate reads "12/25", "12/25/2024", "12-25-24" or ISO
// "2024-12-25". Month-first order is assumed, but a leading value that
// can only be a day swaps with the month ("25/12").
func (c *cursor) numericDate() (*DatePart, bool) {
	start := c.pos
	first, _ := c.next()

	sepIt, ok := c.peek()
	if !ok || (sepIt.kind != itemSlash && sepIt.kind != itemDash) {
		c.pos = start
		return nil, false
	}
	sep := sepIt.kind
	c.pos++

	second, ok := c.next()
	if !ok || !isIntItem(second) {
		c.pos = start
		return nil, false
	}

	var third item
	haveThird := false
	if nIt, ok2 := c.peek(); ok2 && nIt.kind == sep {
		c.pos++
		tIt, ok3 := c.next()
		if !ok3 || !isIntItem(tIt) {
			c.pos = start
			return nil, false
		}
		third = tIt
		haveThird = true
	}

	if len(first.text) == 4 && haveThird {
		p := &DatePart{Kind: DateAbsolute, Year: int(first.num), Month: time.Month(second.num), Day: int(third.num)}
		if !monthDayInRange(p.Month, p.Day) {
			c.pos = start
			return nil, false
		}
		return p, true
	}

	m, d := int(first.num), int(second.num)
	if m > 12 && d <= 12 {
		m, d = d, m
	}
	p := &DatePart{Kind: DateAbsolute, Month: time.Month(m), Day: d}
	if haveThird {
		y := int(third.num)
		if y < 100 {
			y += 2000
		}
		p.Year = y
	}
	if !monthDayInRange(p.Month, p.Day) {
		c.pos = start
		return nil, false
	}
	return p, true
}

func monthDayInRange(m time.Month, d int) bool {
	return m >= time.January && m <= time.December && d >= 1 && d <= 31
}

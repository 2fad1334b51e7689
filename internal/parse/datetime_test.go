package parse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday morning, a fixed point for resolution tests.
var anchor = time.Date(2025, time.March, 11, 6, 30, 0, 0, time.UTC)

func resolve(t *testing.T, input string, start time.Time) (time.Time, bool) {
	t.Helper()
	tok := Parse(input)
	require.NotNil(t, tok, "input %q should parse", input)
	return tok.EndTimeAfter(start)
}

func TestDateTimeResolution(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		// Clock times pick the next matching instant.
		{"5pm", time.Date(2025, time.March, 11, 17, 0, 0, 0, time.UTC)},
		{"5am", time.Date(2025, time.March, 12, 5, 0, 0, 0, time.UTC)},
		{"at 5", time.Date(2025, time.March, 11, 17, 0, 0, 0, time.UTC)},
		{"6:30", time.Date(2025, time.March, 11, 18, 30, 0, 0, time.UTC)},
		{"17:30", time.Date(2025, time.March, 11, 17, 30, 0, 0, time.UTC)},
		{"noon", time.Date(2025, time.March, 11, 12, 0, 0, 0, time.UTC)},
		{"midnight", time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)},
		{"12am", time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)},
		{"12pm", time.Date(2025, time.March, 11, 12, 0, 0, 0, time.UTC)},

		// Date-only patterns land on midnight.
		{"tomorrow", time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC)},
		{"friday", time.Date(2025, time.March, 14, 0, 0, 0, 0, time.UTC)},
		{"tuesday", time.Date(2025, time.March, 18, 0, 0, 0, 0, time.UTC)},
		{"next tuesday", time.Date(2025, time.March, 18, 0, 0, 0, 0, time.UTC)},

		// A weekday with a time still to come today resolves to today.
		{"tuesday 7am", time.Date(2025, time.March, 11, 7, 0, 0, 0, time.UTC)},
		{"tuesday 6am", time.Date(2025, time.March, 18, 6, 0, 0, 0, time.UTC)},

		// Month and day without a year scan forward.
		{"december 25", time.Date(2025, time.December, 25, 0, 0, 0, 0, time.UTC)},
		{"january 5", time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)},
		{"february 29", time.Date(2028, time.February, 29, 0, 0, 0, 0, time.UTC)},

		{"tomorrow 5pm", time.Date(2025, time.March, 12, 17, 0, 0, 0, time.UTC)},
		{"december 25 at noon", time.Date(2025, time.December, 25, 12, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			end, ok := resolve(t, tc.in, anchor)
			require.True(t, ok)
			assert.Equal(t, tc.want, end)
		})
	}
}

func TestDateTimeResolutionPast(t *testing.T) {
	// Patterns whose every candidate lies behind the start still resolve,
	// to the earliest candidate, so callers can report how stale they are.
	cases := []struct {
		in   string
		want time.Time
	}{
		{"today", time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)},
		{"yesterday", time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)},
		{"yesterday 5pm", time.Date(2025, time.March, 10, 17, 0, 0, 0, time.UTC)},
		{"last tuesday", time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC)},
		{"last friday", time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)},
		{"12/25/2020", time.Date(2020, time.December, 25, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			end, ok := resolve(t, tc.in, anchor)
			require.True(t, ok)
			assert.Equal(t, tc.want, end)
			assert.True(t, end.Before(anchor))
		})
	}
}

func TestDateTimeNoCandidate(t *testing.T) {
	_, ok := resolve(t, "february 30", anchor)
	assert.False(t, ok)
}

func TestDurationEndTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"10 minutes", start.Add(10 * time.Minute)},
		{"1.5h", start.Add(90 * time.Minute)},
		{"90s", start.Add(90 * time.Second)},
		{"2 days", start.AddDate(0, 0, 2)},
		{"3 weeks", start.AddDate(0, 0, 21)},
		{"2 hours ago", start.Add(-2 * time.Hour)},
		{"now", start},
		{"1 month", time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)},
		{"1 year", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)},
		// Half a month counts as fifteen days.
		{"1.5 months", time.Date(2025, time.February, 16, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			end, ok := resolve(t, tc.in, start)
			require.True(t, ok)
			assert.Equal(t, tc.want, end)
		})
	}
}

func TestDurationMonthClamp(t *testing.T) {
	// Whole months land on the same day of the target month, clamped to
	// its last day when the source day does not exist there.
	cases := []struct {
		start time.Time
		in    string
		want  time.Time
	}{
		{
			time.Date(2025, time.January, 31, 10, 0, 0, 0, time.UTC),
			"1 month",
			time.Date(2025, time.February, 28, 10, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
			"1 month",
			time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
			"2 months",
			time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC),
			"1 year",
			time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
			"1 month ago",
			time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range cases {
		t.Run(tc.in+" from "+tc.start.Format("2006-01-02"), func(t *testing.T) {
			end, ok := resolve(t, tc.in, tc.start)
			require.True(t, ok)
			assert.Equal(t, tc.want, end)
		})
	}
}

func TestDurationFixedLength(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"1h 30m", 90 * time.Minute},
		{"1 day", 24 * time.Hour},
		{"1 week", 7 * 24 * time.Hour},
		{"1 month", 30 * 24 * time.Hour},
		{"1 year", 365 * 24 * time.Hour},
		{"10 minutes ago", -10 * time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			tok := Parse(tc.in)
			require.NotNil(t, tok)
			d, ok := tok.(*DurationToken)
			require.True(t, ok)
			assert.Equal(t, tc.want, d.Duration())
		})
	}
}

func TestTokenStrings(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"10m", "10 minutes"},
		{"1h", "1 hour"},
		{"1.5h", "1.5 hours"},
		{"1h 30m 10s", "1 hour 30 minutes 10 seconds"},
		{"half an hour", "0.5 hours"},
		{"10 minutes ago", "10 minutes ago"},
		{"now", "0 seconds"},
		{"tomorrow", "tomorrow"},
		{"next fri", "next friday"},
		{"dec 25 2024", "december 25, 2024"},
		{"25th of december", "december 25"},
		{"5 pm", "5 pm"},
		{"5:30pm", "5:30 pm"},
		{"17:30", "17:30"},
		{"noon", "12 pm"},
		{"tomorrow at 5pm", "tomorrow 5 pm"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			tok := Parse(tc.in)
			require.NotNil(t, tok)
			assert.Equal(t, tc.want, tok.String())
		})
	}
}

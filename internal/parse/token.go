package parse

import "time"

// Token is a parsed time pattern: either a relative span
// (DurationToken) or a calendar pattern (DateTimeToken).
type Token interface {
	// Valid reports whether the pattern can in principle resolve to an
	// instant. February 30 fails here; February 29 without a year does
	// not, because a leap year is always ahead.
	Valid() bool

	// EndTimeAfter resolves the pattern against start. For recurring
	// patterns the result is the earliest matching instant strictly
	// after start. ok is false when no instant exists at all.
	EndTimeAfter(start time.Time) (end time.Time, ok bool)

	// String renders the canonical text of the pattern. Parsing the
	// result yields an equivalent token.
	String() string
}

package timer

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sandglass/internal/parse"
)

// ErrUnrecognizedInput is returned when text does not match any
// supported time pattern.
var ErrUnrecognizedInput = errors.New("unrecognized time input")

// StartType says which family of pattern a TimerStart came from.
type StartType string

const (
	StartTypeDuration StartType = "duration"
	StartTypeDateTime StartType = "datetime"
)

// TimerStart records how a timer's end instant was chosen: the text the
// user typed and the token it parsed to. Keeping the token lets loops
// and restarts recompute a fresh end from a new start instant.
type TimerStart struct {
	Input string
	Token parse.Token
}

// NewStart parses input into a TimerStart. It fails when the text does
// not match any supported pattern or names an impossible date.
func NewStart(input string) (*TimerStart, error) {
	tok := parse.Parse(input)
	if tok == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnrecognizedInput, input)
	}
	if !tok.Valid() {
		return nil, fmt.Errorf("%w: %q names no real moment", ErrUnrecognizedInput, input)
	}
	return &TimerStart{Input: input, Token: tok}, nil
}

// Type reports the pattern family of the underlying token.
func (s *TimerStart) Type() StartType {
	if _, ok := s.Token.(*parse.DurationToken); ok {
		return StartTypeDuration
	}
	return StartTypeDateTime
}

// Valid reports whether the token still holds together. Stored starts
// pass through here on load.
func (s *TimerStart) Valid() bool {
	return s != nil && s.Token != nil && s.Token.Valid()
}

// IsCurrent reports whether the start resolves to now or later. An
// "ago" duration or an absolute date behind the clock is not current.
func (s *TimerStart) IsCurrent(now time.Time) bool {
	end, ok := s.Token.EndTimeAfter(now)
	return ok && !end.Before(now)
}

// EndTimeAfter resolves the end instant for a countdown beginning at
// start.
func (s *TimerStart) EndTimeAfter(start time.Time) (time.Time, bool) {
	return s.Token.EndTimeAfter(start)
}

// SupportsRestart reports whether starting over from now is meaningful.
// Calendar targets resolve to the same wall-clock instant no matter
// when the countdown begins, so only durations qualify.
func (s *TimerStart) SupportsRestart() bool {
	_, ok := s.Token.(*parse.DurationToken)
	return ok
}

// SupportsLooping reports whether the timer can start a fresh iteration
// after expiry. Any duration qualifies; one without positive length
// never produces a next iteration, so looping it is a no-op.
func (s *TimerStart) SupportsLooping() bool {
	_, ok := s.Token.(*parse.DurationToken)
	return ok
}

func (s *TimerStart) String() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.String()
}

type startJSON struct {
	Kind  StartType       `json:"kind"`
	Input string          `json:"input"`
	Token json.RawMessage `json:"token"`
}

// MarshalJSON tags the token with its concrete kind so UnmarshalJSON
// can pick the right type back.
func (s *TimerStart) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(s.Token)
	if err != nil {
		return nil, err
	}
	return json.Marshal(startJSON{Kind: s.Type(), Input: s.Input, Token: raw})
}

func (s *TimerStart) UnmarshalJSON(data []byte) error {
	var in startJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Input = in.Input
	switch in.Kind {
	case StartTypeDuration:
		tok := &parse.DurationToken{}
		if err := json.Unmarshal(in.Token, tok); err != nil {
			return err
		}
		s.Token = tok
	case StartTypeDateTime:
		tok := &parse.DateTimeToken{}
		if err := json.Unmarshal(in.Token, tok); err != nil {
			return err
		}
		s.Token = tok
	default:
		return fmt.Errorf("unknown start kind %q", in.Kind)
	}
	if !s.Token.Valid() {
		return fmt.Errorf("stored start %q is invalid", s.Input)
	}
	return nil
}

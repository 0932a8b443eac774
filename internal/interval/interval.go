package interval

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const MinutesPerDay = 24 * 60

var (
	ErrInvalidTime     = errors.New("time must be HH:MM between 00:00 and 23:59")
	ErrInvalidInterval = errors.New("interval end must be after start")
	ErrMissingBound    = errors.New("interval requires both start and end")
)

// Minute is a wall-clock time of day as minutes since midnight (0-1439).
type Minute int

// NewMinute builds a Minute from hour and minute components.
func NewMinute(hour, minute int) (Minute, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, ErrInvalidTime
	}
	return Minute(hour*60 + minute), nil
}

// ParseMinute parses "HH:MM". A single-digit hour ("9:30") is accepted.
func ParseMinute(s string) (Minute, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return NewMinute(h, m)
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (m Minute) Valid() bool {
	return m >= 0 && m < MinutesPerDay
}

func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m Minute) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, ErrInvalidTime
	}
	return []byte(m.String()), nil
}

func (m *Minute) UnmarshalText(b []byte) error {
	v, err := ParseMinute(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Interval is a half-open time-of-day range [Start, End).
type Interval struct {
	Start Minute `json:"start"`
	End   Minute `json:"end"`
}

// UnmarshalJSON requires both bounds so a missing key is not read as 00:00.
func (iv *Interval) UnmarshalJSON(b []byte) error {
	var raw struct {
		Start *Minute `json:"start"`
		End   *Minute `json:"end"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw.Start == nil || raw.End == nil {
		return ErrMissingBound
	}
	*iv = Interval{Start: *raw.Start, End: *raw.End}
	return nil
}

// New returns a validated interval.
func New(start, end Minute) (Interval, error) {
	iv := Interval{Start: start, End: end}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Parse builds an interval from two "HH:MM" strings.
func Parse(start, end string) (Interval, error) {
	s, err := ParseMinute(start)
	if err != nil {
		return Interval{}, fmt.Errorf("start: %w", err)
	}
	e, err := ParseMinute(end)
	if err != nil {
		return Interval{}, fmt.Errorf("end: %w", err)
	}
	return New(s, e)
}

func (iv Interval) Validate() error {
	if !iv.Start.Valid() || !iv.End.Valid() {
		return ErrInvalidTime
	}
	if iv.End <= iv.Start {
		return ErrInvalidInterval
	}
	return nil
}

// Duration returns the length of the interval in minutes.
func (iv Interval) Duration() (int, error) {
	if iv.End <= iv.Start {
		return 0, ErrInvalidInterval
	}
	return int(iv.End - iv.Start), nil
}

func (iv Interval) String() string {
	return iv.Start.String() + "-" + iv.End.String()
}

// Overlaps reports whether two half-open intervals intersect.
// Touching endpoints are adjacent, not overlapping.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

package calendar

import (
	"fmt"
	"strconv"
	"strings"

	"quantcal/internal/domain"
)

const secondsPerDay = 86400

// Clock is a wall-clock time of day. NextDay is set only for the midnight
// that closes a day (86400 seconds), so callers can tell it apart from the
// midnight that opens one.
type Clock struct {
	Hour, Minute, Second int
	NextDay              bool
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// SecondsToClock converts seconds since local midnight, 0 <= s <= 86400.
func SecondsToClock(s int) (Clock, error) {
	if s < 0 || s > secondsPerDay {
		return Clock{}, fmt.Errorf("seconds %d out of range [0, %d]", s, secondsPerDay)
	}
	if s == secondsPerDay {
		return Clock{NextDay: true}, nil
	}
	return Clock{Hour: s / 3600, Minute: s / 60 % 60, Second: s % 60}, nil
}

// ClockToSeconds is the inverse of SecondsToClock.
func ClockToSeconds(c Clock) (int, error) {
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 || c.Second < 0 || c.Second > 59 {
		return 0, fmt.Errorf("clock %s out of range", c)
	}
	s := c.Hour*3600 + c.Minute*60 + c.Second
	if c.NextDay {
		if s != 0 {
			return 0, fmt.Errorf("clock %s: only midnight may end a day", c)
		}
		return secondsPerDay, nil
	}
	return s, nil
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into seconds since midnight.
// Hours up to 47 are accepted so that feed notation such as "26:30:00"
// (02:30 on the following day) can be read; the result is then above 86400.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	var v [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock %q", s)
		}
		v[i] = n
	}
	if v[0] > 47 || v[1] > 59 || v[2] > 59 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return v[0]*3600 + v[1]*60 + v[2], nil
}

// ParseSession parses "21:00-02:30" (or "21:00:00-26:30:00") into a session.
// Times past midnight are wrapped, except a close of exactly 24:00.
func ParseSession(s string) (domain.Session, error) {
	open, closeStr, ok := strings.Cut(s, "-")
	if !ok {
		return domain.Session{}, fmt.Errorf("invalid session %q", s)
	}
	o, err := ParseClock(open)
	if err != nil {
		return domain.Session{}, err
	}
	c, err := ParseClock(closeStr)
	if err != nil {
		return domain.Session{}, err
	}
	if o >= secondsPerDay {
		o -= secondsPerDay
	}
	if c > secondsPerDay {
		c -= secondsPerDay
	}
	return domain.Session{Open: o, Close: c}, nil
}

// normalizeSeconds maps an offset on the trading-day timeline back to a time
// of day in [0, 86400).
func normalizeSeconds(v int) int {
	v %= secondsPerDay
	if v < 0 {
		v += secondsPerDay
	}
	return v
}

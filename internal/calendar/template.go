package calendar

import (
	"fmt"
	"strings"

	"quantcal/internal/domain"
)

// span is a session on the trading-day timeline: seconds relative to
// midnight of the trading-day label. Values may be negative when the trading
// day opens the evening before (night sessions).
type span struct {
	open, close int
}

// jump is a break between two sessions.
type jump struct {
	at, dur int
}

// template is a session list linearized onto one trading day.
type template struct {
	raw      []domain.Session
	sessions []span
	jumps    []jump
	start    int
	end      int
	// night is the close of the last session that opens before the label's
	// midnight. Valid only when hasNight is set.
	night    int
	hasNight bool
}

// linearize validates raw sessions and places them on the timeline of a
// trading day that begins at offset seconds from the label's midnight.
func linearize(raw []domain.Session, offset int) (*template, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no sessions", ErrInvalidSession)
	}
	t := &template{
		raw:      append([]domain.Session(nil), raw...),
		sessions: make([]span, 0, len(raw)),
	}
	for i, s := range raw {
		if s.Open < 0 || s.Open >= secondsPerDay || s.Close < 0 || s.Close > secondsPerDay {
			return nil, fmt.Errorf("%w: session %d (%d, %d) out of day range", ErrInvalidSession, i, s.Open, s.Close)
		}
		if s.Open == s.Close {
			return nil, fmt.Errorf("%w: session %d is empty", ErrInvalidSession, i)
		}
		o := s.Open
		for o < offset {
			o += secondsPerDay
		}
		for o >= offset+secondsPerDay {
			o -= secondsPerDay
		}
		c := s.Close + (o - s.Open)
		for c <= o {
			c += secondsPerDay
		}
		if c > offset+secondsPerDay {
			return nil, fmt.Errorf("%w: session %s runs past the end of the trading day", ErrInvalidSession, s)
		}
		if n := len(t.sessions); n > 0 && o < t.sessions[n-1].close {
			prev := raw[i-1]
			return nil, fmt.Errorf("%w: session %s overlaps or precedes %s", ErrInvalidSession, s, prev)
		}
		t.sessions = append(t.sessions, span{open: o, close: c})
	}

	t.start = t.sessions[0].open
	t.end = t.sessions[len(t.sessions)-1].close
	for i := 1; i < len(t.sessions); i++ {
		if gap := t.sessions[i].open - t.sessions[i-1].close; gap > 0 {
			t.jumps = append(t.jumps, jump{at: t.sessions[i-1].close, dur: gap})
		}
	}
	for _, s := range t.sessions {
		if s.open < 0 {
			t.night = s.close
			t.hasNight = true
		}
	}
	return t, nil
}

// withoutNight returns the template with every session that opens before the
// label's midnight removed, or nil when nothing would remain.
func (t *template) withoutNight(offset int) (*template, error) {
	var raw []domain.Session
	for i, s := range t.sessions {
		if s.open >= 0 {
			raw = append(raw, t.raw[i])
		}
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return linearize(raw, offset)
}

// merged is the day view: one span from the first open to the last close.
func (t *template) merged() []span {
	return []span{{open: t.start, close: t.end}}
}

// nextOpen returns the open of the session that follows a bar ending at v.
// A bar that ends on a session close is followed by the next session's open.
func (t *template) nextOpen(v int) int {
	for i := 0; i+1 < len(t.sessions); i++ {
		if t.sessions[i].close == v {
			return t.sessions[i+1].open
		}
	}
	return v
}

// signature identifies templates with the same linearized sessions.
func signature(spans []span) string {
	var b strings.Builder
	for _, s := range spans {
		fmt.Fprintf(&b, "%d-%d;", s.open, s.close)
	}
	return b.String()
}

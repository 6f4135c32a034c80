package calendar

import (
	"fmt"
	"sort"
	"time"

	"quantcal/internal/domain"
)

// applySpecialSessions installs configured per-day overrides. At most one
// override may exist per trading day.
func (c *Calendar) applySpecialSessions(specials []domain.SpecialSession) error {
	for _, ss := range specials {
		day := domain.DateOf(ss.Date)
		if _, dup := c.special[day]; dup {
			return fmt.Errorf("%w: two special sessions on %s", ErrInvalidConfig, day.Format(time.DateOnly))
		}
		tmpl, err := linearize(ss.Sessions, c.offset)
		if err != nil {
			return fmt.Errorf("special session %s: %w", day.Format(time.DateOnly), err)
		}
		var view []span
		if len(ss.DaySessions) > 0 {
			dt, err := linearize(ss.DaySessions, c.offset)
			if err != nil {
				return fmt.Errorf("special session %s day view: %w", day.Format(time.DateOnly), err)
			}
			view = dt.sessions
		}
		c.special[day] = specialDay{
			plan: c.plan(tmpl, view),
			record: domain.SpecialSession{
				Date:        day,
				DaySessions: append([]domain.Session(nil), ss.DaySessions...),
				Sessions:    append([]domain.Session(nil), ss.Sessions...),
			},
		}
	}
	return nil
}

// deriveHolidaySessions removes the night sessions of every trading day whose
// previous evening falls before a holiday or closure. The night of such a day
// would open on the last trading day before the break and run into the
// holiday, so the exchange skips it: the earlier day ends at its afternoon
// close and the later day opens in the morning. Configured overrides win.
// It returns the number of overrides added.
func (c *Calendar) deriveHolidaySessions() (int, error) {
	if !c.base.tmpl.hasNight {
		return 0, nil
	}
	nightless, err := c.base.tmpl.withoutNight(c.offset)
	if err != nil {
		return 0, err
	}
	if nightless == nil {
		return 0, fmt.Errorf("%w: every session opens before midnight", ErrInvalidSession)
	}
	plan := c.plan(nightless, nil)

	n := 0
	days := c.days.TradeDaysGTE(time.Time{})
	for i := 1; i < len(days); i++ {
		day, prev := days[i], days[i-1]
		if _, ok := c.special[day]; ok {
			continue
		}
		st, ok := c.days.Status(prev.AddDate(0, 0, 1))
		if !ok || (st != domain.DayHoliday && st != domain.DayClosed) {
			continue
		}
		c.special[day] = specialDay{
			plan:    plan,
			record:  domain.SpecialSession{Date: day, Sessions: nightless.raw},
			derived: true,
		}
		n++
	}
	return n, nil
}

// SpecialSession returns the override for a trading day, configured or
// derived.
func (c *Calendar) SpecialSession(day time.Time) (domain.SpecialSession, bool) {
	sd, ok := c.special[domain.DateOf(day)]
	if !ok {
		return domain.SpecialSession{}, false
	}
	return copySpecial(sd.record), true
}

// SpecialSessions returns every override in date order.
func (c *Calendar) SpecialSessions() []domain.SpecialSession {
	out := make([]domain.SpecialSession, 0, len(c.special))
	for _, sd := range c.special {
		out = append(out, copySpecial(sd.record))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func copySpecial(ss domain.SpecialSession) domain.SpecialSession {
	ss.DaySessions = append([]domain.Session(nil), ss.DaySessions...)
	ss.Sessions = append([]domain.Session(nil), ss.Sessions...)
	return ss
}

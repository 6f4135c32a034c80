package calendar

import (
	"quantcal/internal/domain"
)

// barSpan is one bar on the trading-day timeline.
type barSpan struct {
	start, end int
}

// rightBoundaries advances a cursor from the first open in steps of interval,
// jumping over every break the cursor has moved past, and records each
// boundary up to the last close. The last close always closes the final bar.
func rightBoundaries(t *template, interval int) []int {
	var out []int
	jumps := t.jumps
	cursor := t.start
	for {
		cursor += interval
		for len(jumps) > 0 && cursor > jumps[0].at {
			cursor += jumps[0].dur
			jumps = jumps[1:]
		}
		if cursor > t.end {
			break
		}
		out = append(out, cursor)
	}
	if len(out) == 0 || out[len(out)-1] < t.end {
		out = append(out, t.end)
	}
	return out
}

// buildBars pairs every right boundary with the start of its bar. A bar that
// follows a boundary sitting on a break starts at the next session's open.
func buildBars(t *template, interval int) []barSpan {
	ends := rightBoundaries(t, interval)
	bars := make([]barSpan, len(ends))
	start := t.start
	for i, e := range ends {
		bars[i] = barSpan{start: start, end: e}
		start = t.nextOpen(e)
	}
	return bars
}

// Grid is the precomputed list of bar boundaries of one interval for one
// session template. Offsets are seconds relative to the trading-day label's
// midnight and increase strictly; night sessions give negative offsets.
type Grid struct {
	Interval domain.Interval
	Side     domain.Side
	Offsets  []int
}

func newGrid(bars []barSpan, interval domain.Interval, side domain.Side) Grid {
	g := Grid{Interval: interval, Side: side, Offsets: make([]int, len(bars))}
	for i, b := range bars {
		if side == domain.SideLeft {
			g.Offsets[i] = b.start
		} else {
			g.Offsets[i] = b.end
		}
	}
	return g
}

// Clocks renders every boundary as a time of day, normalized into
// [0, 86400). A boundary at the midnight that ends the trading day is
// reported with NextDay set.
func (g Grid) Clocks() []Clock {
	out := make([]Clock, len(g.Offsets))
	for i, v := range g.Offsets {
		if v == secondsPerDay {
			out[i] = Clock{NextDay: true}
			continue
		}
		c, _ := SecondsToClock(normalizeSeconds(v))
		out[i] = c
	}
	return out
}

// Strings is Clocks formatted as "15:04:05".
func (g Grid) Strings() []string {
	clocks := g.Clocks()
	out := make([]string, len(clocks))
	for i, c := range clocks {
		out[i] = c.String()
	}
	return out
}

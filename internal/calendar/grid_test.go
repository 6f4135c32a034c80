package calendar

import (
	"errors"
	"reflect"
	"testing"

	"quantcal/internal/domain"
)

func TestLinearizeNightSessions(t *testing.T) {
	tmpl, err := linearize(agSessions, -10800)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	if tmpl.start != -10800 || tmpl.end != 54000 {
		t.Errorf("start, end = %d, %d, want -10800, 54000", tmpl.start, tmpl.end)
	}
	want := []span{{-10800, 9000}, {32400, 36900}, {37800, 41400}, {48600, 54000}}
	if !reflect.DeepEqual(tmpl.sessions, want) {
		t.Errorf("sessions = %v, want %v", tmpl.sessions, want)
	}
	wantJumps := []jump{{9000, 23400}, {36900, 900}, {41400, 7200}}
	if !reflect.DeepEqual(tmpl.jumps, wantJumps) {
		t.Errorf("jumps = %v, want %v", tmpl.jumps, wantJumps)
	}
	if !tmpl.hasNight || tmpl.night != 9000 {
		t.Errorf("night = %d (%v), want 9000", tmpl.night, tmpl.hasNight)
	}
}

func TestLinearizeRejectsBadTemplates(t *testing.T) {
	tests := []struct {
		name     string
		sessions []domain.Session
	}{
		{"empty", nil},
		{"zero length", []domain.Session{{Open: hm(9, 0), Close: hm(9, 0)}}},
		{"overlap", []domain.Session{{Open: hm(9, 0), Close: hm(11, 0)}, {Open: hm(10, 0), Close: hm(12, 0)}}},
		{"unsorted", []domain.Session{{Open: hm(13, 0), Close: hm(15, 0)}, {Open: hm(9, 30), Close: hm(11, 30)}}},
		{"out of range", []domain.Session{{Open: -60, Close: hm(1, 0)}}},
		{"past day end", []domain.Session{{Open: hm(20, 0), Close: hm(1, 0)}}},
	}
	for _, tt := range tests {
		_, err := linearize(tt.sessions, 0)
		if !errors.Is(err, ErrInvalidSession) {
			t.Errorf("%s: err = %v, want ErrInvalidSession", tt.name, err)
		}
	}
}

func gridStrings(t *testing.T, sessions []domain.Session, offset int, interval domain.Interval, side domain.Side) []string {
	t.Helper()
	tmpl, err := linearize(sessions, offset)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	return newGrid(buildBars(tmpl, int(interval)), interval, side).Strings()
}

func TestGridJumpsBreaks(t *testing.T) {
	tests := []struct {
		name     string
		sessions []domain.Session
		offset   int
		interval domain.Interval
		want     []string
	}{
		{"stock 1H", ifSessions, 0, domain.Hour,
			[]string{"10:30:00", "11:30:00", "14:00:00", "15:00:00"}},
		{"stock 2H", ifSessions, 0, 2 * domain.Hour,
			[]string{"11:30:00", "15:00:00"}},
		{"silver 1H", agSessions, -10800, domain.Hour,
			[]string{"22:00:00", "23:00:00", "00:00:00", "01:00:00", "02:00:00", "09:30:00", "10:45:00", "13:45:00", "14:45:00", "15:00:00"}},
		{"silver 2H", agSessions, -10800, 2 * domain.Hour,
			[]string{"23:00:00", "01:00:00", "09:30:00", "13:45:00", "15:00:00"}},
		{"short night 3H", []domain.Session{
			{Open: hm(21, 0), Close: hm(23, 0)},
			{Open: hm(9, 0), Close: hm(10, 15)},
			{Open: hm(10, 30), Close: hm(11, 30)},
			{Open: hm(13, 30), Close: hm(15, 0)},
		}, -10800, 3 * domain.Hour,
			[]string{"10:00:00", "15:00:00"}},
		{"stock 4H single bar", ifSessions, 0, 4 * domain.Hour,
			[]string{"15:00:00"}},
	}
	for _, tt := range tests {
		got := gridStrings(t, tt.sessions, tt.offset, tt.interval, domain.SideRight)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: grid = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGridLeftSide(t *testing.T) {
	got := gridStrings(t, ifSessions, 0, domain.Hour, domain.SideLeft)
	want := []string{"09:30:00", "10:30:00", "13:00:00", "14:00:00"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("left grid = %v, want %v", got, want)
	}
}

func TestGridFullDay(t *testing.T) {
	tmpl, err := linearize([]domain.Session{{Open: 0, Close: 86400}}, 0)
	if err != nil {
		t.Fatalf("linearize: %v", err)
	}
	g := newGrid(buildBars(tmpl, 4*3600), 4*domain.Hour, domain.SideRight)
	want := []int{14400, 28800, 43200, 57600, 72000, 86400}
	if !reflect.DeepEqual(g.Offsets, want) {
		t.Errorf("offsets = %v, want %v", g.Offsets, want)
	}
	clocks := g.Clocks()
	if last := clocks[len(clocks)-1]; !last.NextDay || last.String() != "00:00:00" {
		t.Errorf("last clock = %+v, want next-day midnight", last)
	}
}

// Every grid ends at the last close, increases strictly and never puts a
// boundary inside a break.
func TestGridProperties(t *testing.T) {
	templates := []struct {
		sessions []domain.Session
		offset   int
	}{
		{ifSessions, 0},
		{agSessions, -10800},
		{[]domain.Session{{Open: 0, Close: 86400}}, 0},
		{[]domain.Session{{Open: hm(9, 30), Close: hm(16, 0)}}, 0},
	}
	for _, tc := range templates {
		tmpl, err := linearize(tc.sessions, tc.offset)
		if err != nil {
			t.Fatalf("linearize: %v", err)
		}
		for iv := 60; iv <= 4*3600; iv += 60 {
			bars := buildBars(tmpl, iv)
			if bars[len(bars)-1].end != tmpl.end {
				t.Fatalf("%v / %d: last boundary %d, want %d", tc.sessions, iv, bars[len(bars)-1].end, tmpl.end)
			}
			for i, b := range bars {
				if i > 0 && b.end <= bars[i-1].end {
					t.Fatalf("%v / %d: boundaries not increasing at %d", tc.sessions, iv, i)
				}
				if b.start >= b.end {
					t.Fatalf("%v / %d: bar %d starts at %d after its end %d", tc.sessions, iv, i, b.start, b.end)
				}
				if !insideSession(tmpl, b.end, false) {
					t.Fatalf("%v / %d: boundary %d falls in a break", tc.sessions, iv, b.end)
				}
				if !insideSession(tmpl, b.start, true) {
					t.Fatalf("%v / %d: bar start %d falls in a break", tc.sessions, iv, b.start)
				}
			}
		}
	}
}

func insideSession(tmpl *template, v int, start bool) bool {
	for _, s := range tmpl.sessions {
		if start && s.open <= v && v < s.close {
			return true
		}
		if !start && s.open < v && v <= s.close {
			return true
		}
	}
	return false
}

package calendar

import (
	"testing"

	"quantcal/internal/domain"
)

func TestSecondsToClock(t *testing.T) {
	c, err := SecondsToClock(86400)
	if err != nil {
		t.Fatalf("SecondsToClock(86400): %v", err)
	}
	if !c.NextDay || c.String() != "00:00:00" {
		t.Errorf("SecondsToClock(86400) = %+v, want next-day midnight", c)
	}

	c, _ = SecondsToClock(0)
	if c.NextDay {
		t.Error("SecondsToClock(0) should be the midnight that opens the day")
	}

	for _, s := range []int{0, 1, 34200, 54000, 86399} {
		c, err := SecondsToClock(s)
		if err != nil {
			t.Fatalf("SecondsToClock(%d): %v", s, err)
		}
		got, err := ClockToSeconds(c)
		if err != nil || got != s {
			t.Errorf("round trip %d = %d, %v", s, got, err)
		}
	}

	if got, _ := ClockToSeconds(Clock{NextDay: true}); got != 86400 {
		t.Errorf("ClockToSeconds(next-day midnight) = %d, want 86400", got)
	}
	if _, err := SecondsToClock(-1); err == nil {
		t.Error("SecondsToClock(-1) expected error")
	}
	if _, err := SecondsToClock(86401); err == nil {
		t.Error("SecondsToClock(86401) expected error")
	}
	if _, err := ClockToSeconds(Clock{Hour: 24}); err == nil {
		t.Error("ClockToSeconds(24:00) expected error")
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"09:30", 34200},
		{"15:00:00", 54000},
		{"26:30:00", 95400},
		{"0:0", 0},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseClock(%q) = %d, %v, want %d", tt.in, got, err, tt.want)
		}
	}
	for _, bad := range []string{"", "9", "48:00", "10:60", "a:b", "1:2:3:4"} {
		if _, err := ParseClock(bad); err == nil {
			t.Errorf("ParseClock(%q) expected error", bad)
		}
	}
}

func TestParseSession(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Session
	}{
		{"09:30-11:30", domain.Session{Open: 34200, Close: 41400}},
		{"21:00-02:30", domain.Session{Open: 75600, Close: 9000}},
		{"21:00:00-26:30:00", domain.Session{Open: 75600, Close: 9000}},
		{"00:00-24:00", domain.Session{Open: 0, Close: 86400}},
	}
	for _, tt := range tests {
		got, err := ParseSession(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseSession(%q) = %+v, %v, want %+v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseSession("09:30"); err == nil {
		t.Error("ParseSession without a close expected error")
	}
}

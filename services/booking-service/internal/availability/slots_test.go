package availability

import (
	"testing"
	"time"
)

func TestAvailableSlots_Basic(t *testing.T) {
	windows := []Interval{{Start: 9 * 60, End: 10 * 60}}
	busy := []Interval{{Start: 9*60 + 15, End: 9*60 + 45}}

	slots := AvailableSlots(windows, 15, 15, busy, 0)
	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %v", slots)
	}
	if slots[0] != 9*60 || slots[1] != 9*60+45 {
		t.Fatalf("expected 09:00 and 09:45, got %s and %s", FormatClock(slots[0]), FormatClock(slots[1]))
	}
}

func TestAvailableSlots_SkipsPast(t *testing.T) {
	windows := []Interval{{Start: 9 * 60, End: 10 * 60}}
	slots := AvailableSlots(windows, 15, 15, nil, 9*60+31)
	// 09:00, 09:15, 09:30 start before notBefore.
	if len(slots) != 1 || slots[0] != 9*60+45 {
		t.Fatalf("expected only 09:45, got %v", slots)
	}
}

func TestAvailableSlots_MergesOverlappingWindows(t *testing.T) {
	windows := []Interval{{Start: 10 * 60, End: 11 * 60}, {Start: 9 * 60, End: 10*60 + 30}}
	slots := AvailableSlots(windows, 30, 30, nil, 0)
	want := []int{9 * 60, 9*60 + 30, 10 * 60, 10*60 + 30}
	if len(slots) != len(want) {
		t.Fatalf("expected %v, got %v", want, slots)
	}
	for i := range want {
		if slots[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, slots)
		}
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	existing := Interval{Start: 600, End: 630}
	if !(Interval{Start: 615, End: 645}).Overlaps(existing) {
		t.Fatal("10:15-10:45 overlaps 10:00-10:30")
	}
	if (Interval{Start: 630, End: 660}).Overlaps(existing) {
		t.Fatal("back-to-back slots must not overlap")
	}
}

func TestParseClock(t *testing.T) {
	valid := map[string]int{"00:00": 0, "09:10": 550, "23:59": 1439, "24:00": 1440}
	for in, want := range valid {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "9:10", "24:01", "12:60", "ab:cd", "10:00:00"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) should fail", in)
		}
	}
	if FormatClock(595) != "09:55" {
		t.Fatalf("unexpected format %q", FormatClock(595))
	}
}

func TestParseDateAndCivil(t *testing.T) {
	d, err := ParseDate("2024-01-10")
	if err != nil || d.Weekday() != time.Wednesday {
		t.Fatalf("unexpected date %v (%v)", d, err)
	}
	if _, err := ParseDate("2024-02-30"); err == nil {
		t.Fatal("expected invalid calendar date to fail")
	}
	date, minute := Civil(time.Date(2024, 1, 10, 10, 15, 0, 0, time.Local))
	if date != "2024-01-10" || minute != 615 {
		t.Fatalf("unexpected civil %s %d", date, minute)
	}
}

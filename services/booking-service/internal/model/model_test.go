package model

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	valid := map[string]string{
		"5":       "5.00",
		"5.5":     "5.50",
		"0.99":    "0.99",
		" 120.00": "120.00",
	}
	for in, want := range valid {
		got, err := NormalizePrice(in)
		if err != nil || got != want {
			t.Fatalf("NormalizePrice(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	for _, in := range []string{"", "-1", "1.234", "abc", ".5", "5.", "1e3"} {
		if _, err := NormalizePrice(in); err == nil {
			t.Fatalf("NormalizePrice(%q) should fail", in)
		}
	}
}

func TestSourceInitialStatus(t *testing.T) {
	if SourcePublic.InitialStatus() != StatusPending {
		t.Fatal("public bookings start pending")
	}
	if SourceStaff.InitialStatus() != StatusConfirmed {
		t.Fatal("staff bookings start confirmed")
	}
}

package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60
	DateLayout    = "2006-01-02"
)

var (
	ErrInvalidClock = errors.New("time must be HH:MM")
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD")
)

// ParseClock parses "HH:MM" into minutes since midnight. "24:00" is accepted as the end of
// the day.
func ParseClock(raw string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, ErrInvalidClock
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, ErrInvalidClock
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidClock
	}
	if h == 24 && m != 0 {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// ParseDate parses a calendar date. The result is midnight UTC and carries no zone meaning.
func ParseDate(raw string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Civil splits a wall-clock instant into its date string and minute of day.
func Civil(t time.Time) (string, int) {
	return t.Format(DateLayout), t.Hour()*60 + t.Minute()
}

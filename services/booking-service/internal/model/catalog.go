package model

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

type Service struct {
	ID              string
	BusinessID      string
	Name            string
	Description     string
	Price           string
	DurationMinutes int
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Staff struct {
	ID         string
	BusinessID string
	Name       string
	Email      string
	Phone      string
	Role       string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Availability is a weekly window. DayOfWeek follows time.Weekday (0 = Sunday).
type Availability struct {
	ID          string
	BusinessID  string
	StaffID     string
	DayOfWeek   int
	StartMinute int
	EndMinute   int
	Active      bool
	CreatedAt   time.Time
}

var ErrInvalidPrice = errors.New("price must be a non-negative amount with at most two decimals")

// NormalizePrice canonicalizes a decimal price to two fraction digits, e.g. "5" -> "5.00".
func NormalizePrice(raw string) (string, error) {
	cents, err := PriceCents(raw)
	if err != nil {
		return "", err
	}
	return FormatCents(cents), nil
}

func PriceCents(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidPrice
	}
	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" || len(frac) > 2 || (hasFrac && frac == "") {
		return 0, ErrInvalidPrice
	}
	if !digits(whole) || !digits(frac) {
		return 0, ErrInvalidPrice
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units > 1_000_000_000 {
		return 0, ErrInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	return units*100 + cents, nil
}

func FormatCents(cents int64) string {
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return strconv.FormatInt(cents/100, 10) + "." + frac
}

func digits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

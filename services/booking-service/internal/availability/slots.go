package availability

import "slices"

// Interval is a half-open range of minutes since midnight, [Start, End).
type Interval struct {
	Start int
	End   int
}

// Overlaps uses half-open semantics: touching endpoints do not overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

func (iv Interval) Within(outer Interval) bool {
	return outer.Start <= iv.Start && iv.End <= outer.End
}

// AvailableSlots returns slot start minutes inside windows where a booking of duration would
// not overlap busy, stepping by step from each window's start. Starts before notBefore are
// skipped. The result is sorted and free of duplicates when windows overlap.
func AvailableSlots(windows []Interval, duration, step int, busy []Interval, notBefore int) []int {
	if duration <= 0 || step <= 0 {
		return nil
	}

	seen := map[int]bool{}
	var slots []int
	for _, w := range windows {
		if w.End <= w.Start {
			continue
		}
		for t := w.Start; t+duration <= w.End; t += step {
			if t < notBefore || seen[t] {
				continue
			}
			if !overlapsAny(Interval{Start: t, End: t + duration}, busy) {
				seen[t] = true
				slots = append(slots, t)
			}
		}
	}
	slices.Sort(slots)
	return slots
}

// WithinAny reports whether iv fits entirely inside one of windows.
func WithinAny(iv Interval, windows []Interval) bool {
	for _, w := range windows {
		if iv.Within(w) {
			return true
		}
	}
	return false
}

func overlapsAny(iv Interval, busy []Interval) bool {
	for _, b := range busy {
		if iv.Overlaps(b) {
			return true
		}
	}
	return false
}

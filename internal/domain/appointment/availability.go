package appointment

import "time"

// SlotStride is the spacing between candidate slot starts. Slot duration
// comes from the treatment type; the stride is fixed so slots line up on a
// predictable grid regardless of treatment length.
const SlotStride = 30 * time.Minute

// DefaultSlotDuration is used when no treatment type is given.
const DefaultSlotDuration = 30 * time.Minute

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Slot is a bookable window offered to the caller.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// AvailableSlots generates candidate slots of the given duration at fixed
// strides from windowStart and drops any that would run past windowEnd or
// that intersect a busy interval. The result is ordered by start time.
func AvailableSlots(windowStart, windowEnd time.Time, duration time.Duration, busy []Interval) []Slot {
	if duration <= 0 {
		duration = DefaultSlotDuration
	}
	slots := []Slot{}
	for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(SlotStride) {
		candidate := Interval{Start: t, End: t.Add(duration)}
		if overlapsAny(candidate, busy) {
			continue
		}
		slots = append(slots, Slot{Start: candidate.Start, End: candidate.End})
	}
	return slots
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}

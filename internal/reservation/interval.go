package reservation

import "time"

const dateLayout = "2006-01-02"

// Interval is a half-open stay [Start, End) at date granularity.
// Start is the check-in date, End the check-out date.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval truncates both bounds to UTC midnight and rejects empty or inverted stays.
func NewInterval(checkIn, checkOut time.Time) (Interval, error) {
	iv := Interval{Start: toDate(checkIn), End: toDate(checkOut)}
	if !iv.Start.Before(iv.End) {
		return Interval{}, ErrInvalidInterval
	}
	return iv, nil
}

// ParseInterval parses two YYYY-MM-DD dates.
func ParseInterval(checkIn, checkOut string) (Interval, error) {
	start, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return Interval{}, ErrInvalidInterval
	}
	end, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return Interval{}, ErrInvalidInterval
	}
	return NewInterval(start, end)
}

// ValidateAt rejects stays whose check-in date is before today's UTC date.
func (iv Interval) ValidateAt(now time.Time) error {
	if iv.Start.Before(toDate(now)) {
		return ErrStartInPast
	}
	return nil
}

func (iv Interval) Nights() int {
	return int(iv.End.Sub(iv.Start).Hours() / 24)
}

// Overlaps reports whether the two stays share at least one night.
// Back-to-back stays, where one checks out the day the other checks in, do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && iv.End.After(o.Start)
}

// Elapsed reports whether the stay is over at now.
func (iv Interval) Elapsed(now time.Time) bool {
	return !now.Before(iv.End)
}

func (iv Interval) String() string {
	return "[" + iv.Start.Format(dateLayout) + ", " + iv.End.Format(dateLayout) + ")"
}

func toDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

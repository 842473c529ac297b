package dates

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// DateOnly truncates t to UTC midnight. All scheduling comparisons work on
// calendar dates, never wall-clock times.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Overlaps reports whether the half-open intervals [pickupA, deliveryA) and
// [pickupB, deliveryB) intersect. A delivery landing exactly on another
// pickup does not overlap.
func Overlaps(pickupA, deliveryA, pickupB, deliveryB time.Time) bool {
	pa, da := DateOnly(pickupA), DateOnly(deliveryA)
	pb, db := DateOnly(pickupB), DateOnly(deliveryB)
	return pa.Before(db) && pb.Before(da)
}

// Touches reports whether the closed intervals [pickupA, deliveryA] and
// [pickupB, deliveryB] intersect, so intervals that merely share an endpoint
// count. Used by the legacy date-conflict signal.
func Touches(pickupA, deliveryA, pickupB, deliveryB time.Time) bool {
	pa, da := DateOnly(pickupA), DateOnly(deliveryA)
	pb, db := DateOnly(pickupB), DateOnly(deliveryB)
	return !pa.After(db) && !pb.After(da)
}

// MondayOf returns the Monday of the ISO week containing t, at UTC midnight.
func MondayOf(t time.Time) time.Time {
	d := DateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

var dateishLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDateish parses the date formats seen in OCR extractions and legacy
// invoice imports, returning the value truncated to UTC midnight.
func ParseDateish(s string) (time.Time, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return time.Time{}, errors.New("empty date string")
	}
	for _, layout := range dateishLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date format: %q", s)
}

// Package civiltime canonicalizes timestamps to the deployment's fixed civil
// zone. The zone is a constant offset with no daylight-saving transitions, so
// every conversion is a fixed shift rather than a tzdata lookup.
package civiltime

import (
	"fmt"
	"time"
)

// Wire layouts accepted from the gateway, tried in order.
var wireLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// DateLayout is the civil date format used by day-level queries.
const DateLayout = "2006-01-02"

// Zone is a fixed-offset civil zone.
type Zone struct {
	name   string
	offset time.Duration
	loc    *time.Location
}

// NewZone builds a fixed zone from a name and an offset such as "+03:00".
func NewZone(name, offset string) (*Zone, error) {
	d, err := ParseOffset(offset)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = offset
	}
	return &Zone{
		name:   name,
		offset: d,
		loc:    time.FixedZone(name, int(d/time.Second)),
	}, nil
}

// ParseOffset parses a "+HH:MM" or "-HH:MM" UTC offset.
func ParseOffset(s string) (time.Duration, error) {
	var sign time.Duration
	switch {
	case len(s) == 6 && s[0] == '+':
		sign = 1
	case len(s) == 6 && s[0] == '-':
		sign = -1
	default:
		return 0, fmt.Errorf("civil zone offset %q: want ±HH:MM", s)
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s[1:], "%02d:%02d", &hh, &mm); err != nil {
		return 0, fmt.Errorf("civil zone offset %q: %w", s, err)
	}
	if hh > 14 || mm > 59 {
		return 0, fmt.Errorf("civil zone offset %q out of range", s)
	}
	return sign * (time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute), nil
}

// Name returns the zone's display name.
func (z *Zone) Name() string { return z.name }

// Location returns the fixed *time.Location backing the zone.
func (z *Zone) Location() *time.Location { return z.loc }

// Normalize converts t to the civil zone. The instant is unchanged; only the
// wall-clock representation shifts. Normalizing an already-normalized time is
// a no-op, so the function is idempotent.
func (z *Zone) Normalize(t time.Time) time.Time {
	if t.Location() == z.loc {
		return t
	}
	return t.In(z.loc)
}

// ParseWire parses a gateway timestamp. A naive timestamp is taken to already
// represent civil-zone wall clock; one tagged with an offset is converted.
func (z *Zone) ParseWire(s string) (time.Time, error) {
	for _, layout := range wireLayouts {
		if t, err := time.ParseInLocation(layout, s, z.loc); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return z.Normalize(t), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// DayBounds returns the inclusive bounds of one civil day: 00:00:00.000
// through 23:59:59.999.
func (z *Zone) DayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, z.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("civil date %q: %w", date, err)
	}
	start := day
	end := day.Add(24*time.Hour - time.Millisecond)
	return start, end, nil
}

// FormatDate renders an instant as a civil date in the zone.
func (z *Zone) FormatDate(t time.Time) string {
	return z.Normalize(t).Format(DateLayout)
}

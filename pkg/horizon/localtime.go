package horizon

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/skywatch/pkg/celestial"
)

// EventTimeLayout renders event instants as a 12-hour clock with AM/PM
const EventTimeLayout = "3:04 PM"

// FormatEventTime returns t in the observer's civil time, e.g. "6:42 AM".
// A zero time formats as an empty string.
func FormatEventTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(EventTimeLayout)
}

// ParseUTCOffset parses offsets such as "+04:00", "-0330", "+4" or "UTC" into
// a fixed zone. Named time zones are not looked up.
func ParseUTCOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "UTC") || s == "Z" {
		return time.UTC, nil
	}

	sign := 1
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		sign = -1
		s = s[1:]
	default:
		return nil, fmt.Errorf("%w: utc offset %q must start with + or -", celestial.ErrInvalidInput, s)
	}

	var hh, mm string
	switch {
	case strings.Contains(s, ":"):
		parts := strings.SplitN(s, ":", 2)
		hh, mm = parts[0], parts[1]
	case len(s) == 4:
		hh, mm = s[:2], s[2:]
	default:
		hh, mm = s, "0"
	}

	h, err := strconv.Atoi(hh)
	if err != nil {
		return nil, fmt.Errorf("%w: utc offset hours %q: %v", celestial.ErrInvalidInput, hh, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return nil, fmt.Errorf("%w: utc offset minutes %q: %v", celestial.ErrInvalidInput, mm, err)
	}
	if h < 0 || h > 14 || m < 0 || m > 59 {
		return nil, fmt.Errorf("%w: utc offset %q out of range", celestial.ErrInvalidInput, s)
	}

	secs := sign * (h*3600 + m*60)
	return time.FixedZone(formatOffset(secs), secs), nil
}

func formatOffset(secs int) string {
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, secs/3600, (secs%3600)/60)
}

// LocalDay returns the civil day [local midnight, local midnight + 24h)
// containing t in loc, expressed in UTC.
func LocalDay(t time.Time, loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.UTC(), midnight.Add(24 * time.Hour).UTC()
}

// ParseLocalInstant combines a YYYY-MM-DD date and HH:MM time in loc.
// Empty fields default to the corresponding part of now.
func ParseLocalInstant(date, clock string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)

	y, mo, d := local.Date()
	if date = strings.TrimSpace(date); date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", celestial.ErrInvalidInput, date)
		}
		y, mo, d = parsed.Date()
	}

	h, mi := local.Hour(), local.Minute()
	if clock = strings.TrimSpace(clock); clock != "" {
		parsed, err := time.ParseInLocation("15:04", clock, loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: time %q must be HH:MM", celestial.ErrInvalidInput, clock)
		}
		h, mi = parsed.Hour(), parsed.Minute()
	}

	return time.Date(y, mo, d, h, mi, 0, 0, loc), nil
}

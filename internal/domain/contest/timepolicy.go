package contest

import (
	"strconv"
	"strings"
	"time"
)

const DisplayLayout = "02.01.2006 15:04"

var inputLayouts = []string{
	"02.01.2006 15:04",
	"02/01/2006 15:04",
	"2006-01-02 15:04",
	"02.01.2006",
	"02/01/2006",
	"2006-01-02",
}

// TimePolicy converts between user-facing local times and the UTC instants the store keeps.
type TimePolicy struct {
	loc *time.Location
}

// NewTimePolicy accepts an IANA zone name ("Asia/Tashkent"), a fixed offset ("+05:00"),
// or an empty string for UTC.
func NewTimePolicy(zone string) (TimePolicy, error) {
	trimmed := strings.TrimSpace(zone)
	if trimmed == "" || strings.EqualFold(trimmed, "utc") {
		return TimePolicy{loc: time.UTC}, nil
	}
	if trimmed[0] == '+' || trimmed[0] == '-' {
		offset, err := parseOffset(trimmed)
		if err != nil {
			return TimePolicy{}, err
		}
		return TimePolicy{loc: time.FixedZone(trimmed, offset)}, nil
	}

	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return TimePolicy{}, ErrInvalidTimezone
	}
	return TimePolicy{loc: loc}, nil
}

func parseOffset(raw string) (int, error) {
	sign := 1
	if raw[0] == '-' {
		sign = -1
	}
	parts := strings.Split(raw[1:], ":")
	if len(parts) > 2 {
		return 0, ErrInvalidTimezone
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours > 14 {
		return 0, ErrInvalidTimezone
	}
	minutes := 0
	if len(parts) == 2 {
		minutes, err = strconv.Atoi(parts[1])
		if err != nil || minutes >= 60 {
			return 0, ErrInvalidTimezone
		}
	}
	return sign * (hours*3600 + minutes*60), nil
}

func (p TimePolicy) Location() *time.Location {
	if p.loc == nil {
		return time.UTC
	}
	return p.loc
}

// Parse reads a local datetime in one of the accepted layouts and returns it in UTC.
// Date-only input means midnight local time.
func (p TimePolicy) Parse(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, trimmed, p.Location()); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDatetime
}

func (p TimePolicy) Format(t time.Time) string {
	return t.In(p.Location()).Format(DisplayLayout)
}

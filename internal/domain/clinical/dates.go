package clinical

import (
	"strings"
	"time"

	"github.com/histomed/histomed/internal/platform/apperr"
)

const dayLayout = "2006-01-02"

var visitDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dayLayout,
}

// ParseVisitDate accepts RFC 3339, YYYY-MM-DDTHH:MM[:SS] or YYYY-MM-DD.
// Values without an offset are UTC. The result is always in UTC.
func ParseVisitDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range visitDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validation("invalid date %q", s)
}

// ParseDayRange reads optional YYYY-MM-DD bounds.
func ParseDayRange(from, to string) (DayRange, error) {
	var r DayRange
	var err error
	if from != "" {
		if r.From, err = time.Parse(dayLayout, from); err != nil {
			return r, apperr.Validation("invalid from date %q", from)
		}
	}
	if to != "" {
		if r.To, err = time.Parse(dayLayout, to); err != nil {
			return r, apperr.Validation("invalid to date %q", to)
		}
	}
	return r, nil
}

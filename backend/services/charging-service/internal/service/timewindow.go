package service

import (
	"strings"
	"time"

	apperrors "campusev/backend/libs/errors"
)

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "15:04:05"}

// Window is a reservation interval resolved against a calendar date.
type Window struct {
	Date  string
	Start string
	End   string
	// From and Until are the effective instants, Until > From.
	From  time.Time
	Until time.Time
}

// Overlaps applies the half-open test [From, Until) against [from, until).
func (w Window) Overlaps(from, until time.Time) bool {
	return w.From.Before(until) && from.Before(w.Until)
}

// ParseDate parses a YYYY-MM-DD day in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, apperrors.Newf(apperrors.CodeValidation, "invalid date %q, expected YYYY-MM-DD", date)
	}
	return day, nil
}

func parseClock(value string) (time.Time, string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range clockLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		normalized := t.Format("15:04")
		if t.Second() != 0 {
			normalized = t.Format("15:04:05")
		}
		return t, normalized, nil
	}
	return time.Time{}, "", apperrors.Newf(apperrors.CodeValidation, "invalid time %q, expected HH:MM", value)
}

// ParseWindow resolves date plus start and end times of day into a Window.
// An end time earlier than or equal to the start wraps to the next day.
func ParseWindow(date, start, end string, loc *time.Location) (Window, error) {
	if strings.TrimSpace(date) == "" || strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return Window{}, apperrors.New(apperrors.CodeValidation, "date, start_time and end_time are required")
	}
	if loc == nil {
		loc = time.UTC
	}
	day, err := ParseDate(date, loc)
	if err != nil {
		return Window{}, err
	}
	startClock, startText, err := parseClock(start)
	if err != nil {
		return Window{}, err
	}
	endClock, endText, err := parseClock(end)
	if err != nil {
		return Window{}, err
	}
	if startClock.Equal(endClock) {
		return Window{}, apperrors.New(apperrors.CodeValidation, "end_time must differ from start_time")
	}

	y, m, d := day.Date()
	from := time.Date(y, m, d, startClock.Hour(), startClock.Minute(), startClock.Second(), 0, loc)
	endDay := d
	if !endClock.After(startClock) {
		endDay++
	}
	until := time.Date(y, m, endDay, endClock.Hour(), endClock.Minute(), endClock.Second(), 0, loc)
	if !until.After(from) {
		return Window{}, apperrors.New(apperrors.CodeValidation, "end_time must be after start_time")
	}

	return Window{
		Date:  day.Format(dateLayout),
		Start: startText,
		End:   endText,
		From:  from,
		Until: until,
	}, nil
}

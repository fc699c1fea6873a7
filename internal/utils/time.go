package utils

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	layoutDate     = "2006-01-02"
	layoutDateTime = "2006-01-02 15:04:05"
)

var clockRe = regexp.MustCompile(`^\d{2}:\d{2}$`)

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// ParseDeparture accepts YYYY-MM-DD, "YYYY-MM-DD HH:MM:SS" or RFC3339 and returns local time.
func ParseDeparture(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("date vide")
	}
	if t, err := time.ParseInLocation(layoutDate, s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(layoutDateTime, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errors.New("format de date invalide (YYYY-MM-DD)")
	}
	return t.In(time.Local), nil
}

// DayBounds returns [start, end) of the local calendar day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.In(time.Local)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1)
}

// ValidClock checks the HH:mm format used for departure and arrival times.
func ValidClock(s string) bool {
	if !clockRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// FormatFrenchDate formats time as DD/MM/YYYY.
func FormatFrenchDate(t time.Time) string {
	return t.In(time.Local).Format("02/01/2006")
}

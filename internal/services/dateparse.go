package services

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/huangang/ouranotify/internal/models"
)

var (
	ErrInvalidDate = errors.New("invalid date")
	ErrInvalidTime = errors.New("time must be HH:MM between 00:00 and 23:59")
)

var (
	daysAgoJA   = regexp.MustCompile(`^(\d+)日前`)
	daysAgoEN   = regexp.MustCompile(`^(\d+)\s*days?\s+ago$`)
	minusDays   = regexp.MustCompile(`^-(\d+)$`)
	monthDayJA  = regexp.MustCompile(`^(\d{1,2})月(\d{1,2})日?`)
	fullDate    = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})`)
	monthDay    = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})$`)
	monthDay4   = regexp.MustCompile(`^(\d{2})(\d{2})$`)
	timeOfDayRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

// ParseDate resolves a user supplied date relative to today. Empty input
// yields def, or today when def is zero. Dates without a year take the
// year of today.
func ParseDate(s string, today, def time.Time) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		if def.IsZero() {
			return today, nil
		}
		return def, nil
	}

	v := strings.ToLower(raw)
	switch v {
	case "today", "今日", "きょう":
		return today, nil
	case "yesterday", "昨日", "きのう":
		return today.AddDate(0, 0, -1), nil
	case "一昨日", "おととい":
		return today.AddDate(0, 0, -2), nil
	}

	for _, re := range []*regexp.Regexp{daysAgoJA, daysAgoEN, minusDays} {
		if m := re.FindStringSubmatch(v); m != nil {
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
			}
			return today.AddDate(0, 0, -n), nil
		}
	}

	if m := monthDayJA.FindStringSubmatch(v); m != nil {
		return dateInYear(today.Year(), m[1], m[2], today.Location())
	}
	if m := fullDate.FindStringSubmatch(v); m != nil {
		year, _ := strconv.Atoi(m[1])
		return dateInYear(year, m[2], m[3], today.Location())
	}
	if m := monthDay.FindStringSubmatch(v); m != nil {
		return dateInYear(today.Year(), m[1], m[2], today.Location())
	}
	if m := monthDay4.FindStringSubmatch(v); m != nil {
		return dateInYear(today.Year(), m[1], m[2], today.Location())
	}

	t, err := time.ParseInLocation(models.DateLayout, raw, today.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

func dateInYear(year int, month, day string, loc *time.Location) (time.Time, error) {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	if m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("%w: month must be 1-12, got %d", ErrInvalidDate, m)
	}
	if d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("%w: day must be 1-31, got %d", ErrInvalidDate, d)
	}
	t := time.Date(year, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Day() != d {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d does not exist", ErrInvalidDate, year, m, d)
	}
	return t, nil
}

// TimeOfDay is a wall clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Minutes is the offset from midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Matches reports whether now falls on this hour and minute.
func (t TimeOfDay) Matches(now time.Time) bool {
	return now.Hour() == t.Hour && now.Minute() == t.Minute
}

// ParseTimeOfDay parses "H:MM" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	m := timeOfDayRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return TimeOfDay{}, ErrInvalidTime
	}
	h, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if h > 23 || minute > 59 {
		return TimeOfDay{}, ErrInvalidTime
	}
	return TimeOfDay{Hour: h, Minute: minute}, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

package services

import (
	"sort"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/se"
	"github.com/rickar/cal/v2/us"

	"github.com/huangang/ouranotify/pkg/logger"
)

var holidaySets = map[string][]*cal.Holiday{
	"JP": jp.Holidays,
	"US": us.Holidays,
	"GB": gb.Holidays,
	"DE": de.Holidays,
	"FR": fr.Holidays,
	"AU": au.HolidaysNSW,
	"CA": ca.Holidays,
	"NZ": nz.Holidays,
	"NL": nl.Holidays,
	"SE": se.Holidays,
}

// HolidayService tells rest days (weekends and public holidays of one
// country) from workdays.
type HolidayService struct {
	country  string
	calendar *cal.BusinessCalendar
}

// NewHolidayService builds the calendar for country. "NONE" or an unknown
// code means weekends only.
func NewHolidayService(country string) *HolidayService {
	country = strings.ToUpper(strings.TrimSpace(country))
	c := cal.NewBusinessCalendar()
	if holidays, ok := holidaySets[country]; ok {
		c.Name = country
		c.AddHoliday(holidays...)
	} else {
		if country != "" && country != "NONE" {
			logger.Warnf("[Holiday] Unknown country %q, only weekends count as rest days", country)
		}
		country = "NONE"
	}
	return &HolidayService{country: country, calendar: c}
}

func (s *HolidayService) Country() string {
	return s.country
}

// IsRestDay reports whether t falls on a weekend or a public holiday.
func (s *HolidayService) IsRestDay(t time.Time) bool {
	return !s.calendar.IsWorkday(t)
}

// HolidayName returns the holiday observed on t, or "".
func (s *HolidayService) HolidayName(t time.Time) string {
	actual, observed, h := s.calendar.IsHoliday(t)
	if (actual || observed) && h != nil {
		return h.Name
	}
	return ""
}

// SupportedCountries lists the accepted holiday_country codes.
func SupportedCountries() []string {
	codes := make([]string, 0, len(holidaySets)+1)
	for code := range holidaySets {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return append(codes, "NONE")
}

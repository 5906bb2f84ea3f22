package vb

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// months covers the languages internet banking renders in, in both the
// nominative and the genitive ("5 января") forms.
var months = map[string]time.Month{
	"january": time.January, "jan": time.January, "ianuarie": time.January, "январь": time.January, "января": time.January,
	"february": time.February, "feb": time.February, "februarie": time.February, "февраль": time.February, "февраля": time.February,
	"march": time.March, "mar": time.March, "martie": time.March, "март": time.March, "марта": time.March,
	"april": time.April, "apr": time.April, "aprilie": time.April, "апрель": time.April, "апреля": time.April,
	"may": time.May, "mai": time.May, "май": time.May, "мая": time.May,
	"june": time.June, "jun": time.June, "iunie": time.June, "июнь": time.June, "июня": time.June,
	"july": time.July, "jul": time.July, "iulie": time.July, "июль": time.July, "июля": time.July,
	"august": time.August, "aug": time.August, "август": time.August, "августа": time.August,
	"september": time.September, "sep": time.September, "sept": time.September, "septembrie": time.September,
	"сентябрь": time.September, "сентября": time.September,
	"october": time.October, "oct": time.October, "octombrie": time.October, "октябрь": time.October, "октября": time.October,
	"november": time.November, "nov": time.November, "noiembrie": time.November, "ноябрь": time.November, "ноября": time.November,
	"december": time.December, "dec": time.December, "decembrie": time.December, "декабрь": time.December, "декабря": time.December,
}

// parseMonth reads a month delimiter such as "January 2024".
func parseMonth(text string) (time.Month, int, error) {
	parts := strings.Fields(text)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("month %q is not \"Month YYYY\"", text)
	}

	month, ok := months[strings.ToLower(trimPunct(parts[0]))]
	if !ok {
		return 0, 0, fmt.Errorf("unknown month %q", parts[0])
	}

	year, err := strconv.Atoi(trimPunct(parts[1]))
	if err != nil || year < 1000 {
		return 0, 0, fmt.Errorf("invalid year %q", parts[1])
	}

	return month, year, nil
}

// parseDay reads the day number from a header such as "5 January, Friday".
func parseDay(text string) (int, error) {
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return 0, fmt.Errorf("day header is empty")
	}

	day, err := strconv.Atoi(trimPunct(parts[0]))
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day %q", parts[0])
	}

	return day, nil
}

// parseClock reads "HH:MM".
func parseClock(text string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(text), ":")
	if !ok {
		return 0, 0, fmt.Errorf("time %q is not HH:MM", text)
	}

	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", text)
	}

	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", text)
	}

	return hour, minute, nil
}

// buildTimestamp combines the three date sources of an entry. Dates that
// do not exist, like 31 February, are rejected instead of normalized.
func buildTimestamp(monthText, dayText, clockText string, loc *time.Location) (time.Time, error) {
	month, year, err := parseMonth(monthText)
	if err != nil {
		return time.Time{}, err
	}

	day, err := parseDay(dayText)
	if err != nil {
		return time.Time{}, err
	}

	hour, minute, err := parseClock(clockText)
	if err != nil {
		return time.Time{}, err
	}

	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if t.Day() != day || t.Month() != month {
		return time.Time{}, fmt.Errorf("%d %s %d does not exist", day, month, year)
	}

	return t, nil
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}

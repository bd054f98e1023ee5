// Package schedule builds and explains the small family of cron
// expressions the scheduling UI produces, and manages schedule CRUD
// against the backend.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Pattern is a recurring-schedule preset.
type Pattern string

const (
	PatternDaily        Pattern = "daily"
	PatternWeekdays     Pattern = "weekdays"
	PatternWeeklyMonday Pattern = "weekly_monday"
	PatternCustomDays   Pattern = "custom_days"
)

// defaultCustomDays is used when the custom-days interval is missing or
// unparseable.
const defaultCustomDays = 2

// BuildCron maps a preset pattern and a 24-hour "HH:MM" wall-clock time
// to a 5-field cron expression. customDays only applies to
// PatternCustomDays and defaults to 2 when unparseable. Times are naive
// wall-clock strings; no timezone conversion happens anywhere in this
// package.
func BuildCron(pattern Pattern, timeOfDay string, customDays string) (string, error) {
	hour, minute, err := parseHHMM(timeOfDay)
	if err != nil {
		return "", err
	}

	switch pattern {
	case PatternWeekdays:
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	case PatternWeeklyMonday:
		return fmt.Sprintf("%d %d * * 1", minute, hour), nil
	case PatternCustomDays:
		days, err := strconv.Atoi(strings.TrimSpace(customDays))
		if err != nil || days < 1 {
			days = defaultCustomDays
		}
		return fmt.Sprintf("%d %d */%d * *", minute, hour, days), nil
	default:
		// daily, and the fallback for unknown patterns
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	}
}

var weekdayNames = map[string]string{
	"0": "Sunday",
	"1": "Monday",
	"2": "Tuesday",
	"3": "Wednesday",
	"4": "Thursday",
	"5": "Friday",
	"6": "Saturday",
}

// Humanize renders a cron expression as a short schedule summary. It is
// a best-effort inverse of BuildCron: it recognizes the shapes the
// builder produces plus any single numeric weekday, falls back to
// "Cron: <expr>" for unrecognized 5-field expressions, and returns the
// input unchanged when it does not have 5 fields.
func Humanize(expr string) string {
	parts := strings.Fields(expr)
	if len(parts) != 5 {
		return expr
	}

	minute, hour, dayOfMonth, dayOfWeek := parts[0], parts[1], parts[2], parts[4]

	at, ok := format12h(hour, minute)
	if !ok {
		return "Cron: " + expr
	}

	if dayOfMonth == "*" && dayOfWeek == "*" {
		return "Every day at " + at
	}
	if dayOfWeek == "1-5" {
		return "Every weekday at " + at
	}
	if dayOfWeek == "1" && dayOfMonth == "*" {
		return "Every Monday at " + at
	}
	if n, ok := strings.CutPrefix(dayOfMonth, "*/"); ok {
		if _, err := strconv.Atoi(n); err == nil {
			return "Every " + n + " days at " + at
		}
	}
	if name, ok := weekdayNames[dayOfWeek]; ok && dayOfMonth == "*" {
		return "Every " + name + " at " + at
	}

	return "Cron: " + expr
}

// format12h renders numeric cron hour/minute fields in 12-hour form
// ("9:00 AM"). The reference date exists only to borrow time.Format;
// no timezone is involved.
func format12h(hourField, minuteField string) (string, bool) {
	hour, err := strconv.Atoi(hourField)
	if err != nil || hour < 0 || hour > 23 {
		return "", false
	}
	minute, err := strconv.Atoi(minuteField)
	if err != nil || minute < 0 || minute > 59 {
		return "", false
	}
	t := time.Date(2000, time.January, 1, hour, minute, 0, 0, time.UTC)
	return t.Format("3:04 PM"), true
}

func parseHHMM(v string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(v), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid time %q (want HH:MM)", v)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", v)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minutes in %q", v)
	}
	return hour, minute, nil
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextRun computes the next fire time of a 5-field cron expression
// strictly after the given instant.
func NextRun(expr string, after time.Time) (time.Time, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing cron %q: %w", expr, err)
	}
	return sched.Next(after), nil
}

// FormatRunAt renders a one-time run timestamp for display.
func FormatRunAt(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}

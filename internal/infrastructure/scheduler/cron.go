package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CronSchedule is a five-field cron expression evaluated in a fixed
// location: minute hour day-of-month month day-of-week.
// Supported syntax per field: *, */n, n, n-m, n-m/s, n,m,o.
//
// Examples:
//   - "*/15 * * * *" every 15 minutes
//   - "30 3 * * *"   every day at 03:30
//   - "0 6 * * 1"    every Monday at 06:00
type CronSchedule struct {
	raw      string
	loc      *time.Location
	minutes  uint64
	hours    uint64
	days     uint64
	months   uint64
	weekdays uint64
}

// Common expressions.
const (
	EveryFifteenMinutes = "*/15 * * * *"
	EveryHour           = "0 * * * *"
	NightlyAt0330       = "30 3 * * *"
)

// ParseCron parses expr. A nil loc evaluates in UTC.
func ParseCron(expr string, loc *time.Location) (*CronSchedule, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return nil, fmt.Errorf("cron %q: expected 5 fields, got %d", expr, len(fields))
	}
	if loc == nil {
		loc = time.UTC
	}

	cs := &CronSchedule{raw: expr, loc: loc}
	specs := []struct {
		name     string
		min, max int
		dst      *uint64
	}{
		{"minute", 0, 59, &cs.minutes},
		{"hour", 0, 23, &cs.hours},
		{"day", 1, 31, &cs.days},
		{"month", 1, 12, &cs.months},
		{"weekday", 0, 6, &cs.weekdays},
	}
	for i, s := range specs {
		mask, err := parseCronField(fields[i], s.min, s.max)
		if err != nil {
			return nil, fmt.Errorf("cron %q: %s field: %w", expr, s.name, err)
		}
		*s.dst = mask
	}
	return cs, nil
}

// MustParseCron parses expr or panics. Use only for constants.
func MustParseCron(expr string, loc *time.Location) *CronSchedule {
	cs, err := ParseCron(expr, loc)
	if err != nil {
		panic(err)
	}
	return cs
}

// parseCronField returns a bit mask of the values the field selects.
func parseCronField(field string, min, max int) (uint64, error) {
	var mask uint64
	for _, part := range strings.Split(field, ",") {
		lo, hi, step := min, max, 1

		if base, s, ok := strings.Cut(part, "/"); ok {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 {
				return 0, fmt.Errorf("invalid step %q", s)
			}
			step = n
			part = base
		}

		switch {
		case part == "*":
		case strings.Contains(part, "-"):
			a, b, _ := strings.Cut(part, "-")
			var err error
			if lo, err = strconv.Atoi(a); err != nil {
				return 0, fmt.Errorf("invalid range start %q", a)
			}
			if hi, err = strconv.Atoi(b); err != nil {
				return 0, fmt.Errorf("invalid range end %q", b)
			}
		default:
			v, err := strconv.Atoi(part)
			if err != nil {
				return 0, fmt.Errorf("invalid value %q", part)
			}
			lo = v
			if step == 1 {
				hi = v
			}
		}

		if lo < min || hi > max || lo > hi {
			return 0, fmt.Errorf("%d-%d outside [%d-%d]", lo, hi, min, max)
		}
		for v := lo; v <= hi; v += step {
			mask |= 1 << uint(v)
		}
	}
	return mask, nil
}

// String returns the original expression.
func (cs *CronSchedule) String() string {
	return cs.raw
}

// Next returns the first matching minute strictly after t, or the zero time
// when nothing matches within a year.
func (cs *CronSchedule) Next(t time.Time) time.Time {
	next := t.In(cs.loc).Truncate(time.Minute).Add(time.Minute)
	const limit = 366 * 24 * 60
	for i := 0; i < limit; i++ {
		if cs.matches(next) {
			return next
		}
		next = next.Add(time.Minute)
	}
	return time.Time{}
}

func (cs *CronSchedule) matches(t time.Time) bool {
	return cs.minutes&(1<<uint(t.Minute())) != 0 &&
		cs.hours&(1<<uint(t.Hour())) != 0 &&
		cs.days&(1<<uint(t.Day())) != 0 &&
		cs.months&(1<<uint(t.Month())) != 0 &&
		cs.weekdays&(1<<uint(t.Weekday())) != 0
}

// Package timewin computes half-open day, week, and month intervals from a
// calendar configuration (time zone, first weekday). Every other component
// derives its query boundaries from these intervals, so week-grid layouts and
// store predicates always agree on where a day begins.
package timewin

import (
	"fmt"
	"time"
)

// Config holds the calendar configuration all interval math derives from.
// Construct with NewConfig; the zero value is not valid.
type Config struct {
	loc          *time.Location
	firstWeekday time.Weekday
}

// NewConfig resolves the given IANA time zone name and validates the first
// weekday. An unresolvable zone is a configuration error and is reported
// here, never at interval-computation time.
func NewConfig(tzName string, firstWeekday time.Weekday) (Config, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return Config{}, fmt.Errorf("timewin: loading time zone %q: %w", tzName, err)
	}

	if firstWeekday < time.Sunday || firstWeekday > time.Saturday {
		return Config{}, fmt.Errorf("timewin: invalid first weekday %d", firstWeekday)
	}

	return Config{loc: loc, firstWeekday: firstWeekday}, nil
}

// MustConfig is NewConfig for static configurations known to be valid.
// Panics on error; intended for tests and package defaults only.
func MustConfig(tzName string, firstWeekday time.Weekday) Config {
	cfg, err := NewConfig(tzName, firstWeekday)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Location returns the configured time zone.
func (c Config) Location() *time.Location {
	return c.loc
}

// FirstWeekday returns the configured first day of the week.
func (c Config) FirstWeekday() time.Weekday {
	return c.firstWeekday
}

// DayInterval returns the half-open interval [start, end) of the calendar day
// containing t in the configured zone. Using time.Date with day+1 lets the
// standard library normalize DST transitions, so "next midnight" is correct
// even on 23- and 25-hour days.
func (c Config) DayInterval(t time.Time) (time.Time, time.Time) {
	local := t.In(c.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, c.loc)

	return start, end
}

// WeekInterval returns the half-open interval [start, end) of the week
// containing t, where weeks begin on the configured first weekday.
func (c Config) WeekInterval(t time.Time) (time.Time, time.Time) {
	dayStart, _ := c.DayInterval(t)

	back := int(dayStart.Weekday() - c.firstWeekday)
	if back < 0 {
		back += 7
	}

	start := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day()-back, 0, 0, 0, 0, c.loc)
	end := time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, c.loc)

	return start, end
}

// MonthInterval returns the half-open interval [start, end) of the calendar
// month containing t: the first instant of the month through the first
// instant of the next month.
func (c Config) MonthInterval(t time.Time) (time.Time, time.Time) {
	local := t.In(c.loc)
	start := time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, c.loc)
	end := start.AddDate(0, 1, 0)

	return start, end
}

// MonthStart returns the canonical first instant of the month containing t.
// This is the cache key for month buckets.
func (c Config) MonthStart(t time.Time) time.Time {
	start, _ := c.MonthInterval(t)
	return start
}

// Overlaps reports whether the item interval [itemStart, itemEnd) intersects
// the window [winStart, winEnd). The test is start < winEnd && end > winStart
// rather than boundary equality: a multi-day or all-day item overlaps every
// day it spans, and an item ending exactly at midnight does not leak onto the
// following day.
func Overlaps(itemStart, itemEnd, winStart, winEnd time.Time) bool {
	return itemStart.Before(winEnd) && itemEnd.After(winStart)
}

// Package persian converts Gregorian timestamps to their Solar Hijri
// (Jalali/Persian) calendar equivalents, preserving time-of-day and timezone
// semantics.
//
// Three temporal representations are supported, each converted by its own
// entry point and returned in kind:
//
//   - FromDateTime: a timezone-naive date and time.
//   - FromUTC: a true UTC instant; the result is a UTC-labeled reading.
//   - FromLocal: an instant anchored to the reference timezone; the result
//     carries a fixed zero offset.
//
// Instants are first read in the reference timezone (Iran Standard Time,
// UTC+03:30) to decide which calendar day they belong to; the date portion
// is converted and the wall-clock time is carried through unchanged. The
// resulting fields describe a Jalali calendar reading and are not
// re-expressed through offset arithmetic.
package persian

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tartampluch/go-persian/internal/jalali"
)

// The two process-wide locations. Their names are the rendered offsets so
// labeled values print the way they are documented.
const (
	referenceName   = "+03:30"
	referenceOffset = 3*3600 + 30*60 // Iran Standard Time
	zeroOffsetName  = "+00:00"
)

var (
	reference  = sync.OnceValue(func() *time.Location { return time.FixedZone(referenceName, referenceOffset) })
	zeroOffset = sync.OnceValue(func() *time.Location { return time.FixedZone(zeroOffsetName, 0) })
)

// Reference returns the fixed +03:30 reference timezone used to decide which
// calendar day an instant belongs to. It is built once, on first use, and is
// safe for concurrent access.
func Reference() *time.Location { return reference() }

// ZeroOffset returns the fixed +00:00 location carried by FromLocal results.
// It is built once, on first use, and is safe for concurrent access.
func ZeroOffset() *time.Location { return zeroOffset() }

// DateTime is a calendar date with a wall-clock time and no timezone
// attached. Month is a plain integer rather than time.Month because the same
// fields describe Jalali dates, whose months do not share names or lengths
// with Gregorian ones.
//
// DateTime is a value: conversion never mutates its input.
type DateTime struct {
	Year  int
	Month int // 1..12
	Day   int

	Hour       int
	Minute     int
	Second     int
	Nanosecond int
}

// DateTimeOf extracts the civil fields of t as read in t's own location. It
// performs no calendar conversion.
func DateTimeOf(t time.Time) DateTime {
	year, month, day := t.Date()
	hour, minute, second := t.Clock()
	return DateTime{
		Year:       year,
		Month:      int(month),
		Day:        day,
		Hour:       hour,
		Minute:     minute,
		Second:     second,
		Nanosecond: t.Nanosecond(),
	}
}

// String renders the value as "YYYY-MM-DD hh:mm:ss", with a trimmed
// fractional part when the nanosecond field is set.
func (dt DateTime) String() string {
	s := fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		dt.Year, dt.Month, dt.Day, dt.Hour, dt.Minute, dt.Second)
	if dt.Nanosecond != 0 {
		s += strings.TrimRight(fmt.Sprintf(".%09d", dt.Nanosecond), "0")
	}
	return s
}

// Time is a Jalali wall-clock reading together with the timezone label of
// its representation kind: time.UTC for FromUTC results, the zero-offset
// location for FromLocal results. The label records how the input was
// anchored; the clock fields are not offset-shifted by it.
type Time struct {
	DateTime
	Location *time.Location
}

// String renders the reading followed by its location name, for example
// "1403-08-20 02:08:28 UTC".
func (t Time) String() string {
	if t.Location == nil {
		return t.DateTime.String()
	}
	return t.DateTime.String() + " " + t.Location.String()
}

// FromUTC converts a UTC instant to its Persian calendar equivalent. The
// instant is read in the reference timezone, which may shift the calendar
// date across midnight relative to the UTC date; that civil date is
// converted and combined with the reference-timezone wall-clock time. The
// result is labeled time.UTC.
//
// The boolean is false only when the computed Jalali triple is not a valid
// calendar date, which cannot happen for real instants.
func FromUTC(t time.Time) (Time, bool) {
	return convertInstant(t, time.UTC)
}

// FromLocal converts an instant anchored to the reference timezone. The
// computation matches FromUTC; the result is labeled with the fixed zero
// offset rather than +03:30, and renders as "+00:00".
func FromLocal(t time.Time) (Time, bool) {
	return convertInstant(t, ZeroOffset())
}

// FromDateTime converts a timezone-naive Gregorian date and time. The fields
// are taken as a reference-timezone reading; a fixed offset has no DST gaps
// or folds, so the reading is never ambiguous (the earliest interpretation
// would be chosen if it were). The date is converted and the time-of-day
// fields are returned unchanged.
//
// The input date is not validated: an impossible Gregorian date such as
// February 30 is processed as that day offset. The boolean is false when the
// month is outside 1..12 or the computed Jalali triple is not a valid
// calendar date.
func FromDateTime(dt DateTime) (DateTime, bool) {
	return convertCivil(dt)
}

func convertInstant(t time.Time, label *time.Location) (Time, bool) {
	dt, ok := convertCivil(DateTimeOf(t.In(Reference())))
	if !ok {
		return Time{}, false
	}
	return Time{DateTime: dt, Location: label}, true
}

func convertCivil(dt DateTime) (DateTime, bool) {
	if dt.Month < 1 || dt.Month > 12 {
		return DateTime{}, false
	}
	jy, jm, jd := jalali.FromGregorian(dt.Year, dt.Month, dt.Day)
	if !jalali.IsValidDate(jy, jm, jd) {
		return DateTime{}, false
	}
	out := dt
	out.Year, out.Month, out.Day = jy, jm, jd
	return out, true
}

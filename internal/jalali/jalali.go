// Package jalali implements the Gregorian to Solar Hijri (Jalali) calendar
// date conversion and the structural validation rules for Jalali dates.
//
// The arithmetic is the classic 33-year-cycle day-count reduction: an
// absolute day number anchored at the start of Jalali year -1595 is reduced
// through 12053-day (33 years), 1461-day (4 years), and 365-day groups, then
// split into month and day using the 186-day boundary between the six 31-day
// months and the 30-day months.
package jalali

// gdays[m-1] is the number of days elapsed before Gregorian month m in a
// common year. February's leap day is accounted for by shifting the leap
// cursor to March (see FromGregorian), not by this table.
var gdays = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// eraAnchor aligns the absolute day count so that day zero falls at the
// start of Jalali year -1595.
const eraAnchor = 355666

// FromGregorian converts a Gregorian calendar date to its Jalali equivalent.
//
// The function is pure and deterministic. gm must be in 1..12; gd is taken
// as a day offset without validation, so impossible dates such as
// February 30 are processed as if they existed. Callers that accept
// arbitrary input should check the result with IsValidDate. The supported
// domain is Gregorian years >= 1; earlier years produce unspecified values.
func FromGregorian(gy, gm, gd int) (jy, jm, jd int) {
	gy2 := gy
	if gm > 2 {
		// Count the Gregorian leap day from March so the leap boundary
		// lines up with the Jalali new year.
		gy2 = gy + 1
	}

	days := eraAnchor + 365*gy + (gy2+3)/4 - (gy2+99)/100 + (gy2+399)/400 + gd + gdays[gm-1]

	// 12053 days = 33 Jalali years (25 common + 8 leap).
	jy = -1595 + 33*(days/12053)
	days %= 12053

	// 1461 days = 4 Jalali years (3 common + 1 leap).
	jy += 4 * (days / 1461)
	days %= 1461

	if days > 365 {
		jy += (days - 1) / 365
		days = (days - 1) % 365
	}

	if days < 186 {
		jm = 1 + days/31
		jd = 1 + days%31
	} else {
		jm = 7 + (days-186)/30
		jd = 1 + (days-186)%30
	}
	return jy, jm, jd
}

// DaysInMonth returns the length of the given Jalali month (1..12).
//
// Esfand (month 12) is counted with its leap-year length of 30 days; telling
// a common-year Esfand 29 apart would need the leap-cycle rule, and
// FromGregorian never produces a day beyond these bounds for real input.
func DaysInMonth(m int) int {
	if m < 7 {
		return 31
	}
	return 30
}

// IsValidDate reports whether the triple forms a structurally valid Jalali
// calendar date. Any year is acceptable: valid Gregorian inputs map to
// Jalali years as low as -621.
func IsValidDate(y, m, d int) bool {
	if m < 1 || m > 12 {
		return false
	}
	return d >= 1 && d <= DaysInMonth(m)
}

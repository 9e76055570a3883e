package service

import (
	"time"

	"gamenight-api/internal/apperr"
	"gamenight-api/internal/models"
)

// Las reglas semanales caen en miércoles, el mismo día que la regla por
// defecto (first-wednesday).
const weeklyDay = time.Wednesday

// NextOccurrences devuelve las próximas n fechas de la regla, a la hora
// clock (HH:MM) en la zona de from, estrictamente posteriores a from.
func NextOccurrences(rule, clock string, from time.Time, n int) ([]time.Time, error) {
	hm, err := time.Parse("15:04", clock)
	if err != nil {
		return nil, apperr.Validation("invalid time %q", clock)
	}
	loc := from.Location()
	at := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, loc)
	}

	out := make([]time.Time, 0, n)
	switch rule {
	case models.RecurrenceWeekly, models.RecurrenceEveryTwoWeeks:
		step := 7
		if rule == models.RecurrenceEveryTwoWeeks {
			step = 14
		}
		d := at(from.Year(), from.Month(), from.Day())
		for d.Weekday() != weeklyDay || !d.After(from) {
			d = d.AddDate(0, 0, 1)
		}
		for len(out) < n {
			out = append(out, d)
			d = d.AddDate(0, 0, step)
		}

	case models.RecurrenceFirstWednesday, models.RecurrenceSecondFriday, models.RecurrenceLastSaturday:
		y, m := from.Year(), from.Month()
		for len(out) < n {
			var day int
			switch rule {
			case models.RecurrenceFirstWednesday:
				day = nthWeekday(y, m, time.Wednesday, 1)
			case models.RecurrenceSecondFriday:
				day = nthWeekday(y, m, time.Friday, 2)
			default:
				day = lastWeekday(y, m, time.Saturday)
			}
			if t := at(y, m, day); t.After(from) {
				out = append(out, t)
			}
			m++
			if m > time.December {
				m = time.January
				y++
			}
		}

	default:
		return nil, apperr.Validation("invalid recurrenceRule %q", rule)
	}
	return out, nil
}

func nthWeekday(y int, m time.Month, wd time.Weekday, nth int) int {
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(wd) - int(first.Weekday()) + 7) % 7
	return 1 + offset + 7*(nth-1)
}

func lastWeekday(y int, m time.Month, wd time.Weekday) int {
	last := time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	offset := (int(last.Weekday()) - int(wd) + 7) % 7
	return last.Day() - offset
}

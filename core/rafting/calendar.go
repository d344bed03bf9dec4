package rafting

import "time"

// laborDay returns the first Monday of September for the given year.
func laborDay(year int) time.Time {
	d := time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}

// memorialDayWeekendStart returns the Saturday before the last Monday of May.
func memorialDayWeekendStart(year int) time.Time {
	first := time.Date(year, time.May, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(time.Monday) - int(first.Weekday()) + 7) % 7
	memorial := first.AddDate(0, 0, offset)
	for memorial.AddDate(0, 0, 7).Month() == time.May {
		memorial = memorial.AddDate(0, 0, 7)
	}
	return memorial.AddDate(0, 0, -2)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

package domain

import "time"

// Occasion is a calendar-anchored gifting occasion independent of any
// specific registry event. Either Month/Day is set (fixed date) or
// Month/Weekday/Nth (e.g. second Sunday of May).
type Occasion struct {
	Slug    string
	Name    string
	Month   time.Month
	Day     int
	Weekday time.Weekday
	Nth     int
}

// DateIn returns the occasion's date in the given year.
func (o Occasion) DateIn(year int, loc *time.Location) time.Time {
	if o.Nth == 0 {
		return time.Date(year, o.Month, o.Day, 0, 0, 0, 0, loc)
	}
	first := time.Date(year, o.Month, 1, 0, 0, 0, 0, loc)
	offset := (int(o.Weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (o.Nth-1)*7
	return time.Date(year, o.Month, day, 0, 0, 0, 0, loc)
}

// NextFrom returns the next occurrence strictly after now.
func (o Occasion) NextFrom(now time.Time) time.Time {
	d := o.DateIn(now.Year(), now.Location())
	if !d.After(now) {
		d = o.DateIn(now.Year()+1, now.Location())
	}
	return d
}

// DefaultOccasions is the built-in gifting calendar.
var DefaultOccasions = []Occasion{
	{Slug: "valentines-day", Name: "Valentine's Day", Month: time.February, Day: 14},
	{Slug: "mothers-day", Name: "Mother's Day", Month: time.May, Weekday: time.Sunday, Nth: 2},
	{Slug: "fathers-day", Name: "Father's Day", Month: time.June, Weekday: time.Sunday, Nth: 3},
	{Slug: "christmas", Name: "Christmas", Month: time.December, Day: 25},
}

package meeting

import "time"

// WeekDays is the weekday selection of a CUSTOM series.
type WeekDays struct {
	Monday    bool
	Tuesday   bool
	Wednesday bool
	Thursday  bool
	Friday    bool
	Saturday  bool
	Sunday    bool
}

// WeekDaysOf builds a selection from a list of weekdays.
func WeekDaysOf(days ...time.Weekday) WeekDays {
	var w WeekDays
	for _, d := range days {
		w.set(d)
	}
	return w
}

// Selected reports whether day is part of the selection.
func (w WeekDays) Selected(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	case time.Sunday:
		return w.Sunday
	}
	return false
}

// Any reports whether at least one weekday is selected.
func (w WeekDays) Any() bool {
	return w != WeekDays{}
}

// Days lists the selected weekdays starting on Sunday.
func (w WeekDays) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Selected(d) {
			days = append(days, d)
		}
	}
	return days
}

func (w *WeekDays) set(day time.Weekday) {
	switch day {
	case time.Monday:
		w.Monday = true
	case time.Tuesday:
		w.Tuesday = true
	case time.Wednesday:
		w.Wednesday = true
	case time.Thursday:
		w.Thursday = true
	case time.Friday:
		w.Friday = true
	case time.Saturday:
		w.Saturday = true
	case time.Sunday:
		w.Sunday = true
	}
}

package recurrence

import (
	"errors"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
)

// Series describes the parent occurrence and rule to expand.
type Series struct {
	Start     time.Time
	End       time.Time
	Frequency meeting.Frequency
	WeekDays  meeting.WeekDays
	Until     time.Time
}

// Occurrence represents a generated instance of a series.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Engine expands series definitions into occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that performs calendar arithmetic in the
// provided location. If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// ErrInvalidFrequency indicates the recurrence frequency is not supported.
var ErrInvalidFrequency = errors.New("recurrence: invalid frequency")

// ErrInvalidWindow indicates the series has no end bound.
var ErrInvalidWindow = errors.New("recurrence: series requires an end bound")

// Expand produces the ordered occurrences of a series.
//
// The engine enforces the following semantics:
//   - The cursor starts at the series start truncated to the minute.
//   - For CUSTOM series the cursor moves to the next selected weekday unless
//     today is the start weekday and that weekday is selected.
//   - Occurrences are emitted while the cursor is strictly before Until.
//   - Every occurrence keeps the duration of the parent occurrence.
func (e *Engine) Expand(s Series, now time.Time) ([]Occurrence, error) {
	loc := e.location
	if loc == nil {
		loc = time.UTC
	}

	step, err := stepFunc(s.Frequency, s.WeekDays)
	if err != nil {
		return nil, err
	}
	if s.Until.IsZero() {
		return nil, ErrInvalidWindow
	}

	duration := Duration(s.Start, s.End)
	until := s.Until.In(loc)
	cursor := s.Start.In(loc).Truncate(time.Minute)

	if s.Frequency == meeting.FrequencyCustom {
		today := now.In(loc).Weekday()
		if today != cursor.Weekday() || !s.WeekDays.Selected(today) {
			cursor = nextSelectedDay(cursor, s.WeekDays)
		}
	}

	occurrences := make([]Occurrence, 0)
	for cursor.Before(until) {
		occurrences = append(occurrences, Occurrence{
			Start: cursor,
			End:   cursor.Add(duration),
		})
		cursor = step(cursor)
	}

	return occurrences, nil
}

// Duration returns the span of an occurrence. When end is not after start the
// meeting is read as crossing midnight and the wall-clock offset is shifted by
// a day.
func Duration(start, end time.Time) time.Duration {
	if d := end.Sub(start); d > 0 {
		return d
	}
	hours := end.Hour() - start.Hour()
	if hours < 0 {
		hours += 24
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(end.Minute()-start.Minute())*time.Minute +
		time.Duration(end.Second()-start.Second())*time.Second
}

func stepFunc(freq meeting.Frequency, days meeting.WeekDays) (func(time.Time) time.Time, error) {
	switch freq {
	case meeting.FrequencyDaily:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }, nil
	case meeting.FrequencyWeekly:
		return func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }, nil
	case meeting.FrequencyMonthly:
		return addMonth, nil
	case meeting.FrequencyCustom:
		return func(t time.Time) time.Time { return nextSelectedDay(t, days) }, nil
	default:
		return nil, ErrInvalidFrequency
	}
}

// nextSelectedDay scans the six other weekdays in ascending cyclic order.
// When none of them is selected the cursor advances by one day.
func nextSelectedDay(t time.Time, days meeting.WeekDays) time.Time {
	for offset := 1; offset < 7; offset++ {
		if days.Selected(time.Weekday((int(t.Weekday()) + offset) % 7)) {
			return t.AddDate(0, 0, offset)
		}
	}
	return t.AddDate(0, 0, 1)
}

// addMonth moves to the same day of the next month, clamped to that month's
// last day.
func addMonth(t time.Time) time.Time {
	y, m, d := t.Date()
	last := time.Date(y, m+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if d > last {
		d = last
	}
	return time.Date(y, m+1, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
)

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	// Monday 2024-03-04 10:00-11:00 UTC.
	monday := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)
	engine := NewEngine(nil)

	t.Run("weekly series produces one occurrence per week before until", func(t *testing.T) {
		t.Parallel()

		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(time.Hour),
			Frequency: meeting.FrequencyWeekly,
			Until:     monday.AddDate(0, 0, 21),
		}, monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 3 {
			t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
		}
		for i, occ := range occurrences {
			want := monday.AddDate(0, 0, 7*i)
			if !occ.Start.Equal(want) {
				t.Fatalf("occurrence %d: expected start %v, got %v", i, want, occ.Start)
			}
			if occ.Start.Weekday() != time.Monday {
				t.Fatalf("occurrence %d: expected Monday, got %v", i, occ.Start.Weekday())
			}
			if occ.End.Sub(occ.Start) != time.Hour {
				t.Fatalf("occurrence %d: expected 1h, got %v", i, occ.End.Sub(occ.Start))
			}
		}
	})

	t.Run("daily series is strictly increasing and bounded", func(t *testing.T) {
		t.Parallel()

		until := monday.AddDate(0, 0, 5).Add(30 * time.Minute)
		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(45 * time.Minute),
			Frequency: meeting.FrequencyDaily,
			Until:     until,
		}, monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 6 {
			t.Fatalf("expected 6 occurrences, got %d", len(occurrences))
		}
		for i := 1; i < len(occurrences); i++ {
			if !occurrences[i].Start.After(occurrences[i-1].Start) {
				t.Fatalf("occurrences not strictly increasing at %d", i)
			}
			if got := occurrences[i].Start.Sub(occurrences[i-1].Start); got != 24*time.Hour {
				t.Fatalf("expected one day step, got %v", got)
			}
		}
		if last := occurrences[len(occurrences)-1]; !last.Start.Before(until) {
			t.Fatalf("occurrence %v not before until %v", last.Start, until)
		}
	})

	t.Run("monthly series clamps to the end of shorter months", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2024, time.January, 31, 9, 0, 0, 0, time.UTC)
		occurrences, err := engine.Expand(Series{
			Start:     start,
			End:       start.Add(time.Hour),
			Frequency: meeting.FrequencyMonthly,
			Until:     time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		}, start)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []time.Time{
			start,
			time.Date(2024, time.February, 29, 9, 0, 0, 0, time.UTC),
			time.Date(2024, time.March, 29, 9, 0, 0, 0, time.UTC),
		}
		if len(occurrences) != len(want) {
			t.Fatalf("expected %d occurrences, got %d", len(want), len(occurrences))
		}
		for i := range want {
			if !occurrences[i].Start.Equal(want[i]) {
				t.Fatalf("occurrence %d: expected %v, got %v", i, want[i], occurrences[i].Start)
			}
		}
	})

	t.Run("custom series keeps the start day when today matches a selected start weekday", func(t *testing.T) {
		t.Parallel()

		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(time.Hour),
			Frequency: meeting.FrequencyCustom,
			WeekDays:  meeting.WeekDaysOf(time.Monday, time.Wednesday),
			Until:     monday.AddDate(0, 0, 14),
		}, monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantDays := []int{4, 6, 11, 13}
		if len(occurrences) != len(wantDays) {
			t.Fatalf("expected %d occurrences, got %d", len(wantDays), len(occurrences))
		}
		for i, day := range wantDays {
			if occurrences[i].Start.Day() != day {
				t.Fatalf("occurrence %d: expected day %d, got %d", i, day, occurrences[i].Start.Day())
			}
		}
	})

	t.Run("custom series advances when today differs from the start weekday", func(t *testing.T) {
		t.Parallel()

		tuesday := monday.AddDate(0, 0, 1)
		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(time.Hour),
			Frequency: meeting.FrequencyCustom,
			WeekDays:  meeting.WeekDaysOf(time.Monday, time.Wednesday),
			Until:     monday.AddDate(0, 0, 7),
		}, tuesday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 1 || occurrences[0].Start.Weekday() != time.Wednesday {
			t.Fatalf("expected a single Wednesday occurrence, got %+v", occurrences)
		}
	})

	t.Run("custom series with only the start weekday steps daily", func(t *testing.T) {
		t.Parallel()

		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(time.Hour),
			Frequency: meeting.FrequencyCustom,
			WeekDays:  meeting.WeekDaysOf(time.Monday),
			Until:     monday.AddDate(0, 0, 14),
		}, monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 14 {
			t.Fatalf("expected 14 occurrences, got %d", len(occurrences))
		}
		for i, occ := range occurrences {
			if want := monday.AddDate(0, 0, i); !occ.Start.Equal(want) {
				t.Fatalf("occurrence %d: expected %v, got %v", i, want, occ.Start)
			}
		}
	})

	t.Run("custom series seeds one day later when only the start weekday is selected", func(t *testing.T) {
		t.Parallel()

		tuesday := monday.AddDate(0, 0, 1)
		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(time.Hour),
			Frequency: meeting.FrequencyCustom,
			WeekDays:  meeting.WeekDaysOf(time.Monday),
			Until:     monday.AddDate(0, 0, 3),
		}, tuesday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 2 || !occurrences[0].Start.Equal(tuesday) {
			t.Fatalf("expected two occurrences from Tuesday, got %+v", occurrences)
		}
	})

	t.Run("custom series wraps to the next selected weekday", func(t *testing.T) {
		t.Parallel()

		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(time.Hour),
			Frequency: meeting.FrequencyCustom,
			WeekDays:  meeting.WeekDaysOf(time.Monday, time.Saturday),
			Until:     monday.AddDate(0, 0, 14),
		}, monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantDays := []int{4, 9, 11, 16}
		if len(occurrences) != len(wantDays) {
			t.Fatalf("expected %d occurrences, got %d", len(wantDays), len(occurrences))
		}
		for i, day := range wantDays {
			if occurrences[i].Start.Day() != day {
				t.Fatalf("occurrence %d: expected day %d, got %d", i, day, occurrences[i].Start.Day())
			}
		}
	})

	t.Run("midnight crossing keeps the parent span", func(t *testing.T) {
		t.Parallel()

		start := time.Date(2024, time.March, 4, 23, 0, 0, 0, time.UTC)
		end := time.Date(2024, time.March, 4, 1, 0, 0, 0, time.UTC)
		occurrences, err := engine.Expand(Series{
			Start:     start,
			End:       end,
			Frequency: meeting.FrequencyDaily,
			Until:     start.AddDate(0, 0, 3),
		}, start)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 3 {
			t.Fatalf("expected 3 occurrences, got %d", len(occurrences))
		}
		for _, occ := range occurrences {
			if occ.End.Sub(occ.Start) != 2*time.Hour {
				t.Fatalf("expected 2h span, got %v", occ.End.Sub(occ.Start))
			}
		}
	})

	t.Run("start is truncated to the minute", func(t *testing.T) {
		t.Parallel()

		start := monday.Add(42 * time.Second)
		occurrences, err := engine.Expand(Series{
			Start:     start,
			End:       start.Add(time.Hour),
			Frequency: meeting.FrequencyDaily,
			Until:     monday.AddDate(0, 0, 1),
		}, monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 1 || !occurrences[0].Start.Equal(monday) {
			t.Fatalf("expected truncated start %v, got %+v", monday, occurrences)
		}
	})

	t.Run("rejects unsupported frequencies and unbounded series", func(t *testing.T) {
		t.Parallel()

		_, err := engine.Expand(Series{Start: monday, End: monday.Add(time.Hour), Frequency: meeting.FrequencyOnce, Until: monday.AddDate(0, 0, 1)}, monday)
		if !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("expected ErrInvalidFrequency, got %v", err)
		}
		_, err = engine.Expand(Series{Start: monday, End: monday.Add(time.Hour), Frequency: meeting.FrequencyDaily}, monday)
		if !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("until before start yields no occurrences", func(t *testing.T) {
		t.Parallel()

		occurrences, err := engine.Expand(Series{
			Start:     monday,
			End:       monday.Add(time.Hour),
			Frequency: meeting.FrequencyWeekly,
			Until:     monday.Add(-time.Hour),
		}, monday)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) != 0 {
			t.Fatalf("expected no occurrences, got %d", len(occurrences))
		}
	})
}

func TestDuration(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, time.March, 4, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		start, end time.Time
		want       time.Duration
	}{
		{"regular", base.Add(10 * time.Hour), base.Add(11*time.Hour + 30*time.Minute), 90 * time.Minute},
		{"next day end", base.Add(23 * time.Hour), base.Add(25 * time.Hour), 2 * time.Hour},
		{"same date end before start", base.Add(23 * time.Hour), base.Add(time.Hour), 2 * time.Hour},
		{"minutes wrap", base.Add(22*time.Hour + 45*time.Minute), base.Add(15 * time.Minute), 90 * time.Minute},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := Duration(tc.start, tc.end); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

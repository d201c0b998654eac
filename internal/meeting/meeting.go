// Package meeting holds the room model shared by the series engine, the
// lifecycle jobs and the stores.
package meeting

import (
	"strings"
	"time"
)

// Frequency is the recurrence kind of a room.
type Frequency string

const (
	FrequencyOnce    Frequency = "ONCE"
	FrequencyDaily   Frequency = "DAILY"
	FrequencyWeekly  Frequency = "WEEKLY"
	FrequencyMonthly Frequency = "MONTHLY"
	FrequencyCustom  Frequency = "CUSTOM"
)

// ParseFrequency normalizes a frequency name. An empty value means ONCE.
func ParseFrequency(value string) (Frequency, bool) {
	switch f := Frequency(strings.ToUpper(strings.TrimSpace(value))); f {
	case "":
		return FrequencyOnce, true
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyCustom:
		return f, true
	default:
		return "", false
	}
}

// Recurring reports whether the frequency produces a series.
func (f Frequency) Recurring() bool {
	return f != "" && f != FrequencyOnce
}

// Category distinguishes scheduled meetings from instant meetings and static rooms.
type Category string

const (
	CategoryNormal  Category = "normal"
	CategoryInstant Category = "instant"
	CategoryStatic  Category = "static"
)

// Meeting is a room row. Series roots and their generated occurrences share
// this shape; Position tells them apart.
type Meeting struct {
	ID           string
	ParentID     string
	OwnerID      string
	Name         string
	Info         string
	Password     string
	LobbyEnabled bool

	Start     time.Time
	End       time.Time
	Frequency Frequency
	WeekDays  WeekDays
	SeriesEnd *time.Time

	Instant  bool
	Static   bool
	Excluded bool

	LastVisit               *time.Time
	DeleteCandidate         bool
	RoomDeletionDueDate     *time.Time
	LastPasswordChange      *time.Time
	PasswordChangeCandidate bool
	PasswordChangeDueDate   *time.Time
	HasOrganizer            bool

	DialInCode  string
	PhoneNumber string
	SIPLink     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Category returns the room category derived from the instant and static flags.
func (m Meeting) Category() Category {
	switch {
	case m.Static:
		return CategoryStatic
	case m.Instant:
		return CategoryInstant
	default:
		return CategoryNormal
	}
}

// Position classifies the room inside a series.
func (m Meeting) Position() Position {
	if m.ParentID != "" {
		return SeriesOccurrence{ParentID: m.ParentID}
	}
	if m.Frequency.Recurring() {
		return SeriesRoot{}
	}
	return Single{}
}

// Recurrence returns the recurrence definition stored on the room.
func (m Meeting) Recurrence() Recurrence {
	r := Recurrence{Frequency: m.Frequency, WeekDays: m.WeekDays}
	if m.SeriesEnd != nil {
		r.Until = *m.SeriesEnd
	}
	if r.Frequency == "" {
		r.Frequency = FrequencyOnce
	}
	return r
}

// Position is one of Single, SeriesRoot or SeriesOccurrence.
type Position interface {
	isPosition()
}

// Single is a room that is not part of a series.
type Single struct{}

// SeriesRoot is the parent of a recurring series and owns its definition.
type SeriesRoot struct{}

// SeriesOccurrence is a generated child of a series.
type SeriesOccurrence struct {
	ParentID string
}

func (Single) isPosition()           {}
func (SeriesRoot) isPosition()       {}
func (SeriesOccurrence) isPosition() {}

// Recurrence is the series definition compared when deciding whether a
// series must be regenerated.
type Recurrence struct {
	Frequency Frequency
	Until     time.Time
	WeekDays  WeekDays
}

// Equal reports whether both definitions describe the same series.
func (r Recurrence) Equal(other Recurrence) bool {
	if r.Frequency != other.Frequency {
		return false
	}
	if !r.Until.Equal(other.Until) {
		return false
	}
	return r.WeekDays == other.WeekDays
}

// Clone returns a copy that shares no pointers with m.
func (m Meeting) Clone() Meeting {
	out := m
	out.SeriesEnd = cloneTime(m.SeriesEnd)
	out.LastVisit = cloneTime(m.LastVisit)
	out.RoomDeletionDueDate = cloneTime(m.RoomDeletionDueDate)
	out.LastPasswordChange = cloneTime(m.LastPasswordChange)
	out.PasswordChangeDueDate = cloneTime(m.PasswordChangeDueDate)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// TimePtr returns a pointer to a copy of t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

// EffectiveEnd is the instant after which the room is over: the series end
// for a series root, the end time otherwise.
func (m Meeting) EffectiveEnd() time.Time {
	if _, ok := m.Position().(SeriesRoot); ok && m.SeriesEnd != nil {
		return *m.SeriesEnd
	}
	return m.End
}

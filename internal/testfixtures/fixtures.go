package testfixtures

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

var (
	meetingCounter     uint64
	participantCounter uint64
)

// referenceTime is a Monday morning.
var referenceTime = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ---------------------------- Meeting fixtures ----------------------------

// MeetingOption configures a generated room.
type MeetingOption func(*meeting.Meeting)

// NewMeeting returns a deterministic single normal meeting with optional
// overrides. Every fixture gets its own dial-in code.
func NewMeeting(opts ...MeetingOption) meeting.Meeting {
	idx := atomic.AddUint64(&meetingCounter, 1)
	m := meeting.Meeting{
		ID:         fmt.Sprintf("meeting-%03d", idx),
		OwnerID:    "owner@example.com",
		Name:       fmt.Sprintf("Meeting %03d", idx),
		Password:   "secret",
		Start:      referenceTime,
		End:        referenceTime.Add(time.Hour),
		Frequency:  meeting.FrequencyOnce,
		DialInCode: fmt.Sprintf("%d", 1_000_000_000+idx),
		CreatedAt:  referenceTime,
		UpdatedAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// NewStaticRoom returns a static room visited and rotated at the reference time.
func NewStaticRoom(opts ...MeetingOption) meeting.Meeting {
	base := []MeetingOption{func(m *meeting.Meeting) {
		m.Static = true
		m.HasOrganizer = true
		m.LastVisit = meeting.TimePtr(referenceTime)
		m.LastPasswordChange = meeting.TimePtr(referenceTime)
	}}
	return NewMeeting(append(base, opts...)...)
}

// WithMeetingID overrides the generated id.
func WithMeetingID(id string) MeetingOption {
	return func(m *meeting.Meeting) { m.ID = id }
}

// WithOwner overrides the owner.
func WithOwner(owner string) MeetingOption {
	return func(m *meeting.Meeting) { m.OwnerID = owner }
}

// WithTimes sets start and end.
func WithTimes(start, end time.Time) MeetingOption {
	return func(m *meeting.Meeting) {
		m.Start = start
		m.End = end
	}
}

// WithSeries turns the room into a series root.
func WithSeries(freq meeting.Frequency, until time.Time, days ...time.Weekday) MeetingOption {
	return func(m *meeting.Meeting) {
		m.Frequency = freq
		m.SeriesEnd = meeting.TimePtr(until)
		m.WeekDays = meeting.WeekDaysOf(days...)
	}
}

// WithParent turns the room into an occurrence of parent.
func WithParent(parent meeting.Meeting) MeetingOption {
	return func(m *meeting.Meeting) {
		m.ParentID = parent.ID
		m.Frequency = parent.Frequency
		m.SeriesEnd = parent.SeriesEnd
		m.WeekDays = parent.WeekDays
		m.DialInCode = parent.DialInCode
	}
}

// WithExcluded marks an occurrence as excluded.
func WithExcluded() MeetingOption {
	return func(m *meeting.Meeting) { m.Excluded = true }
}

// WithLastVisit sets the last visit of a static room.
func WithLastVisit(t time.Time) MeetingOption {
	return func(m *meeting.Meeting) { m.LastVisit = meeting.TimePtr(t) }
}

// WithLastPasswordChange sets the last password rotation of a static room.
func WithLastPasswordChange(t time.Time) MeetingOption {
	return func(m *meeting.Meeting) { m.LastPasswordChange = meeting.TimePtr(t) }
}

// WithDeleteCandidate flags the room for deletion at due.
func WithDeleteCandidate(due time.Time) MeetingOption {
	return func(m *meeting.Meeting) {
		m.DeleteCandidate = true
		m.RoomDeletionDueDate = meeting.TimePtr(due)
	}
}

// WithPasswordChangeCandidate flags the room for a password rotation at due.
func WithPasswordChangeCandidate(due time.Time) MeetingOption {
	return func(m *meeting.Meeting) {
		m.PasswordChangeCandidate = true
		m.PasswordChangeDueDate = meeting.TimePtr(due)
	}
}

// WithHasOrganizer sets the organizer flag.
func WithHasOrganizer(has bool) MeetingOption {
	return func(m *meeting.Meeting) { m.HasOrganizer = has }
}

// WithDialInCode overrides the dial-in code.
func WithDialInCode(code string) MeetingOption {
	return func(m *meeting.Meeting) { m.DialInCode = code }
}

// -------------------------- Participant fixtures --------------------------

// NewParticipant returns a participant of meetingID.
func NewParticipant(meetingID, email string, role meeting.Role) meeting.Participant {
	idx := atomic.AddUint64(&participantCounter, 1)
	return meeting.Participant{
		ID:        fmt.Sprintf("participant-%03d", idx),
		MeetingID: meetingID,
		Email:     meeting.NormalizeEmail(email),
		Role:      role,
		CreatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
		UpdatedAt: referenceTime.Add(time.Duration(idx) * time.Second),
	}
}

// Owner returns the owner participant of m with the role its category implies.
func Owner(m meeting.Meeting) meeting.Participant {
	p := NewParticipant(m.ID, m.OwnerID, meeting.OwnerRole(m.Category()))
	p.UserID = m.OwnerID
	return p
}

// ------------------------------- Seeding ---------------------------------

// Seed writes rooms and participants in one unit of work, failing the test
// on error.
func Seed(tb testing.TB, store persistence.Store, meetings []meeting.Meeting, participants ...meeting.Participant) {
	tb.Helper()
	err := store.Atomic(context.Background(), func(ctx context.Context, uow persistence.UnitOfWork) error {
		if err := uow.Meetings().SaveAll(ctx, meetings); err != nil {
			return err
		}
		return uow.Participants().SaveAll(ctx, participants)
	})
	if err != nil {
		tb.Fatalf("seed store: %v", err)
	}
}

// LoadMeeting reads one room, failing the test when it is missing.
func LoadMeeting(tb testing.TB, store persistence.Store, id string) meeting.Meeting {
	tb.Helper()
	var m meeting.Meeting
	err := store.Atomic(context.Background(), func(ctx context.Context, uow persistence.UnitOfWork) error {
		var err error
		m, err = uow.Meetings().FindByID(ctx, id)
		return err
	})
	if err != nil {
		tb.Fatalf("load meeting %s: %v", id, err)
	}
	return m
}

// MeetingExists reports whether a room is stored.
func MeetingExists(tb testing.TB, store persistence.Store, id string) bool {
	tb.Helper()
	exists := false
	err := store.Atomic(context.Background(), func(ctx context.Context, uow persistence.UnitOfWork) error {
		_, err := uow.Meetings().FindByID(ctx, id)
		if err == nil {
			exists = true
			return nil
		}
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		tb.Fatalf("lookup meeting %s: %v", id, err)
	}
	return exists
}

// LoadChildren lists the occurrences of a series, excluded ones included.
func LoadChildren(tb testing.TB, store persistence.Store, parentID string) []meeting.Meeting {
	tb.Helper()
	var children []meeting.Meeting
	err := store.Atomic(context.Background(), func(ctx context.Context, uow persistence.UnitOfWork) error {
		var err error
		children, err = uow.Meetings().FindChildren(ctx, parentID, true)
		return err
	})
	if err != nil {
		tb.Fatalf("load children of %s: %v", parentID, err)
	}
	return children
}

// LoadParticipants lists the participants of a room.
func LoadParticipants(tb testing.TB, store persistence.Store, meetingID string) []meeting.Participant {
	tb.Helper()
	var participants []meeting.Participant
	err := store.Atomic(context.Background(), func(ctx context.Context, uow persistence.UnitOfWork) error {
		var err error
		participants, err = uow.Participants().FindByMeeting(ctx, meetingID)
		return err
	})
	if err != nil {
		tb.Fatalf("load participants of %s: %v", meetingID, err)
	}
	return participants
}

// LoadNotifications lists the notifications raised for a room.
func LoadNotifications(tb testing.TB, store persistence.Store, meetingID string) []meeting.Notification {
	tb.Helper()
	var notifications []meeting.Notification
	err := store.Atomic(context.Background(), func(ctx context.Context, uow persistence.UnitOfWork) error {
		var err error
		notifications, err = uow.Notifications().FindByMeeting(ctx, meetingID)
		return err
	})
	if err != nil {
		tb.Fatalf("load notifications of %s: %v", meetingID, err)
	}
	return notifications
}

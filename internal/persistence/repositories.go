package persistence

import (
	"context"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
)

// MeetingRepository stores rooms. Series are reached through parent-scoped
// queries rather than back-references.
type MeetingRepository interface {
	FindByID(ctx context.Context, id string) (meeting.Meeting, error)
	// FindChildren lists the occurrences of a series ordered by end time.
	FindChildren(ctx context.Context, parentID string, includeExcluded bool) ([]meeting.Meeting, error)
	Save(ctx context.Context, m meeting.Meeting) error
	SaveAll(ctx context.Context, ms []meeting.Meeting) error
	// Delete removes a room together with its occurrences, participants and
	// notifications.
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context, ids []string) error
	// ExistsByDialInCode checks the code against series roots and single rooms.
	ExistsByDialInCode(ctx context.Context, code string) (bool, error)
	FindStaticRooms(ctx context.Context, q StaticRoomQuery) ([]meeting.Meeting, error)
	FindEndedBefore(ctx context.Context, threshold time.Time, limit int) ([]meeting.Meeting, error)
}

// ParticipantRepository stores room participants.
type ParticipantRepository interface {
	FindByID(ctx context.Context, id string) (meeting.Participant, error)
	FindByMeeting(ctx context.Context, meetingID string) ([]meeting.Participant, error)
	Save(ctx context.Context, p meeting.Participant) error
	SaveAll(ctx context.Context, ps []meeting.Participant) error
	Delete(ctx context.Context, id string) error
	DeleteByMeeting(ctx context.Context, meetingID string) error
}

// NotificationRepository stores notification records.
type NotificationRepository interface {
	FindByMeeting(ctx context.Context, meetingID string) ([]meeting.Notification, error)
	FindCreatedBefore(ctx context.Context, threshold time.Time, limit int) ([]meeting.Notification, error)
	SaveAll(ctx context.Context, ns []meeting.Notification) error
	DeleteByMeeting(ctx context.Context, meetingID string) error
	DeleteAll(ctx context.Context, ids []string) error
}

// UnitOfWork groups the repositories bound to one transaction.
type UnitOfWork interface {
	Meetings() MeetingRepository
	Participants() ParticipantRepository
	Notifications() NotificationRepository
}

// Store runs work atomically. When fn returns an error nothing it wrote is
// kept.
type Store interface {
	Atomic(ctx context.Context, fn func(ctx context.Context, uow UnitOfWork) error) error
}

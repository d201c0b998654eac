package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

// Job names double as lock names and as the path segment of the run-now endpoint.
const (
	JobStaticRoomDeletion         = "static-room-deletion"
	JobStaticRoomPassword         = "static-room-password"
	JobStaticRoomDefaultOrganizer = "static-room-default-organizer"
	JobOldMeetings                = "old-meetings"
	JobOldNotifications           = "old-notifications"
)

// Limits bounds the chunks of a job.
type Limits struct {
	ChunkSize  int
	RetryLimit int
}

// StaticRoomPolicy holds the two thresholds of a static-room state machine.
// Rooms are acted on after DaysLimit days and flagged DaysBefore days earlier.
type StaticRoomPolicy struct {
	DaysLimit  int
	DaysBefore int
}

func (p StaticRoomPolicy) validate() error {
	if p.DaysLimit <= 0 || p.DaysBefore <= 0 || p.DaysBefore >= p.DaysLimit {
		return fmt.Errorf("invalid static room policy: days_limit=%d days_before=%d", p.DaysLimit, p.DaysBefore)
	}
	return nil
}

func daysAgo(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}

func meetingID(m meeting.Meeting) string { return m.ID }

func meetingIDs(ms []meeting.Meeting) []string {
	ids := make([]string, len(ms))
	for i, m := range ms {
		ids[i] = m.ID
	}
	return ids
}

func readStaticRooms(q persistence.StaticRoomQuery) ReadFunc[meeting.Meeting] {
	return func(ctx context.Context, uow persistence.UnitOfWork, limit int) ([]meeting.Meeting, error) {
		q.Limit = limit
		return uow.Meetings().FindStaticRooms(ctx, q)
	}
}

func deleteRooms(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting) error {
	return uow.Meetings().DeleteAll(ctx, meetingIDs(rooms))
}

// notifyOrganizers saves the notifications build returns for every room. A
// failure on one room does not stop the others; all failures are returned
// together and the surrounding chunk is retried.
func notifyOrganizers(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting, build func(meeting.Meeting, []meeting.Participant) []meeting.Notification) error {
	var result *multierror.Error
	for _, m := range rooms {
		participants, err := uow.Participants().FindByMeeting(ctx, m.ID)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("participants of %s: %w", m.ID, err))
			continue
		}
		notices := build(m, participants)
		if len(notices) == 0 {
			continue
		}
		if err := uow.Notifications().SaveAll(ctx, notices); err != nil {
			result = multierror.Append(result, fmt.Errorf("notify organizers of %s: %w", m.ID, err))
		}
	}
	return result.ErrorOrNil()
}

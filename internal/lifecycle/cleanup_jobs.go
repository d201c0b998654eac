package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

// NewOldMeetingsJob returns the job that deletes scheduled meetings and whole
// series that ended before the start of the day days ago. Static rooms are
// left to the deletion job.
func NewOldMeetingsJob(days int, limits Limits) (Job, error) {
	if days <= 0 {
		return Job{}, fmt.Errorf("invalid old meeting retention: %d days", days)
	}
	return Job{
		Name:       JobOldMeetings,
		ChunkSize:  limits.ChunkSize,
		RetryLimit: limits.RetryLimit,
		Plan: func(now time.Time) []Step {
			threshold := startOfDay(daysAgo(now, days))
			return []Step{
				NewStep("delete_ended", func(ctx context.Context, uow persistence.UnitOfWork, limit int) ([]meeting.Meeting, error) {
					return uow.Meetings().FindEndedBefore(ctx, threshold, limit)
				}, deleteRooms, meetingID),
			}
		},
	}, nil
}

// NewOldNotificationsJob returns the job that deletes notifications older
// than days.
func NewOldNotificationsJob(days int, limits Limits) (Job, error) {
	if days <= 0 {
		return Job{}, fmt.Errorf("invalid notification retention: %d days", days)
	}
	return Job{
		Name:       JobOldNotifications,
		ChunkSize:  limits.ChunkSize,
		RetryLimit: limits.RetryLimit,
		Plan: func(now time.Time) []Step {
			threshold := daysAgo(now, days)
			return []Step{
				NewStep("delete_old", func(ctx context.Context, uow persistence.UnitOfWork, limit int) ([]meeting.Notification, error) {
					return uow.Notifications().FindCreatedBefore(ctx, threshold, limit)
				}, func(ctx context.Context, uow persistence.UnitOfWork, ns []meeting.Notification) error {
					ids := make([]string, len(ns))
					for i, n := range ns {
						ids[i] = n.ID
					}
					return uow.Notifications().DeleteAll(ctx, ids)
				}, func(n meeting.Notification) string { return n.ID }),
			}
		},
	}, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

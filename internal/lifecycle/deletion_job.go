package lifecycle

import (
	"context"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/notification"
	"github.com/example/meeting-rooms/internal/persistence"
)

// NewStaticRoomDeletionJob returns the job that removes static rooms nobody
// visited for policy.DaysLimit days. Rooms idle for policy.DaysBefore days
// are flagged first and their organizers warned; a later visit clears the flag.
func NewStaticRoomDeletionJob(policy StaticRoomPolicy, limits Limits, notices *notification.Builder) (Job, error) {
	if err := policy.validate(); err != nil {
		return Job{}, err
	}
	return Job{
		Name:       JobStaticRoomDeletion,
		ChunkSize:  limits.ChunkSize,
		RetryLimit: limits.RetryLimit,
		Plan: func(now time.Time) []Step {
			warnFrom := daysAgo(now, policy.DaysBefore)
			return []Step{
				NewStep("delete_inactive", readStaticRooms(persistence.StaticRoomQuery{
					Field:     persistence.FieldLastVisit,
					Compare:   persistence.AtOrBefore,
					Threshold: daysAgo(now, policy.DaysLimit),
				}), deleteRooms, meetingID),
				NewStep("reset_candidates", readStaticRooms(persistence.StaticRoomQuery{
					Field:     persistence.FieldLastVisit,
					Compare:   persistence.After,
					Threshold: warnFrom,
					Candidate: persistence.Flag(true),
				}), func(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting) error {
					for i := range rooms {
						rooms[i].DeleteCandidate = false
						rooms[i].RoomDeletionDueDate = nil
						rooms[i].UpdatedAt = now
					}
					return uow.Meetings().SaveAll(ctx, rooms)
				}, meetingID),
				NewStep("mark_candidates", readStaticRooms(persistence.StaticRoomQuery{
					Field:     persistence.FieldLastVisit,
					Compare:   persistence.Before,
					Threshold: warnFrom,
					Candidate: persistence.Flag(false),
				}), func(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting) error {
					due := now.AddDate(0, 0, policy.DaysBefore)
					for i := range rooms {
						rooms[i].DeleteCandidate = true
						rooms[i].RoomDeletionDueDate = meeting.TimePtr(due)
						rooms[i].UpdatedAt = now
					}
					if err := uow.Meetings().SaveAll(ctx, rooms); err != nil {
						return err
					}
					return notifyOrganizers(ctx, uow, rooms, notices.DeleteCandidate)
				}, meetingID),
			}
		},
	}, nil
}

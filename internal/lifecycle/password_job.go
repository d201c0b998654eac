package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/notification"
	"github.com/example/meeting-rooms/internal/persistence"
)

// NewStaticRoomPasswordJob returns the job that rotates the password of a
// static room once it is policy.DaysLimit days old. Organizers are warned
// policy.DaysBefore days ahead and told the new password date after rotation.
func NewStaticRoomPasswordJob(policy StaticRoomPolicy, limits Limits, passwords *PasswordGenerator, notices *notification.Builder) (Job, error) {
	if err := policy.validate(); err != nil {
		return Job{}, err
	}
	if passwords == nil {
		return Job{}, fmt.Errorf("%w: no password generator", ErrInvalidPasswordPolicy)
	}
	return Job{
		Name:       JobStaticRoomPassword,
		ChunkSize:  limits.ChunkSize,
		RetryLimit: limits.RetryLimit,
		Plan: func(now time.Time) []Step {
			warnFrom := daysAgo(now, policy.DaysBefore)
			return []Step{
				NewStep("rotate_passwords", readStaticRooms(persistence.StaticRoomQuery{
					Field:     persistence.FieldLastPasswordChange,
					Compare:   persistence.AtOrBefore,
					Threshold: daysAgo(now, policy.DaysLimit),
				}), func(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting) error {
					for i := range rooms {
						password, err := passwords.Generate()
						if err != nil {
							return err
						}
						rooms[i].Password = password
						rooms[i].LastPasswordChange = meeting.TimePtr(now)
						rooms[i].PasswordChangeCandidate = false
						rooms[i].PasswordChangeDueDate = nil
						rooms[i].UpdatedAt = now
					}
					if err := uow.Meetings().SaveAll(ctx, rooms); err != nil {
						return err
					}
					return notifyOrganizers(ctx, uow, rooms, notices.PasswordChanged)
				}, meetingID),
				NewStep("reset_candidates", readStaticRooms(persistence.StaticRoomQuery{
					Field:     persistence.FieldLastPasswordChange,
					Compare:   persistence.After,
					Threshold: warnFrom,
					Candidate: persistence.Flag(true),
				}), func(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting) error {
					for i := range rooms {
						rooms[i].PasswordChangeCandidate = false
						rooms[i].PasswordChangeDueDate = nil
						rooms[i].UpdatedAt = now
					}
					return uow.Meetings().SaveAll(ctx, rooms)
				}, meetingID),
				NewStep("mark_candidates", readStaticRooms(persistence.StaticRoomQuery{
					Field:     persistence.FieldLastPasswordChange,
					Compare:   persistence.Before,
					Threshold: warnFrom,
					Candidate: persistence.Flag(false),
				}), func(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting) error {
					due := now.AddDate(0, 0, policy.DaysBefore)
					for i := range rooms {
						rooms[i].PasswordChangeCandidate = true
						rooms[i].PasswordChangeDueDate = meeting.TimePtr(due)
						rooms[i].UpdatedAt = now
					}
					if err := uow.Meetings().SaveAll(ctx, rooms); err != nil {
						return err
					}
					return notifyOrganizers(ctx, uow, rooms, notices.PasswordChangeCandidate)
				}, meetingID),
			}
		},
	}, nil
}

package lifecycle

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/example/meeting-rooms/internal/identity"
	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

// DefaultOrganizer resolves the configured default organizer through the
// directory on first use and keeps the answer. Concurrent first lookups share
// one directory call. Failed lookups are not kept, so the next run asks again.
type DefaultOrganizer struct {
	email     string
	directory identity.Directory
	group     singleflight.Group
	resolved  atomic.Pointer[identity.User]
}

// NewDefaultOrganizer returns a resolver for email. A nil directory makes
// the address its own user name.
func NewDefaultOrganizer(email string, directory identity.Directory) *DefaultOrganizer {
	return &DefaultOrganizer{email: meeting.NormalizeEmail(email), directory: directory}
}

// Configured reports whether a default organizer address was set.
func (o *DefaultOrganizer) Configured() bool {
	return o != nil && o.email != ""
}

// Resolve returns the directory entry of the default organizer. An address
// the directory does not know falls back to the address itself.
func (o *DefaultOrganizer) Resolve(ctx context.Context) (identity.User, error) {
	if u := o.resolved.Load(); u != nil {
		return *u, nil
	}
	v, err, _ := o.group.Do(o.email, func() (any, error) {
		if u := o.resolved.Load(); u != nil {
			return *u, nil
		}
		user := identity.User{Email: o.email, Username: o.email}
		if o.directory != nil {
			found, err := o.directory.LookupByEmail(ctx, o.email)
			switch {
			case err == nil:
				user = found
			case !errors.Is(err, identity.ErrUnknownUser):
				return identity.User{}, err
			}
		}
		user.Email = meeting.NormalizeEmail(user.Email)
		if strings.TrimSpace(user.Username) == "" {
			user.Username = user.Email
		}
		o.resolved.Store(&user)
		return user, nil
	})
	if err != nil {
		return identity.User{}, err
	}
	return v.(identity.User), nil
}

// NewDefaultOrganizerJob returns the job that gives every static room without
// an organizer the default organizer. An existing participant with that
// address is promoted; otherwise an organizer participant is added. The job
// has no steps when no default organizer is configured.
func NewDefaultOrganizerJob(organizer *DefaultOrganizer, limits Limits, idGenerator func() string) Job {
	return Job{
		Name:       JobStaticRoomDefaultOrganizer,
		ChunkSize:  limits.ChunkSize,
		RetryLimit: limits.RetryLimit,
		Plan: func(now time.Time) []Step {
			if !organizer.Configured() {
				return nil
			}
			return []Step{
				NewStep("assign_organizer", readStaticRooms(persistence.StaticRoomQuery{
					WithoutOrganizer: true,
				}), func(ctx context.Context, uow persistence.UnitOfWork, rooms []meeting.Meeting) error {
					user, err := organizer.Resolve(ctx)
					if err != nil {
						return err
					}
					for i := range rooms {
						if err := assignOrganizer(ctx, uow, rooms[i], user, idGenerator, now); err != nil {
							return err
						}
						rooms[i].HasOrganizer = true
						rooms[i].UpdatedAt = now
					}
					return uow.Meetings().SaveAll(ctx, rooms)
				}, meetingID),
			}
		},
	}
}

func assignOrganizer(ctx context.Context, uow persistence.UnitOfWork, m meeting.Meeting, user identity.User, idGenerator func() string, now time.Time) error {
	participants, err := uow.Participants().FindByMeeting(ctx, m.ID)
	if err != nil {
		return err
	}
	for _, p := range participants {
		if meeting.NormalizeEmail(p.Email) != user.Email {
			continue
		}
		p.Role = meeting.RoleOrganizer
		if p.UserID == "" {
			p.UserID = user.Username
		}
		p.UpdatedAt = now
		return uow.Participants().Save(ctx, p)
	}
	return uow.Participants().Save(ctx, meeting.Participant{
		ID:        idGenerator(),
		MeetingID: m.ID,
		UserID:    user.Username,
		Email:     user.Email,
		Role:      meeting.RoleOrganizer,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

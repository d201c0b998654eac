package testfixtures

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

func runAtomic(t *testing.T, store persistence.Store, fn func(ctx context.Context, uow persistence.UnitOfWork) error) error {
	t.Helper()
	return store.Atomic(context.Background(), fn)
}

// RunStoreContract checks the behaviour every persistence.Store must share.
// open returns an empty store for each case.
func RunStoreContract(t *testing.T, open func(tb testing.TB) persistence.Store) {
	t.Helper()

	t.Run("dial in code unique among roots", func(t *testing.T) {
		t.Parallel()

		store := open(t)
		parent := NewMeeting(WithDialInCode("1234567890"),
			WithSeries(meeting.FrequencyWeekly, ReferenceTime().AddDate(0, 0, 14)))
		child := NewMeeting(WithParent(parent))
		Seed(t, store, []meeting.Meeting{parent, child})

		err := runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			taken, err := uow.Meetings().ExistsByDialInCode(ctx, "1234567890")
			require.NoError(t, err)
			assert.True(t, taken)

			free, err := uow.Meetings().ExistsByDialInCode(ctx, "9999999999")
			require.NoError(t, err)
			assert.False(t, free)

			return uow.Meetings().Save(ctx, NewMeeting(WithDialInCode("1234567890")))
		})
		require.ErrorIs(t, err, persistence.ErrDuplicateDialInCode)
		assert.ErrorIs(t, err, persistence.ErrDuplicate)
	})

	t.Run("atomic rolls back", func(t *testing.T) {
		t.Parallel()

		store := open(t)
		room := NewMeeting()
		boom := errors.New("boom")

		err := runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			require.NoError(t, uow.Meetings().Save(ctx, room))
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.False(t, MeetingExists(t, store, room.ID))
	})

	t.Run("delete cascades", func(t *testing.T) {
		t.Parallel()

		store := open(t)
		parent := NewMeeting(WithSeries(meeting.FrequencyDaily, ReferenceTime().AddDate(0, 0, 3)))
		child := NewMeeting(WithParent(parent))
		Seed(t, store, []meeting.Meeting{parent, child},
			Owner(parent), Owner(child))

		err := runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			if err := uow.Notifications().SaveAll(ctx, []meeting.Notification{
				{ID: "n-1", MeetingID: child.ID, CreatedAt: ReferenceTime()},
			}); err != nil {
				return err
			}
			return uow.Meetings().Delete(ctx, parent.ID)
		})
		require.NoError(t, err)

		assert.False(t, MeetingExists(t, store, child.ID))
		assert.Empty(t, LoadParticipants(t, store, child.ID))
		assert.Empty(t, LoadNotifications(t, store, child.ID))

		err = runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			return uow.Meetings().Delete(ctx, parent.ID)
		})
		require.ErrorIs(t, err, persistence.ErrNotFound)
	})

	t.Run("participant needs meeting", func(t *testing.T) {
		t.Parallel()

		store := open(t)
		err := runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			return uow.Participants().Save(ctx, NewParticipant("missing", "a@example.com", meeting.RoleGuest))
		})
		require.ErrorIs(t, err, persistence.ErrConstraintViolation)
	})

	t.Run("find children orders by end", func(t *testing.T) {
		t.Parallel()

		store := open(t)
		ref := ReferenceTime()
		parent := NewMeeting(WithSeries(meeting.FrequencyDaily, ref.AddDate(0, 0, 5)))
		late := NewMeeting(WithParent(parent), WithTimes(ref.AddDate(0, 0, 2), ref.AddDate(0, 0, 2).Add(time.Hour)))
		early := NewMeeting(WithParent(parent), WithTimes(ref, ref.Add(time.Hour)))
		skipped := NewMeeting(WithParent(parent), WithExcluded(),
			WithTimes(ref.AddDate(0, 0, 1), ref.AddDate(0, 0, 1).Add(time.Hour)))
		Seed(t, store, []meeting.Meeting{parent, late, early, skipped})

		err := runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			live, err := uow.Meetings().FindChildren(ctx, parent.ID, false)
			require.NoError(t, err)
			require.Len(t, live, 2)
			assert.Equal(t, early.ID, live[0].ID)
			assert.Equal(t, late.ID, live[1].ID)

			all, err := uow.Meetings().FindChildren(ctx, parent.ID, true)
			require.NoError(t, err)
			assert.Len(t, all, 3)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("lifecycle queries", func(t *testing.T) {
		t.Parallel()

		store := open(t)
		ref := ReferenceTime()
		stale := NewStaticRoom(WithLastVisit(ref.AddDate(0, 0, -200)))
		fresh := NewStaticRoom()
		flagged := NewStaticRoom(WithLastVisit(ref.AddDate(0, 0, -200)), WithDeleteCandidate(ref))
		orphan := NewStaticRoom(WithHasOrganizer(false))
		ended := NewMeeting(WithTimes(ref.AddDate(0, 0, -40), ref.AddDate(0, 0, -40).Add(time.Hour)))
		series := NewMeeting(
			WithTimes(ref.AddDate(0, 0, -60), ref.AddDate(0, 0, -60).Add(time.Hour)),
			WithSeries(meeting.FrequencyWeekly, ref.AddDate(0, 0, 10)))
		Seed(t, store, []meeting.Meeting{stale, fresh, flagged, orphan, ended, series})

		err := runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			rooms, err := uow.Meetings().FindStaticRooms(ctx, persistence.StaticRoomQuery{
				Field:     persistence.FieldLastVisit,
				Compare:   persistence.AtOrBefore,
				Threshold: ref.AddDate(0, 0, -180),
				Candidate: persistence.Flag(false),
			})
			require.NoError(t, err)
			require.Len(t, rooms, 1)
			assert.Equal(t, stale.ID, rooms[0].ID)

			rooms, err = uow.Meetings().FindStaticRooms(ctx, persistence.StaticRoomQuery{WithoutOrganizer: true})
			require.NoError(t, err)
			require.Len(t, rooms, 1)
			assert.Equal(t, orphan.ID, rooms[0].ID)

			rooms, err = uow.Meetings().FindStaticRooms(ctx, persistence.StaticRoomQuery{Limit: 2})
			require.NoError(t, err)
			assert.Len(t, rooms, 2)

			old, err := uow.Meetings().FindEndedBefore(ctx, ref.AddDate(0, 0, -30), 0)
			require.NoError(t, err)
			require.Len(t, old, 1, "a series is judged by its series end")
			assert.Equal(t, ended.ID, old[0].ID)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("notifications created before", func(t *testing.T) {
		t.Parallel()

		store := open(t)
		ref := ReferenceTime()
		err := runAtomic(t, store, func(ctx context.Context, uow persistence.UnitOfWork) error {
			require.NoError(t, uow.Notifications().SaveAll(ctx, []meeting.Notification{
				{ID: "n-1", CreatedAt: ref.AddDate(0, 0, -90)},
				{ID: "n-2", CreatedAt: ref.AddDate(0, 0, -80)},
				{ID: "n-3", CreatedAt: ref},
			}))

			old, err := uow.Notifications().FindCreatedBefore(ctx, ref.AddDate(0, 0, -30), 1)
			require.NoError(t, err)
			require.Len(t, old, 1)
			assert.Equal(t, "n-1", old[0].ID)

			require.NoError(t, uow.Notifications().DeleteAll(ctx, []string{"n-1", "n-2"}))
			old, err = uow.Notifications().FindCreatedBefore(ctx, ref.AddDate(0, 0, -30), 0)
			require.NoError(t, err)
			assert.Empty(t, old)
			return nil
		})
		require.NoError(t, err)
	})
}

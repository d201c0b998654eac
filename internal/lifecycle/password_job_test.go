package lifecycle_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/lifecycle"
	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/testfixtures"
)

func TestStaticRoomPasswordJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime().AddDate(0, 3, 0))
	factory := testfixtures.NewServiceFactory(testfixtures.WithClock(clock))
	store := testfixtures.NewMemoryStore(t)
	now := clock.Now()

	expired := testfixtures.NewStaticRoom(
		testfixtures.WithLastPasswordChange(clock.DaysAgo(30)),
		testfixtures.WithPasswordChangeCandidate(now),
	)
	upcoming := testfixtures.NewStaticRoom(testfixtures.WithLastPasswordChange(clock.DaysAgo(10)))
	rotatedByHand := testfixtures.NewStaticRoom(
		testfixtures.WithLastPasswordChange(clock.DaysAgo(1)),
		testfixtures.WithPasswordChangeCandidate(now.AddDate(0, 0, 2)),
	)
	recent := testfixtures.NewStaticRoom(testfixtures.WithLastPasswordChange(clock.DaysAgo(2)))
	testfixtures.Seed(t, store,
		[]meeting.Meeting{expired, upcoming, rotatedByHand, recent},
		testfixtures.Owner(expired), testfixtures.Owner(upcoming),
		testfixtures.NewParticipant(upcoming.ID, "guest@example.com", meeting.RoleGuest),
	)

	passwords, err := lifecycle.NewPasswordGenerator("xyz", 12)
	require.NoError(t, err)
	job, err := lifecycle.NewStaticRoomPasswordJob(
		lifecycle.StaticRoomPolicy{DaysLimit: 30, DaysBefore: 5},
		lifecycle.Limits{ChunkSize: 10, RetryLimit: 3},
		passwords,
		factory.Notifications(),
	)
	require.NoError(t, err)
	runner := newRunner(store, nil, clock)

	report, err := runner.Run(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, []lifecycle.StepReport{
		{Name: "rotate_passwords", Chunks: 1, Items: 1},
		{Name: "reset_candidates", Chunks: 1, Items: 1},
		{Name: "mark_candidates", Chunks: 1, Items: 1},
	}, report.Steps)

	rotated := testfixtures.LoadMeeting(t, store, expired.ID)
	assert.Len(t, rotated.Password, 12)
	assert.Empty(t, strings.Trim(rotated.Password, "xyz"))
	require.NotNil(t, rotated.LastPasswordChange)
	assert.Equal(t, now, *rotated.LastPasswordChange)
	assert.False(t, rotated.PasswordChangeCandidate)
	assert.Nil(t, rotated.PasswordChangeDueDate)

	changed := testfixtures.LoadNotifications(t, store, expired.ID)
	require.Len(t, changed, 1)
	assert.Equal(t, meeting.NotificationPasswordChanged, changed[0].Type)
	assert.Equal(t, expired.OwnerID, changed[0].UserID)

	marked := testfixtures.LoadMeeting(t, store, upcoming.ID)
	assert.True(t, marked.PasswordChangeCandidate)
	require.NotNil(t, marked.PasswordChangeDueDate)
	assert.Equal(t, now.AddDate(0, 0, 5), *marked.PasswordChangeDueDate)
	assert.Equal(t, upcoming.Password, marked.Password)

	warned := testfixtures.LoadNotifications(t, store, upcoming.ID)
	require.Len(t, warned, 1, "only organizers are warned")
	assert.Equal(t, meeting.NotificationPasswordChangeCandidate, warned[0].Type)
	require.NotNil(t, warned[0].PasswordChangeDueDate)
	assert.Equal(t, now.AddDate(0, 0, 5), *warned[0].PasswordChangeDueDate)

	reset := testfixtures.LoadMeeting(t, store, rotatedByHand.ID)
	assert.False(t, reset.PasswordChangeCandidate)
	assert.Nil(t, reset.PasswordChangeDueDate)

	assert.Equal(t, recent, testfixtures.LoadMeeting(t, store, recent.ID))

	t.Run("second run changes nothing", func(t *testing.T) {
		again, err := runner.Run(ctx, job)
		require.NoError(t, err)
		assert.Zero(t, again.Items())
		assert.Len(t, testfixtures.LoadNotifications(t, store, expired.ID), 1)
		assert.Len(t, testfixtures.LoadNotifications(t, store, upcoming.ID), 1)
		assert.Equal(t, rotated.Password, testfixtures.LoadMeeting(t, store, expired.ID).Password)
	})

	t.Run("candidates are rotated at the limit", func(t *testing.T) {
		clock.AdvanceDays(20)
		_, err := runner.Run(ctx, job)
		require.NoError(t, err)

		room := testfixtures.LoadMeeting(t, store, upcoming.ID)
		assert.NotEqual(t, upcoming.Password, room.Password)
		assert.False(t, room.PasswordChangeCandidate)
		assert.Len(t, testfixtures.LoadNotifications(t, store, upcoming.ID), 2)
	})
}

func TestStaticRoomPasswordJob_RequiresGenerator(t *testing.T) {
	t.Parallel()

	_, err := lifecycle.NewStaticRoomPasswordJob(lifecycle.StaticRoomPolicy{DaysLimit: 30, DaysBefore: 5}, lifecycle.Limits{}, nil, nil)
	require.ErrorIs(t, err, lifecycle.ErrInvalidPasswordPolicy)
}

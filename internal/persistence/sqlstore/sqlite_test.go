package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/testfixtures"
)

func TestSQLiteStoreContract(t *testing.T) {
	t.Parallel()

	testfixtures.RunStoreContract(t, func(tb testing.TB) persistence.Store {
		return testfixtures.NewSQLiteStore(tb)
	})
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	store := testfixtures.NewSQLiteStore(t)
	version, err := store.Migrate()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}

func TestSQLiteStore_RoundTripsMeeting(t *testing.T) {
	t.Parallel()

	store := testfixtures.NewSQLiteStore(t)
	ref := testfixtures.ReferenceTime()
	room := testfixtures.NewMeeting(
		testfixtures.WithSeries(meeting.FrequencyCustom, ref.AddDate(0, 1, 0), time.Monday, time.Friday),
		testfixtures.WithDialInCode("4242424242"))
	room.LobbyEnabled = true
	testfixtures.Seed(t, store, []meeting.Meeting{room}, testfixtures.Owner(room))

	got := testfixtures.LoadMeeting(t, store, room.ID)
	assert.Equal(t, room.Name, got.Name)
	assert.Equal(t, meeting.FrequencyCustom, got.Frequency)
	assert.True(t, got.WeekDays.Selected(time.Monday))
	assert.True(t, got.WeekDays.Selected(time.Friday))
	assert.False(t, got.WeekDays.Selected(time.Sunday))
	assert.True(t, got.LobbyEnabled)
	assert.True(t, got.Start.Equal(room.Start))
	assert.True(t, got.End.Equal(room.End))
	require.NotNil(t, got.SeriesEnd)
	assert.True(t, got.SeriesEnd.Equal(*room.SeriesEnd))
	assert.Nil(t, got.LastVisit)
	assert.Equal(t, "4242424242", got.DialInCode)

	participants := testfixtures.LoadParticipants(t, store, room.ID)
	require.Len(t, participants, 1)
	assert.Equal(t, meeting.RoleModerator, participants[0].Role)
	assert.Equal(t, meeting.OwnerRole(room.Category()), participants[0].Role)
}

func TestSQLiteStore_WeeklySeriesThroughService(t *testing.T) {
	t.Parallel()

	store := testfixtures.NewSQLiteStore(t)
	svc := testfixtures.NewServiceFactory().NewMeetingService(store)

	start := time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC)
	parent, err := svc.Create(context.Background(), application.CreateMeetingParams{
		OwnerID: "owner@example.com",
		Input: application.MeetingInput{
			Category: meeting.CategoryNormal,
			Name:     "Weekly sync",
			Start:    start,
			End:      start.Add(30 * time.Minute),
			Recurrence: &application.RecurrenceInput{
				Frequency: "weekly",
				Until:     start.AddDate(0, 0, 21),
			},
		},
	})
	require.NoError(t, err)

	children := testfixtures.LoadChildren(t, store, parent.ID)
	require.Len(t, children, 3)
	for i, child := range children {
		assert.True(t, child.Start.Equal(start.AddDate(0, 0, 7*i)), "occurrence %d", i)
		assert.Equal(t, parent.DialInCode, child.DialInCode)
		assert.Len(t, testfixtures.LoadParticipants(t, store, child.ID), 1)
	}

	outcome, err := svc.Delete(context.Background(), children[1].ID)
	require.NoError(t, err)
	assert.Equal(t, application.DeleteOutcomeExcluded, outcome)
	assert.True(t, testfixtures.LoadMeeting(t, store, children[1].ID).Excluded)
}

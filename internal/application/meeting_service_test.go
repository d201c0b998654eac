package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/application"
	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/testfixtures"
)

// 2024-01-08 is the Monday after the fixture reference time.
var seriesStart = time.Date(2024, time.January, 8, 10, 0, 0, 0, time.UTC)

func weeklyInput(weeks int, participants ...application.ParticipantInput) application.MeetingInput {
	return application.MeetingInput{
		Category: meeting.CategoryNormal,
		Name:     "Planning",
		Password: "pw",
		Start:    seriesStart,
		End:      seriesStart.Add(time.Hour),
		Recurrence: &application.RecurrenceInput{
			Frequency: "weekly",
			Until:     seriesStart.AddDate(0, 0, 7*weeks),
		},
		Participants: participants,
	}
}

func newMeetingHarness(t *testing.T) (*application.MeetingService, *testfixtures.ServiceFactory, persistence.Store) {
	t.Helper()
	factory := testfixtures.NewServiceFactory()
	store := testfixtures.NewMemoryStore(t)
	return factory.NewMeetingService(store), factory, store
}

func TestMeetingService_CreateWeeklySeries(t *testing.T) {
	t.Parallel()

	svc, _, store := newMeetingHarness(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, application.CreateMeetingParams{
		OwnerID: "Owner@Example.com",
		Input:   weeklyInput(3, application.ParticipantInput{Email: "guest@example.com"}),
	})
	require.NoError(t, err)
	assert.IsType(t, meeting.SeriesRoot{}, parent.Position())
	assert.Equal(t, meeting.FrequencyWeekly, parent.Frequency)
	require.NotNil(t, parent.SeriesEnd)
	assert.Len(t, parent.DialInCode, 10)

	children := testfixtures.LoadChildren(t, store, parent.ID)
	require.Len(t, children, 3)
	for i, child := range children {
		want := seriesStart.AddDate(0, 0, 7*i)
		assert.Equal(t, want, child.Start, "occurrence %d", i)
		assert.Equal(t, time.Monday, child.Start.Weekday())
		assert.Equal(t, time.Hour, child.End.Sub(child.Start))
		assert.Equal(t, parent.ID, child.ParentID)
		assert.Equal(t, parent.DialInCode, child.DialInCode)
		assert.Equal(t, "Planning", child.Name)
		assert.Equal(t, "pw", child.Password)

		participants := testfixtures.LoadParticipants(t, store, child.ID)
		require.Len(t, participants, 2)
	}

	participants := testfixtures.LoadParticipants(t, store, parent.ID)
	require.Len(t, participants, 2)
	assert.Equal(t, "owner@example.com", participants[0].Email)
	assert.Equal(t, meeting.RoleModerator, participants[0].Role)
	assert.Equal(t, meeting.RoleGuest, participants[1].Role)
	assert.False(t, parent.HasOrganizer)
	assert.Empty(t, testfixtures.LoadNotifications(t, store, parent.ID))
}

func TestMeetingService_CreateCustomSeries(t *testing.T) {
	t.Parallel()

	svc, _, store := newMeetingHarness(t)
	in := weeklyInput(1)
	in.Recurrence.Frequency = ""
	in.Recurrence.WeekDays = meeting.WeekDaysOf(time.Monday, time.Wednesday)

	parent, err := svc.Create(context.Background(), application.CreateMeetingParams{OwnerID: "owner@example.com", Input: in})
	require.NoError(t, err)
	assert.Equal(t, meeting.FrequencyCustom, parent.Frequency)

	children := testfixtures.LoadChildren(t, store, parent.ID)
	require.Len(t, children, 2)
	assert.Equal(t, time.Monday, children[0].Start.Weekday())
	assert.Equal(t, time.Wednesday, children[1].Start.Weekday())
}

func TestMeetingService_CreateStaticRoom(t *testing.T) {
	t.Parallel()

	svc, factory, store := newMeetingHarness(t)
	svc.WithDialIn(application.DialIn{PhoneNumber: "+49 30 123", SIPLink: "sip:rooms@example.com"})

	room, err := svc.Create(context.Background(), application.CreateMeetingParams{
		OwnerID: "owner@example.com",
		Input: application.MeetingInput{
			Category: meeting.CategoryStatic,
			Name:     "Team room",
			Password: "pw",
			Participants: []application.ParticipantInput{
				{Email: "OWNER@example.com", Role: "guest"},
				{Email: "mod@example.com", Role: "moderator"},
				{Email: "mod@example.com", Role: "guest"},
			},
		},
	})
	require.NoError(t, err)

	now := factory.Clock.Now()
	assert.True(t, room.Static)
	assert.True(t, room.HasOrganizer)
	assert.Equal(t, meeting.CategoryStatic, room.Category())
	require.NotNil(t, room.LastVisit)
	require.NotNil(t, room.LastPasswordChange)
	assert.Equal(t, now, *room.LastVisit)
	assert.Equal(t, now, *room.LastPasswordChange)
	assert.Equal(t, "+49 30 123", room.PhoneNumber)
	assert.Equal(t, "sip:rooms@example.com", room.SIPLink)

	participants := testfixtures.LoadParticipants(t, store, room.ID)
	require.Len(t, participants, 2, "the owner and a deduplicated moderator")
	assert.Equal(t, meeting.RoleOrganizer, participants[0].Role)
	assert.Equal(t, meeting.RoleModerator, participants[1].Role)

	notices := testfixtures.LoadNotifications(t, store, room.ID)
	require.Len(t, notices, 1)
	assert.Equal(t, "mod@example.com", notices[0].UserID)
	assert.Equal(t, meeting.NotificationParticipantAdded, notices[0].Type)
	assert.Contains(t, notices[0].Message, testfixtures.PortalDomain+testfixtures.JoinPath+room.ID)
}

func TestMeetingService_CreateValidation(t *testing.T) {
	t.Parallel()

	svc, _, _ := newMeetingHarness(t)
	ctx := context.Background()

	cases := map[string]struct {
		owner  string
		mutate func(*application.MeetingInput)
		field  string
	}{
		"owner required":       {"", func(*application.MeetingInput) {}, "owner"},
		"name required":        {"o@example.com", func(in *application.MeetingInput) { in.Name = "  " }, "name"},
		"end before start":     {"o@example.com", func(in *application.MeetingInput) { in.End = in.Start.Add(-time.Minute) }, "end"},
		"unknown frequency":    {"o@example.com", func(in *application.MeetingInput) { in.Recurrence.Frequency = "yearly" }, "recurrence.frequency"},
		"custom without days":  {"o@example.com", func(in *application.MeetingInput) { in.Recurrence.Frequency = "custom" }, "recurrence.weekDays"},
		"series end too early": {"o@example.com", func(in *application.MeetingInput) { in.Recurrence.Until = in.Start }, "recurrence.until"},
		"static cannot recur":  {"o@example.com", func(in *application.MeetingInput) { in.Category = meeting.CategoryStatic }, "recurrence"},
		"bad participant role": {"o@example.com", func(in *application.MeetingInput) {
			in.Participants = []application.ParticipantInput{{Email: "a@example.com", Role: "host"}}
		}, "participants[0].role"},
	}

	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			in := weeklyInput(2)
			tc.mutate(&in)
			_, err := svc.Create(ctx, application.CreateMeetingParams{OwnerID: tc.owner, Input: in})

			var vErr *application.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.FieldErrors, tc.field)
			assert.Equal(t, application.KindValidation, application.ErrorKind(err))
		})
	}
}

type takenCodes struct{ persistence.Store }

func (s takenCodes) Atomic(ctx context.Context, fn func(ctx context.Context, uow persistence.UnitOfWork) error) error {
	return s.Store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		return fn(ctx, takenUnit{uow})
	})
}

type takenUnit struct{ persistence.UnitOfWork }

func (u takenUnit) Meetings() persistence.MeetingRepository {
	return takenMeetings{u.UnitOfWork.Meetings()}
}

type takenMeetings struct{ persistence.MeetingRepository }

func (takenMeetings) ExistsByDialInCode(context.Context, string) (bool, error) { return true, nil }

func TestMeetingService_CreatePinExhausted(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	backing := testfixtures.NewMemoryStore(t)
	collisions := 0
	svc := factory.NewMeetingService(takenCodes{backing}).
		WithPinAllocator(application.NewPinAllocator().OnCollision(func() { collisions++ }))

	_, err := svc.Create(context.Background(), application.CreateMeetingParams{OwnerID: "owner@example.com", Input: weeklyInput(1)})
	require.ErrorIs(t, err, application.ErrPinExhausted)
	assert.Equal(t, application.KindPinExhausted, application.ErrorKind(err))
	assert.Equal(t, application.DefaultPinAttempts, collisions)

	for _, id := range factory.IDGenerator.Issued() {
		assert.False(t, testfixtures.MeetingExists(t, backing, id))
	}
}

func TestMeetingService_UpdateSeriesRoot(t *testing.T) {
	t.Parallel()

	svc, _, store := newMeetingHarness(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, application.CreateMeetingParams{
		OwnerID: "owner@example.com",
		Input:   weeklyInput(3, application.ParticipantInput{Email: "mod@example.com", Role: "moderator"}),
	})
	require.NoError(t, err)
	before := testfixtures.LoadChildren(t, store, parent.ID)

	t.Run("direct fields only", func(t *testing.T) {
		in := weeklyInput(3)
		in.Name = "Renamed"
		updated, err := svc.Update(ctx, application.UpdateMeetingParams{MeetingID: parent.ID, Input: in})
		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)

		after := testfixtures.LoadChildren(t, store, parent.ID)
		require.Len(t, after, 3)
		for i := range after {
			assert.Equal(t, before[i].ID, after[i].ID, "occurrences survive a rename")
		}
	})

	t.Run("series end regenerates", func(t *testing.T) {
		in := weeklyInput(4)
		in.Name = "Renamed"
		updated, err := svc.Update(ctx, application.UpdateMeetingParams{MeetingID: parent.ID, Input: in})
		require.NoError(t, err)
		assert.Equal(t, seriesStart.AddDate(0, 0, 28), *updated.SeriesEnd)

		after := testfixtures.LoadChildren(t, store, parent.ID)
		require.Len(t, after, 4)
		for _, child := range after {
			assert.NotEqual(t, before[0].ID, child.ID)
			assert.Equal(t, "Renamed", child.Name)

			participants := testfixtures.LoadParticipants(t, store, child.ID)
			require.Len(t, participants, 2)
			emails := []string{participants[0].Email, participants[1].Email}
			assert.ElementsMatch(t, []string{"owner@example.com", "mod@example.com"}, emails)
			for _, p := range participants {
				assert.Equal(t, meeting.RoleModerator, p.Role)
			}
		}
		for _, old := range before {
			assert.False(t, testfixtures.MeetingExists(t, store, old.ID))
		}
	})

	t.Run("cannot become single", func(t *testing.T) {
		in := weeklyInput(4)
		in.Recurrence.Frequency = "once"
		_, err := svc.Update(ctx, application.UpdateMeetingParams{MeetingID: parent.ID, Input: in})
		var vErr *application.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "recurrence")
	})
}

func TestMeetingService_UpdateOccurrence(t *testing.T) {
	t.Parallel()

	svc, _, store := newMeetingHarness(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, application.CreateMeetingParams{OwnerID: "owner@example.com", Input: weeklyInput(3)})
	require.NoError(t, err)
	children := testfixtures.LoadChildren(t, store, parent.ID)
	first, second := children[0], children[1]

	childInput := func(child meeting.Meeting) application.MeetingInput {
		return application.MeetingInput{
			Name:  "Moved",
			Start: child.Start.Add(-30 * time.Minute),
			End:   child.End.Add(-30 * time.Minute),
		}
	}

	t.Run("recurrence must match the series", func(t *testing.T) {
		in := childInput(first)
		in.Recurrence = &application.RecurrenceInput{Frequency: "daily", Until: *parent.SeriesEnd}
		_, err := svc.Update(ctx, application.UpdateMeetingParams{MeetingID: first.ID, Input: in})
		var vErr *application.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "recurrence")
	})

	t.Run("end must not pass the end of the series root", func(t *testing.T) {
		in := childInput(first)
		in.End = parent.End.Add(30 * time.Minute)
		_, err := svc.Update(ctx, application.UpdateMeetingParams{MeetingID: first.ID, Input: in})
		var vErr *application.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "end")
		assert.Equal(t, first.Start, testfixtures.LoadMeeting(t, store, first.ID).Start)
	})

	t.Run("later occurrences cannot end after the series root", func(t *testing.T) {
		_, err := svc.Update(ctx, application.UpdateMeetingParams{MeetingID: second.ID, Input: childInput(second)})
		var vErr *application.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "end")
		assert.Equal(t, "Planning", testfixtures.LoadMeeting(t, store, second.ID).Name)
	})

	t.Run("valid edit touches only the occurrence", func(t *testing.T) {
		in := childInput(first)
		in.Recurrence = &application.RecurrenceInput{Frequency: "weekly", Until: *parent.SeriesEnd}
		updated, err := svc.Update(ctx, application.UpdateMeetingParams{MeetingID: first.ID, Input: in})
		require.NoError(t, err)
		assert.Equal(t, "Moved", updated.Name)
		assert.Equal(t, first.Start.Add(-30*time.Minute), updated.Start)

		assert.Equal(t, "Planning", testfixtures.LoadMeeting(t, store, parent.ID).Name)
		assert.Equal(t, "Planning", testfixtures.LoadMeeting(t, store, second.ID).Name)
	})
}

func TestMeetingService_UpdateStaticParticipants(t *testing.T) {
	t.Parallel()

	svc, _, store := newMeetingHarness(t)
	ctx := context.Background()

	room, err := svc.Create(ctx, application.CreateMeetingParams{
		OwnerID: "owner@example.com",
		Input: application.MeetingInput{
			Category:     meeting.CategoryStatic,
			Name:         "Team room",
			Participants: []application.ParticipantInput{{Email: "a@example.com"}},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, application.UpdateMeetingParams{
		MeetingID: room.ID,
		Input: application.MeetingInput{
			Name:         "Team room",
			Participants: []application.ParticipantInput{{Email: "b@example.com", Role: "organizer"}},
		},
	})
	require.NoError(t, err)
	assert.True(t, updated.HasOrganizer)

	participants := testfixtures.LoadParticipants(t, store, room.ID)
	require.Len(t, participants, 2)
	emails := []string{participants[0].Email, participants[1].Email}
	assert.ElementsMatch(t, []string{"owner@example.com", "b@example.com"}, emails)

	notices := testfixtures.LoadNotifications(t, store, room.ID)
	require.Len(t, notices, 1)
	assert.Equal(t, "b@example.com", notices[0].UserID)
}

func TestMeetingService_DeleteOccurrences(t *testing.T) {
	t.Parallel()

	svc, _, store := newMeetingHarness(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, application.CreateMeetingParams{OwnerID: "owner@example.com", Input: weeklyInput(3)})
	require.NoError(t, err)
	children := testfixtures.LoadChildren(t, store, parent.ID)
	require.Len(t, children, 3)

	outcome, err := svc.Delete(ctx, children[0].ID)
	require.NoError(t, err)
	assert.Equal(t, application.DeleteOutcomeExcluded, outcome)
	assert.True(t, testfixtures.LoadMeeting(t, store, children[0].ID).Excluded)

	outcome, err = svc.Delete(ctx, children[0].ID)
	require.NoError(t, err)
	assert.Equal(t, application.DeleteOutcomeExcluded, outcome, "deleting an excluded occurrence again is a no-op")
	assert.True(t, testfixtures.MeetingExists(t, store, parent.ID))

	_, err = svc.Delete(ctx, children[1].ID)
	require.NoError(t, err)

	outcome, err = svc.Delete(ctx, children[2].ID)
	require.NoError(t, err)
	assert.Equal(t, application.DeleteOutcomeSeriesDeleted, outcome)
	assert.False(t, testfixtures.MeetingExists(t, store, parent.ID))
	for _, child := range children {
		assert.False(t, testfixtures.MeetingExists(t, store, child.ID))
	}
}

func TestMeetingService_DeleteSeriesRoot(t *testing.T) {
	t.Parallel()

	svc, _, store := newMeetingHarness(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, application.CreateMeetingParams{OwnerID: "owner@example.com", Input: weeklyInput(2)})
	require.NoError(t, err)
	children := testfixtures.LoadChildren(t, store, parent.ID)

	outcome, err := svc.Delete(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, application.DeleteOutcomeDeleted, outcome)
	for _, child := range children {
		assert.False(t, testfixtures.MeetingExists(t, store, child.ID))
		assert.Empty(t, testfixtures.LoadParticipants(t, store, child.ID))
	}

	_, err = svc.Delete(ctx, parent.ID)
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestMeetingService_NextOfSeries(t *testing.T) {
	t.Parallel()

	svc, factory, store := newMeetingHarness(t)
	ctx := context.Background()

	parent, err := svc.Create(ctx, application.CreateMeetingParams{OwnerID: "owner@example.com", Input: weeklyInput(3)})
	require.NoError(t, err)
	children := testfixtures.LoadChildren(t, store, parent.ID)

	factory.Clock.Set(seriesStart.AddDate(0, 0, 8))
	next, err := svc.NextOfSeries(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, children[2].ID, next.ID)

	factory.Clock.Set(seriesStart.AddDate(0, 0, 1))
	_, err = svc.Delete(ctx, children[1].ID)
	require.NoError(t, err)
	next, err = svc.NextOfSeries(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, children[2].ID, next.ID, "excluded occurrences are skipped")

	factory.Clock.Set(seriesStart.AddDate(0, 1, 0))
	_, err = svc.NextOfSeries(ctx, parent.ID)
	require.ErrorIs(t, err, application.ErrNotFound)
}

func TestMeetingService_GetAndRecordVisit(t *testing.T) {
	t.Parallel()

	svc, factory, store := newMeetingHarness(t)
	ctx := context.Background()

	static := testfixtures.NewStaticRoom()
	normal := testfixtures.NewMeeting()
	testfixtures.Seed(t, store, []meeting.Meeting{static, normal}, testfixtures.Owner(static))

	details, err := svc.Get(ctx, static.ID)
	require.NoError(t, err)
	assert.Equal(t, static.ID, details.Meeting.ID)
	assert.Len(t, details.Participants, 1)

	visitAt := factory.Clock.AdvanceDays(3)
	visited, err := svc.RecordVisit(ctx, static.ID)
	require.NoError(t, err)
	assert.Equal(t, visitAt, *visited.LastVisit)
	assert.Equal(t, visitAt, *testfixtures.LoadMeeting(t, store, static.ID).LastVisit)

	visited, err = svc.RecordVisit(ctx, normal.ID)
	require.NoError(t, err)
	assert.Nil(t, visited.LastVisit)

	_, err = svc.Get(ctx, "missing")
	var nf *application.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "no meeting found for id <missing>", nf.Error())
}

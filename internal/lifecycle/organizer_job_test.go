package lifecycle_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-rooms/internal/identity"
	"github.com/example/meeting-rooms/internal/lifecycle"
	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/testfixtures"
)

type countingDirectory struct {
	identity.Directory
	calls atomic.Int32
	err   error
}

func (d *countingDirectory) LookupByEmail(ctx context.Context, email string) (identity.User, error) {
	d.calls.Add(1)
	if d.err != nil {
		return identity.User{}, d.err
	}
	return d.Directory.LookupByEmail(ctx, email)
}

func TestDefaultOrganizerJob(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	store := testfixtures.NewMemoryStore(t)

	orphan := testfixtures.NewStaticRoom(testfixtures.WithHasOrganizer(false))
	withGuest := testfixtures.NewStaticRoom(testfixtures.WithHasOrganizer(false))
	organized := testfixtures.NewStaticRoom()
	guest := testfixtures.NewParticipant(withGuest.ID, "Admin@Example.com", meeting.RoleGuest)
	testfixtures.Seed(t, store, []meeting.Meeting{orphan, withGuest, organized}, guest, testfixtures.Owner(organized))

	directory := &countingDirectory{Directory: identity.NewStaticDirectory(identity.User{Email: "admin@example.com", Username: "admin"})}
	organizer := lifecycle.NewDefaultOrganizer("ADMIN@example.com", directory)
	ids := testfixtures.NewIDGenerator("participant")
	job := lifecycle.NewDefaultOrganizerJob(organizer, lifecycle.Limits{ChunkSize: 1}, ids.NextFunc())
	runner := newRunner(store, nil, clock)

	report, err := runner.Run(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, []lifecycle.StepReport{{Name: "assign_organizer", Chunks: 2, Items: 2}}, report.Steps)

	added := testfixtures.LoadParticipants(t, store, orphan.ID)
	require.Len(t, added, 1)
	assert.Equal(t, "participant-1", added[0].ID)
	assert.Equal(t, "admin", added[0].UserID)
	assert.Equal(t, "admin@example.com", added[0].Email)
	assert.Equal(t, meeting.RoleOrganizer, added[0].Role)
	assert.True(t, testfixtures.LoadMeeting(t, store, orphan.ID).HasOrganizer)

	promoted := testfixtures.LoadParticipants(t, store, withGuest.ID)
	require.Len(t, promoted, 1)
	assert.Equal(t, guest.ID, promoted[0].ID)
	assert.Equal(t, meeting.RoleOrganizer, promoted[0].Role)
	assert.Equal(t, "admin", promoted[0].UserID)
	assert.True(t, testfixtures.LoadMeeting(t, store, withGuest.ID).HasOrganizer)

	assert.Len(t, testfixtures.LoadParticipants(t, store, organized.ID), 1)

	again, err := runner.Run(ctx, job)
	require.NoError(t, err)
	assert.Zero(t, again.Items())
	assert.Equal(t, int32(1), directory.calls.Load(), "the organizer is resolved once")
}

func TestDefaultOrganizerJob_NotConfigured(t *testing.T) {
	t.Parallel()

	store := testfixtures.NewMemoryStore(t)
	orphan := testfixtures.NewStaticRoom(testfixtures.WithHasOrganizer(false))
	testfixtures.Seed(t, store, []meeting.Meeting{orphan})

	job := lifecycle.NewDefaultOrganizerJob(lifecycle.NewDefaultOrganizer("", nil), lifecycle.Limits{}, nil)
	report, err := newRunner(store, nil, nil).Run(context.Background(), job)
	require.NoError(t, err)
	assert.Empty(t, report.Steps)
	assert.False(t, testfixtures.LoadMeeting(t, store, orphan.ID).HasOrganizer)
}

func TestDefaultOrganizer_Resolve(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("unknown address falls back to itself", func(t *testing.T) {
		t.Parallel()
		organizer := lifecycle.NewDefaultOrganizer("ops@example.com", identity.NewStaticDirectory())
		user, err := organizer.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, identity.User{Email: "ops@example.com", Username: "ops@example.com"}, user)
	})

	t.Run("without directory", func(t *testing.T) {
		t.Parallel()
		user, err := lifecycle.NewDefaultOrganizer("ops@example.com", nil).Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ops@example.com", user.Username)
	})

	t.Run("failures are retried on the next call", func(t *testing.T) {
		t.Parallel()
		directory := &countingDirectory{
			Directory: identity.NewStaticDirectory(identity.User{Email: "ops@example.com", Username: "ops"}),
			err:       errors.New("directory unavailable"),
		}
		organizer := lifecycle.NewDefaultOrganizer("ops@example.com", directory)

		_, err := organizer.Resolve(ctx)
		require.Error(t, err)

		directory.err = nil
		user, err := organizer.Resolve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ops", user.Username)
		assert.Equal(t, int32(2), directory.calls.Load())
	})

	t.Run("concurrent callers share the result", func(t *testing.T) {
		t.Parallel()
		directory := &countingDirectory{Directory: identity.NewStaticDirectory(identity.User{Email: "ops@example.com", Username: "ops"})}
		organizer := lifecycle.NewDefaultOrganizer("ops@example.com", directory)

		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				user, err := organizer.Resolve(ctx)
				assert.NoError(t, err)
				assert.Equal(t, "ops", user.Username)
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), directory.calls.Load())
	})
}

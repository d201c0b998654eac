package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker := NewLocalLocker()

	lock, err := locker.Acquire(ctx, "static-room-deletion")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "static-room-deletion")
	require.ErrorIs(t, err, ErrLocked)

	other, err := locker.Acquire(ctx, "static-room-password")
	require.NoError(t, err, "different jobs do not share a lock")
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lock.Release(ctx))
	require.ErrorIs(t, lock.Release(ctx), ErrLockLost)

	again, err := locker.Acquire(ctx, "static-room-deletion")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func newMockLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	locker := NewRedisLocker(client, "rooms:lock:", time.Minute)
	locker.token = func() string { return "token-1" }
	return locker, mock
}

func TestRedisLocker_AcquireAndRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	locker, mock := newMockLocker(t)

	mock.ExpectSetNX("rooms:lock:old-meetings", "token-1", time.Minute).SetVal(true)
	mock.ExpectEvalSha(releaseScript.Hash(), []string{"rooms:lock:old-meetings"}, "token-1").SetVal(int64(1))

	lock, err := locker.Acquire(ctx, "old-meetings")
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_Held(t *testing.T) {
	t.Parallel()

	locker, mock := newMockLocker(t)
	mock.ExpectSetNX("rooms:lock:old-meetings", "token-1", time.Minute).SetVal(false)

	_, err := locker.Acquire(context.Background(), "old-meetings")
	require.ErrorIs(t, err, ErrLocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLocker_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("acquire", func(t *testing.T) {
		t.Parallel()
		locker, mock := newMockLocker(t)
		mock.ExpectSetNX("rooms:lock:old-meetings", "token-1", time.Minute).SetErr(errors.New("connection refused"))

		_, err := locker.Acquire(ctx, "old-meetings")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrLocked)
	})

	t.Run("expired before release", func(t *testing.T) {
		t.Parallel()
		locker, mock := newMockLocker(t)
		mock.ExpectSetNX("rooms:lock:old-meetings", "token-1", time.Minute).SetVal(true)
		mock.ExpectEvalSha(releaseScript.Hash(), []string{"rooms:lock:old-meetings"}, "token-1").SetVal(int64(0))

		lock, err := locker.Acquire(ctx, "old-meetings")
		require.NoError(t, err)
		require.ErrorIs(t, lock.Release(ctx), ErrLockLost)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

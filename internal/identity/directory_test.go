package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDirectory_LookupByEmail(t *testing.T) {
	t.Parallel()

	dir := NewStaticDirectory(
		User{Email: "Admin@Example.com", Username: "admin"},
		User{Email: "", Username: "ignored"},
	)

	u, err := dir.LookupByEmail(context.Background(), " admin@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
	assert.Equal(t, "admin@example.com", u.Email)

	_, err = dir.LookupByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUnknownUser)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = dir.LookupByEmail(ctx, "admin@example.com")
	assert.ErrorIs(t, err, context.Canceled)
}

// Package identity resolves e-mail addresses to the user names rooms store
// for their participants.
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrUnknownUser is returned when the directory has no entry for an address.
var ErrUnknownUser = errors.New("identity: unknown user")

// User is a directory entry.
type User struct {
	Email    string
	Username string
}

// Directory looks users up by e-mail.
type Directory interface {
	LookupByEmail(ctx context.Context, email string) (User, error)
}

// StaticDirectory serves a fixed set of users, typically loaded from configuration.
type StaticDirectory struct {
	users map[string]User
}

// NewStaticDirectory indexes users by lower-cased e-mail. Later entries win.
func NewStaticDirectory(users ...User) *StaticDirectory {
	d := &StaticDirectory{users: make(map[string]User, len(users))}
	for _, u := range users {
		key := normalize(u.Email)
		if key == "" {
			continue
		}
		u.Email = key
		d.users[key] = u
	}
	return d
}

// LookupByEmail implements Directory.
func (d *StaticDirectory) LookupByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	u, ok := d.users[normalize(email)]
	if !ok {
		return User{}, ErrUnknownUser
	}
	return u, nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

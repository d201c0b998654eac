package meeting

import (
	"strings"
	"time"
)

// Role is the participant role inside a room.
type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleModerator Role = "moderator"
	RoleGuest     Role = "guest"
)

// ParseRole normalizes a role name.
func ParseRole(value string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(value))); r {
	case RoleOrganizer, RoleModerator, RoleGuest:
		return r, true
	default:
		return "", false
	}
}

// OwnerRole is the role the owner always holds in a room of the given category.
func OwnerRole(c Category) Role {
	if c == CategoryStatic {
		return RoleOrganizer
	}
	return RoleModerator
}

// Participant belongs to exactly one room.
type Participant struct {
	ID        string
	MeetingID string
	UserID    string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeEmail lower-cases and trims an e-mail address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// HasOrganizer reports whether any participant holds the organizer role.
func HasOrganizer(participants []Participant) bool {
	for _, p := range participants {
		if p.Role == RoleOrganizer {
			return true
		}
	}
	return false
}

// Organizers returns the organizer participants.
func Organizers(participants []Participant) []Participant {
	out := make([]Participant, 0, len(participants))
	for _, p := range participants {
		if p.Role == RoleOrganizer {
			out = append(out, p)
		}
	}
	return out
}

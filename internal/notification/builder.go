// Package notification builds the notification records raised by room
// mutations and lifecycle jobs. Delivery is left to whoever reads the
// notification store.
package notification

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
)

// Builder creates notification records.
type Builder struct {
	portalDomain string
	joinPath     string
	idGenerator  func() string
	now          func() time.Time
}

// NewBuilder returns a builder that links participants to
// portalDomain + joinPath + meeting id.
func NewBuilder(portalDomain, joinPath string, idGenerator func() string, now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	return &Builder{portalDomain: portalDomain, joinPath: joinPath, idGenerator: idGenerator, now: now}
}

type joinMessage struct {
	Link     string `json:"link"`
	Password string `json:"password"`
}

// JoinLink returns the portal link for a room.
func (b *Builder) JoinLink(meetingID string) string {
	return strings.TrimRight(b.portalDomain, "/") + "/" + strings.TrimLeft(b.joinPath+meetingID, "/")
}

// ParticipantsAdded notifies every participant except the owner that they
// were added, carrying the join link and password.
func (b *Builder) ParticipantsAdded(m meeting.Meeting, participants []meeting.Participant) []meeting.Notification {
	payload, _ := json.Marshal(joinMessage{Link: b.JoinLink(m.ID), Password: m.Password})

	out := make([]meeting.Notification, 0, len(participants))
	for _, p := range participants {
		if isOwner(m, p) {
			continue
		}
		n := b.newNotification(m, p, meeting.NotificationParticipantAdded)
		n.Message = string(payload)
		out = append(out, n)
	}
	return out
}

// ParticipantsRemoved notifies every participant except the owner that they
// were removed.
func (b *Builder) ParticipantsRemoved(m meeting.Meeting, participants []meeting.Participant) []meeting.Notification {
	out := make([]meeting.Notification, 0, len(participants))
	for _, p := range participants {
		if isOwner(m, p) {
			continue
		}
		out = append(out, b.newNotification(m, p, meeting.NotificationParticipantRemoved))
	}
	return out
}

// DeleteCandidate notifies the organizers that the room is due for deletion.
func (b *Builder) DeleteCandidate(m meeting.Meeting, participants []meeting.Participant) []meeting.Notification {
	return b.toOrganizers(m, participants, meeting.NotificationDeleteCandidate, nil)
}

// PasswordChangeCandidate notifies the organizers of an upcoming password change.
func (b *Builder) PasswordChangeCandidate(m meeting.Meeting, participants []meeting.Participant) []meeting.Notification {
	return b.toOrganizers(m, participants, meeting.NotificationPasswordChangeCandidate, nil)
}

// PasswordChanged notifies the organizers that the password was rotated.
func (b *Builder) PasswordChanged(m meeting.Meeting, participants []meeting.Participant) []meeting.Notification {
	changedAt := b.now()
	return b.toOrganizers(m, participants, meeting.NotificationPasswordChanged, &changedAt)
}

func (b *Builder) toOrganizers(m meeting.Meeting, participants []meeting.Participant, kind meeting.NotificationType, passwordDue *time.Time) []meeting.Notification {
	organizers := meeting.Organizers(participants)
	out := make([]meeting.Notification, 0, len(organizers))
	for _, p := range organizers {
		n := b.newNotification(m, p, kind)
		if passwordDue != nil {
			n.PasswordChangeDueDate = meeting.TimePtr(*passwordDue)
		}
		out = append(out, n)
	}
	return out
}

func (b *Builder) newNotification(m meeting.Meeting, p meeting.Participant, kind meeting.NotificationType) meeting.Notification {
	n := meeting.Notification{
		ID:        b.idGenerator(),
		UserID:    meeting.NormalizeEmail(p.Email),
		Type:      kind,
		MeetingID: m.ID,
		RoomName:  m.Name,
		CreatedAt: b.now(),
	}
	if m.RoomDeletionDueDate != nil {
		n.RoomDeletionDueDate = meeting.TimePtr(*m.RoomDeletionDueDate)
	}
	if m.PasswordChangeDueDate != nil {
		n.PasswordChangeDueDate = meeting.TimePtr(*m.PasswordChangeDueDate)
	}
	return n
}

func isOwner(m meeting.Meeting, p meeting.Participant) bool {
	return strings.EqualFold(strings.TrimSpace(p.Email), strings.TrimSpace(m.OwnerID))
}

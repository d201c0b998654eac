package meeting

import "time"

// NotificationType identifies the event a notification reports.
type NotificationType string

const (
	NotificationParticipantAdded        NotificationType = "PARTICIPANT_ADDED"
	NotificationParticipantRemoved      NotificationType = "PARTICIPANT_REMOVED"
	NotificationDeleteCandidate         NotificationType = "DELETE_CANDIDATE"
	NotificationPasswordChangeCandidate NotificationType = "PASSWORD_CHANGE_CANDIDATE"
	NotificationPasswordChanged         NotificationType = "PASSWORD_CHANGED"
)

// Notification is a message addressed to one user about one room.
type Notification struct {
	ID                    string
	UserID                string
	Type                  NotificationType
	Message               string
	MeetingID             string
	RoomName              string
	RoomDeletionDueDate   *time.Time
	PasswordChangeDueDate *time.Time
	Viewed                bool
	ViewedAt              *time.Time
	CreatedAt             time.Time
}

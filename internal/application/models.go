package application

import (
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
)

// ParticipantInput captures a requested participant.
type ParticipantInput struct {
	Email string
	Role  string
}

// RecurrenceInput captures a requested series definition. Selecting any
// weekday turns the series into a CUSTOM one.
type RecurrenceInput struct {
	Frequency string
	Until     time.Time
	WeekDays  meeting.WeekDays
}

// MeetingInput captures caller provided room fields.
type MeetingInput struct {
	Category     meeting.Category
	Name         string
	Info         string
	Password     string
	LobbyEnabled bool
	Start        time.Time
	End          time.Time
	Recurrence   *RecurrenceInput
	// Participants are the requested participants besides the owner. On
	// update, nil leaves the participant list untouched.
	Participants []ParticipantInput
}

// CreateMeetingParams wraps the data required to create a room.
type CreateMeetingParams struct {
	OwnerID string
	Input   MeetingInput
}

// UpdateMeetingParams wraps the data required to update a room.
type UpdateMeetingParams struct {
	MeetingID string
	Input     MeetingInput
}

// MeetingDetails is a room together with its participants.
type MeetingDetails struct {
	Meeting      meeting.Meeting
	Participants []meeting.Participant
}

// AddParticipantParams wraps the data required to add a participant.
type AddParticipantParams struct {
	MeetingID string
	Email     string
	Role      string
}

// UpdateParticipantParams wraps the data required to change a participant.
type UpdateParticipantParams struct {
	ParticipantID string
	Email         string
	Role          string
}

// DialIn holds the telephony details copied onto every new room.
type DialIn struct {
	PhoneNumber string
	SIPLink     string
}

// DeleteOutcome reports what a delete request did to the stored rows.
type DeleteOutcome string

const (
	// DeleteOutcomeDeleted means the room and its occurrences were removed.
	DeleteOutcomeDeleted DeleteOutcome = "deleted"
	// DeleteOutcomeExcluded means a single occurrence was excluded from its series.
	DeleteOutcomeExcluded DeleteOutcome = "excluded"
	// DeleteOutcomeSeriesDeleted means the last live occurrence took its series with it.
	DeleteOutcomeSeriesDeleted DeleteOutcome = "series_deleted"
)

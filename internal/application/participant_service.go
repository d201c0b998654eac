package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/notification"
	"github.com/example/meeting-rooms/internal/persistence"
)

// ParticipantService manages the participant list of a single room and keeps
// the room's organizer flag in sync.
type ParticipantService struct {
	store       persistence.Store
	notices     *notification.Builder
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewParticipantService constructs a participant service with the provided dependencies.
func NewParticipantService(store persistence.Store, notices *notification.Builder, idGenerator func() string, now func() time.Time) *ParticipantService {
	return NewParticipantServiceWithLogger(store, notices, idGenerator, now, nil)
}

// NewParticipantServiceWithLogger constructs a participant service with a specified logger.
func NewParticipantServiceWithLogger(store persistence.Store, notices *notification.Builder, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ParticipantService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if notices == nil {
		notices = notification.NewBuilder("", "", idGenerator, now)
	}
	return &ParticipantService{store: store, notices: notices, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *ParticipantService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ParticipantService", operation, attrs...)
}

// Add attaches a participant to a room. Static rooms notify the new participant.
func (s *ParticipantService) Add(ctx context.Context, params AddParticipantParams) (added meeting.Participant, err error) {
	if s == nil {
		err = fmt.Errorf("ParticipantService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("participant store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Add", "meeting_id", params.MeetingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add participant", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("participant_id", added.ID).InfoContext(ctx, "participant added")
	}()

	role, vErr := validateParticipantInput(params.Email, params.Role)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		m, txErr := uow.Meetings().FindByID(ctx, params.MeetingID)
		if txErr != nil {
			return mapMeetingRepoError(txErr, "meeting", params.MeetingID)
		}
		current, txErr := uow.Participants().FindByMeeting(ctx, m.ID)
		if txErr != nil {
			return txErr
		}
		email := meeting.NormalizeEmail(params.Email)
		if indexByEmail(current, email) >= 0 {
			return fmt.Errorf("participant %s: %w", email, ErrAlreadyExists)
		}

		now := s.now()
		added = meeting.Participant{
			ID:        s.idGenerator(),
			MeetingID: m.ID,
			Email:     email,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if txErr = uow.Participants().Save(ctx, added); txErr != nil {
			return txErr
		}
		if m.Static {
			if txErr = uow.Notifications().SaveAll(ctx, s.notices.ParticipantsAdded(m, []meeting.Participant{added})); txErr != nil {
				return txErr
			}
		}
		return s.syncOrganizerFlag(ctx, uow, m, append(current, added))
	})
	if err != nil {
		err = mapMeetingRepoError(err, "meeting", params.MeetingID)
	}
	return
}

// Update changes the e-mail and role of a participant.
func (s *ParticipantService) Update(ctx context.Context, params UpdateParticipantParams) (updated meeting.Participant, err error) {
	if s == nil {
		err = fmt.Errorf("ParticipantService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("participant store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Update", "participant_id", params.ParticipantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update participant", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "participant updated")
	}()

	role, vErr := validateParticipantInput(params.Email, params.Role)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		existing, txErr := uow.Participants().FindByID(ctx, params.ParticipantID)
		if txErr != nil {
			return mapMeetingRepoError(txErr, "participant", params.ParticipantID)
		}
		m, txErr := uow.Meetings().FindByID(ctx, existing.MeetingID)
		if txErr != nil {
			return mapMeetingRepoError(txErr, "meeting", existing.MeetingID)
		}
		current, txErr := uow.Participants().FindByMeeting(ctx, m.ID)
		if txErr != nil {
			return txErr
		}

		email := meeting.NormalizeEmail(params.Email)
		if i := indexByEmail(current, email); i >= 0 && current[i].ID != existing.ID {
			return fmt.Errorf("participant %s: %w", email, ErrAlreadyExists)
		}
		if isOwnerParticipant(m, existing) && role != existing.Role {
			return validationFailure("role", "the owner keeps the role of the room category")
		}

		updated = existing
		updated.Email = email
		updated.Role = role
		updated.UpdatedAt = s.now()
		if txErr = uow.Participants().Save(ctx, updated); txErr != nil {
			return txErr
		}

		current[indexByID(current, existing.ID)] = updated
		return s.syncOrganizerFlag(ctx, uow, m, current)
	})
	if err != nil {
		err = mapMeetingRepoError(err, "participant", params.ParticipantID)
	}
	return
}

// Remove detaches a participant from its room. Static rooms notify the
// removed participant.
func (s *ParticipantService) Remove(ctx context.Context, participantID string) (err error) {
	if s == nil {
		return fmt.Errorf("ParticipantService is nil")
	}
	if s.store == nil {
		return fmt.Errorf("participant store not configured")
	}

	logger := s.loggerWith(ctx, "Remove", "participant_id", participantID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove participant", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "participant removed")
	}()

	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		existing, txErr := uow.Participants().FindByID(ctx, participantID)
		if txErr != nil {
			return mapMeetingRepoError(txErr, "participant", participantID)
		}
		m, txErr := uow.Meetings().FindByID(ctx, existing.MeetingID)
		if txErr != nil {
			return mapMeetingRepoError(txErr, "meeting", existing.MeetingID)
		}
		if isOwnerParticipant(m, existing) {
			return validationFailure("participant", "the owner cannot be removed")
		}
		current, txErr := uow.Participants().FindByMeeting(ctx, m.ID)
		if txErr != nil {
			return txErr
		}

		if txErr = uow.Participants().Delete(ctx, existing.ID); txErr != nil {
			return txErr
		}
		if m.Static {
			if txErr = uow.Notifications().SaveAll(ctx, s.notices.ParticipantsRemoved(m, []meeting.Participant{existing})); txErr != nil {
				return txErr
			}
		}

		remaining := make([]meeting.Participant, 0, len(current))
		for _, p := range current {
			if p.ID != existing.ID {
				remaining = append(remaining, p)
			}
		}
		return s.syncOrganizerFlag(ctx, uow, m, remaining)
	})
	if err != nil {
		err = mapMeetingRepoError(err, "participant", participantID)
	}
	return
}

// List returns the participants of a room.
func (s *ParticipantService) List(ctx context.Context, meetingID string) (participants []meeting.Participant, err error) {
	if s == nil {
		return nil, fmt.Errorf("ParticipantService is nil")
	}
	if s.store == nil {
		return nil, nil
	}
	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		if _, txErr := uow.Meetings().FindByID(ctx, meetingID); txErr != nil {
			return txErr
		}
		var txErr error
		participants, txErr = uow.Participants().FindByMeeting(ctx, meetingID)
		return txErr
	})
	if err != nil {
		err = mapMeetingRepoError(err, "meeting", meetingID)
	}
	return
}

func (s *ParticipantService) syncOrganizerFlag(ctx context.Context, uow persistence.UnitOfWork, m meeting.Meeting, participants []meeting.Participant) error {
	has := meeting.HasOrganizer(participants)
	if m.HasOrganizer == has {
		return nil
	}
	m.HasOrganizer = has
	m.UpdatedAt = s.now()
	return uow.Meetings().Save(ctx, m)
}

func validateParticipantInput(email, role string) (meeting.Role, *ValidationError) {
	vErr := &ValidationError{}
	if !strings.Contains(email, "@") {
		vErr.add("email", "a valid e-mail is required")
	}
	parsed := meeting.RoleGuest
	if strings.TrimSpace(role) != "" {
		r, ok := meeting.ParseRole(role)
		if !ok {
			vErr.add("role", "role must be organizer, moderator or guest")
		}
		parsed = r
	}
	return parsed, vErr
}

func indexByEmail(participants []meeting.Participant, email string) int {
	for i, p := range participants {
		if meeting.NormalizeEmail(p.Email) == email {
			return i
		}
	}
	return -1
}

func indexByID(participants []meeting.Participant, id string) int {
	for i, p := range participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func isOwnerParticipant(m meeting.Meeting, p meeting.Participant) bool {
	return meeting.NormalizeEmail(p.Email) == meeting.NormalizeEmail(m.OwnerID)
}

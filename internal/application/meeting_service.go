package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/metrics"
	"github.com/example/meeting-rooms/internal/notification"
	"github.com/example/meeting-rooms/internal/persistence"
	"github.com/example/meeting-rooms/internal/recurrence"
)

const (
	maxNameLength = 255
	maxInfoLength = 4000
)

// MeetingService creates, updates and deletes rooms and keeps recurring
// series consistent with their parent definition.
type MeetingService struct {
	store       persistence.Store
	engine      *recurrence.Engine
	pins        *PinAllocator
	notices     *notification.Builder
	dialIn      DialIn
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMeetingService constructs a meeting service with the provided dependencies.
func NewMeetingService(store persistence.Store, notices *notification.Builder, idGenerator func() string, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(store, notices, idGenerator, now, nil)
}

// NewMeetingServiceWithLogger constructs a meeting service with a specified logger.
func NewMeetingServiceWithLogger(store persistence.Store, notices *notification.Builder, idGenerator func() string, now func() time.Time, logger *slog.Logger) *MeetingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if notices == nil {
		notices = notification.NewBuilder("", "", idGenerator, now)
	}
	return &MeetingService{
		store:       store,
		engine:      recurrence.NewEngine(nil),
		pins:        NewPinAllocator(),
		notices:     notices,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

// WithEngine replaces the recurrence engine.
func (s *MeetingService) WithEngine(engine *recurrence.Engine) *MeetingService {
	if engine != nil {
		s.engine = engine
	}
	return s
}

// WithPinAllocator replaces the dial-in code allocator.
func (s *MeetingService) WithPinAllocator(pins *PinAllocator) *MeetingService {
	if pins != nil {
		s.pins = pins
	}
	return s
}

// WithDialIn sets the telephony details stamped on new rooms.
func (s *MeetingService) WithDialIn(d DialIn) *MeetingService {
	s.dialIn = d
	return s
}

func (s *MeetingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MeetingService", operation, attrs...)
}

// Create validates input and persists a new room. Recurring normal meetings
// get their occurrences generated in the same transaction.
func (s *MeetingService) Create(ctx context.Context, params CreateMeetingParams) (created meeting.Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("meeting store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"owner_id", params.OwnerID,
		"category", params.Input.Category,
	)
	defer func() {
		countMutation("create", err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to create meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("meeting_id", created.ID).InfoContext(ctx, "meeting created")
	}()

	vErr := validateOwner(params.OwnerID)
	vErr.merge(validateMeetingInput(params.Input))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	// A concurrent writer may claim the code between the lookup and the
	// insert; the store reports that as a duplicate and the whole unit is
	// retried with a fresh code.
	for attempt := 1; ; attempt++ {
		err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
			var txErr error
			created, txErr = s.createInUnit(ctx, uow, params)
			return txErr
		})
		if !errors.Is(err, persistence.ErrDuplicateDialInCode) {
			break
		}
		if attempt >= s.pins.maxAttempts {
			err = ErrPinExhausted
			break
		}
		s.pins.collided()
	}
	if err != nil {
		err = mapMeetingRepoError(err, "meeting", "")
		return
	}
	return
}

func (s *MeetingService) createInUnit(ctx context.Context, uow persistence.UnitOfWork, params CreateMeetingParams) (meeting.Meeting, error) {
	now := s.now()
	in := params.Input
	meetings := uow.Meetings()

	code, err := s.pins.Allocate(ctx, meetings.ExistsByDialInCode)
	if err != nil {
		return meeting.Meeting{}, err
	}

	root := meeting.Meeting{
		ID:           s.idGenerator(),
		OwnerID:      strings.TrimSpace(params.OwnerID),
		Name:         strings.TrimSpace(in.Name),
		Info:         strings.TrimSpace(in.Info),
		Password:     in.Password,
		LobbyEnabled: in.LobbyEnabled,
		Start:        in.Start,
		End:          in.End,
		Frequency:    meeting.FrequencyOnce,
		Instant:      in.Category == meeting.CategoryInstant,
		Static:       in.Category == meeting.CategoryStatic,
		DialInCode:   code,
		PhoneNumber:  s.dialIn.PhoneNumber,
		SIPLink:      s.dialIn.SIPLink,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Category == meeting.CategoryNormal && in.Recurrence != nil {
		applyRecurrence(&root, resolveRecurrence(*in.Recurrence))
	}
	if root.Static {
		root.LastVisit = meeting.TimePtr(now)
		root.LastPasswordChange = meeting.TimePtr(now)
	}

	participants := s.buildParticipants(root, in.Participants, now)
	root.HasOrganizer = meeting.HasOrganizer(participants)

	if err := meetings.Save(ctx, root); err != nil {
		return meeting.Meeting{}, err
	}
	if err := uow.Participants().SaveAll(ctx, participants); err != nil {
		return meeting.Meeting{}, err
	}

	if _, ok := root.Position().(meeting.SeriesRoot); ok {
		if err := s.generateOccurrences(ctx, uow, root, participants, now); err != nil {
			return meeting.Meeting{}, err
		}
	}

	if root.Static {
		if err := uow.Notifications().SaveAll(ctx, s.notices.ParticipantsAdded(root, participants)); err != nil {
			return meeting.Meeting{}, err
		}
	}
	return root, nil
}

// Update applies input to a room. A series root regenerates its occurrences
// when its timing or recurrence changed; an occurrence may only be edited
// inside its series.
func (s *MeetingService) Update(ctx context.Context, params UpdateMeetingParams) (updated meeting.Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("meeting store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"meeting_id", params.MeetingID,
	)
	defer func() {
		countMutation("update", err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to update meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("position", positionLabel(updated.Position())).InfoContext(ctx, "meeting updated")
	}()

	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		existing, txErr := uow.Meetings().FindByID(ctx, params.MeetingID)
		if txErr != nil {
			return mapMeetingRepoError(txErr, "meeting", params.MeetingID)
		}

		in := params.Input
		in.Category = existing.Category()
		if vErr := validateMeetingInput(in); vErr.HasErrors() {
			return vErr
		}

		switch pos := existing.Position().(type) {
		case meeting.SeriesRoot:
			updated, txErr = s.updateSeriesRoot(ctx, uow, existing, in)
		case meeting.SeriesOccurrence:
			updated, txErr = s.updateOccurrence(ctx, uow, existing, pos.ParentID, in)
		default:
			if in.Recurrence != nil && resolveRecurrence(*in.Recurrence).Frequency.Recurring() {
				updated, txErr = s.updateSeriesRoot(ctx, uow, existing, in)
				break
			}
			updated, txErr = s.updateSingle(ctx, uow, existing, in)
		}
		return txErr
	})
	if err != nil {
		err = mapMeetingRepoError(err, "meeting", params.MeetingID)
		return
	}
	return
}

func (s *MeetingService) updateSeriesRoot(ctx context.Context, uow persistence.UnitOfWork, existing meeting.Meeting, in MeetingInput) (meeting.Meeting, error) {
	rec := existing.Recurrence()
	if in.Recurrence != nil {
		rec = resolveRecurrence(*in.Recurrence)
		if !rec.Frequency.Recurring() {
			return meeting.Meeting{}, validationFailure("recurrence", "a series cannot be turned into a single meeting")
		}
	}

	changed := !existing.Start.Equal(in.Start) || !existing.End.Equal(in.End) || !existing.Recurrence().Equal(rec)

	now := s.now()
	updated := applyDirectFields(existing, in, now)
	applyRecurrence(&updated, rec)

	if err := uow.Meetings().Save(ctx, updated); err != nil {
		return meeting.Meeting{}, err
	}
	if !changed {
		return updated, nil
	}

	participants, err := uow.Participants().FindByMeeting(ctx, updated.ID)
	if err != nil {
		return meeting.Meeting{}, err
	}
	children, err := uow.Meetings().FindChildren(ctx, updated.ID, true)
	if err != nil {
		return meeting.Meeting{}, err
	}
	ids := make([]string, 0, len(children))
	for _, child := range children {
		ids = append(ids, child.ID)
	}
	if err := uow.Meetings().DeleteAll(ctx, ids); err != nil {
		return meeting.Meeting{}, err
	}
	if err := s.generateOccurrences(ctx, uow, updated, participants, now); err != nil {
		return meeting.Meeting{}, err
	}
	return updated, nil
}

func (s *MeetingService) updateOccurrence(ctx context.Context, uow persistence.UnitOfWork, existing meeting.Meeting, parentID string, in MeetingInput) (meeting.Meeting, error) {
	parent, err := uow.Meetings().FindByID(ctx, parentID)
	if err != nil {
		return meeting.Meeting{}, mapMeetingRepoError(err, "parent meeting", parentID)
	}

	vErr := &ValidationError{}
	if in.Recurrence != nil && !resolveRecurrence(*in.Recurrence).Equal(parent.Recurrence()) {
		vErr.add("recurrence", "the recurrence of a single occurrence must be changed on its series")
	}
	if in.End.After(parent.End) {
		vErr.add("end", "the end of a single occurrence must not pass the end of its series root")
	}
	if vErr.HasErrors() {
		return meeting.Meeting{}, vErr
	}

	updated := applyDirectFields(existing, in, s.now())
	if err := uow.Meetings().Save(ctx, updated); err != nil {
		return meeting.Meeting{}, err
	}
	return updated, nil
}

func (s *MeetingService) updateSingle(ctx context.Context, uow persistence.UnitOfWork, existing meeting.Meeting, in MeetingInput) (meeting.Meeting, error) {
	now := s.now()
	updated := applyDirectFields(existing, in, now)

	if in.Participants != nil {
		current, err := uow.Participants().FindByMeeting(ctx, updated.ID)
		if err != nil {
			return meeting.Meeting{}, err
		}
		requested := s.buildParticipants(updated, in.Participants, now)
		if !sameParticipants(current, requested) {
			if err := s.replaceParticipants(ctx, uow, updated, requested); err != nil {
				return meeting.Meeting{}, err
			}
			updated.HasOrganizer = meeting.HasOrganizer(requested)
		}
	}

	if err := uow.Meetings().Save(ctx, updated); err != nil {
		return meeting.Meeting{}, err
	}
	return updated, nil
}

func (s *MeetingService) replaceParticipants(ctx context.Context, uow persistence.UnitOfWork, m meeting.Meeting, participants []meeting.Participant) error {
	if err := uow.Participants().DeleteByMeeting(ctx, m.ID); err != nil {
		return err
	}
	if err := uow.Participants().SaveAll(ctx, participants); err != nil {
		return err
	}
	if !m.Static {
		return nil
	}
	if err := uow.Notifications().DeleteByMeeting(ctx, m.ID); err != nil {
		return err
	}
	return uow.Notifications().SaveAll(ctx, s.notices.ParticipantsAdded(m, participants))
}

// Delete removes a room. Deleting an occurrence excludes it from its series
// unless it is the last live occurrence, in which case the whole series goes.
func (s *MeetingService) Delete(ctx context.Context, meetingID string) (outcome DeleteOutcome, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("meeting store not configured")
		return
	}

	logger := s.loggerWith(ctx, "Delete",
		"meeting_id", meetingID,
	)
	defer func() {
		countMutation("delete", err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete meeting", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("outcome", outcome).InfoContext(ctx, "meeting deleted")
	}()

	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		meetings := uow.Meetings()
		existing, txErr := meetings.FindByID(ctx, meetingID)
		if txErr != nil {
			return mapMeetingRepoError(txErr, "meeting", meetingID)
		}

		pos, isOccurrence := existing.Position().(meeting.SeriesOccurrence)
		if !isOccurrence {
			outcome = DeleteOutcomeDeleted
			return meetings.Delete(ctx, existing.ID)
		}

		if existing.Excluded {
			outcome = DeleteOutcomeExcluded
			return nil
		}

		siblings, txErr := meetings.FindChildren(ctx, pos.ParentID, false)
		if txErr != nil {
			return txErr
		}
		if len(siblings) == 1 && siblings[0].ID == existing.ID {
			outcome = DeleteOutcomeSeriesDeleted
			txErr = meetings.Delete(ctx, pos.ParentID)
			if errors.Is(txErr, persistence.ErrNotFound) {
				return meetings.Delete(ctx, existing.ID)
			}
			return txErr
		}

		outcome = DeleteOutcomeExcluded
		existing.Excluded = true
		existing.UpdatedAt = s.now()
		return meetings.Save(ctx, existing)
	})
	if err != nil {
		err = mapMeetingRepoError(err, "meeting", meetingID)
		return
	}
	return
}

// Get returns a room together with its participants.
func (s *MeetingService) Get(ctx context.Context, meetingID string) (details MeetingDetails, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("meeting store not configured")
		return
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		m, txErr := uow.Meetings().FindByID(ctx, meetingID)
		if txErr != nil {
			return txErr
		}
		participants, txErr := uow.Participants().FindByMeeting(ctx, meetingID)
		if txErr != nil {
			return txErr
		}
		details = MeetingDetails{Meeting: m, Participants: participants}
		return nil
	})
	if err != nil {
		err = mapMeetingRepoError(err, "meeting", meetingID)
		s.loggerWith(ctx, "Get", "meeting_id", meetingID).
			ErrorContext(ctx, "failed to load meeting", "error", err, "error_kind", ErrorKind(err))
	}
	return
}

// NextOfSeries returns the earliest live occurrence of a series that has not
// ended yet.
func (s *MeetingService) NextOfSeries(ctx context.Context, parentID string) (next meeting.Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("meeting store not configured")
		return
	}

	now := s.now()
	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		children, txErr := uow.Meetings().FindChildren(ctx, parentID, false)
		if txErr != nil {
			return txErr
		}
		for _, child := range children {
			if child.End.After(now) {
				next = child
				return nil
			}
		}
		return notFound("next meeting in series", parentID)
	})
	if err != nil {
		err = mapMeetingRepoError(err, "series", parentID)
	}
	return
}

// RecordVisit stamps the last visit of a static room. Other rooms are
// returned unchanged.
func (s *MeetingService) RecordVisit(ctx context.Context, meetingID string) (visited meeting.Meeting, err error) {
	if s == nil {
		err = fmt.Errorf("MeetingService is nil")
		return
	}
	if s.store == nil {
		err = fmt.Errorf("meeting store not configured")
		return
	}

	logger := s.loggerWith(ctx, "RecordVisit", "meeting_id", meetingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to record visit", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "visit recorded", "static", visited.Static)
	}()

	err = s.store.Atomic(ctx, func(ctx context.Context, uow persistence.UnitOfWork) error {
		m, txErr := uow.Meetings().FindByID(ctx, meetingID)
		if txErr != nil {
			return txErr
		}
		visited = m
		if !m.Static {
			return nil
		}
		now := s.now()
		visited.LastVisit = meeting.TimePtr(now)
		visited.UpdatedAt = now
		return uow.Meetings().Save(ctx, visited)
	})
	if err != nil {
		err = mapMeetingRepoError(err, "meeting", meetingID)
	}
	return
}

func (s *MeetingService) generateOccurrences(ctx context.Context, uow persistence.UnitOfWork, root meeting.Meeting, participants []meeting.Participant, now time.Time) error {
	series := recurrence.Series{
		Start:     root.Start,
		End:       root.End,
		Frequency: root.Frequency,
		WeekDays:  root.WeekDays,
	}
	if root.SeriesEnd != nil {
		series.Until = *root.SeriesEnd
	}
	occurrences, err := s.engine.Expand(series, now)
	if err != nil {
		return validationFailure("recurrence", err.Error())
	}

	children := make([]meeting.Meeting, 0, len(occurrences))
	copies := make([]meeting.Participant, 0, len(occurrences)*len(participants))
	for _, occ := range occurrences {
		child := meeting.Meeting{
			ID:           s.idGenerator(),
			ParentID:     root.ID,
			OwnerID:      root.OwnerID,
			Name:         root.Name,
			Info:         root.Info,
			Password:     root.Password,
			LobbyEnabled: root.LobbyEnabled,
			Start:        occ.Start,
			End:          occ.End,
			Frequency:    root.Frequency,
			WeekDays:     root.WeekDays,
			SeriesEnd:    root.SeriesEnd,
			HasOrganizer: root.HasOrganizer,
			DialInCode:   root.DialInCode,
			PhoneNumber:  root.PhoneNumber,
			SIPLink:      root.SIPLink,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		children = append(children, child.Clone())
		for _, p := range participants {
			copies = append(copies, meeting.Participant{
				ID:        s.idGenerator(),
				MeetingID: child.ID,
				UserID:    p.UserID,
				Email:     p.Email,
				Role:      p.Role,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}

	if err := uow.Meetings().SaveAll(ctx, children); err != nil {
		return err
	}
	return uow.Participants().SaveAll(ctx, copies)
}

// buildParticipants returns the owner followed by the requested participants,
// deduplicated by e-mail. The owner keeps the role of its category.
func (s *MeetingService) buildParticipants(m meeting.Meeting, requested []ParticipantInput, now time.Time) []meeting.Participant {
	seen := make(map[string]struct{}, len(requested)+1)
	out := make([]meeting.Participant, 0, len(requested)+1)

	owner := meeting.NormalizeEmail(m.OwnerID)
	if owner != "" {
		seen[owner] = struct{}{}
		out = append(out, meeting.Participant{
			ID:        s.idGenerator(),
			MeetingID: m.ID,
			UserID:    m.OwnerID,
			Email:     owner,
			Role:      meeting.OwnerRole(m.Category()),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	for _, p := range requested {
		email := meeting.NormalizeEmail(p.Email)
		if _, dup := seen[email]; dup || email == "" {
			continue
		}
		seen[email] = struct{}{}
		role, ok := meeting.ParseRole(p.Role)
		if !ok {
			role = meeting.RoleGuest
		}
		out = append(out, meeting.Participant{
			ID:        s.idGenerator(),
			MeetingID: m.ID,
			Email:     email,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return out
}

func sameParticipants(a, b []meeting.Participant) bool {
	if len(a) != len(b) {
		return false
	}
	roles := make(map[string]meeting.Role, len(a))
	for _, p := range a {
		roles[meeting.NormalizeEmail(p.Email)] = p.Role
	}
	for _, p := range b {
		role, ok := roles[meeting.NormalizeEmail(p.Email)]
		if !ok || role != p.Role {
			return false
		}
	}
	return true
}

func applyDirectFields(existing meeting.Meeting, in MeetingInput, now time.Time) meeting.Meeting {
	updated := existing.Clone()
	updated.Name = strings.TrimSpace(in.Name)
	updated.Info = strings.TrimSpace(in.Info)
	updated.Password = in.Password
	updated.LobbyEnabled = in.LobbyEnabled
	if !existing.Static {
		updated.Start = in.Start
		updated.End = in.End
	}
	updated.UpdatedAt = now
	return updated
}

func applyRecurrence(m *meeting.Meeting, rec meeting.Recurrence) {
	m.Frequency = rec.Frequency
	m.WeekDays = rec.WeekDays
	m.SeriesEnd = nil
	if rec.Frequency.Recurring() {
		m.SeriesEnd = meeting.TimePtr(rec.Until)
	}
}

// resolveRecurrence turns validated input into a stored definition. Any
// selected weekday makes the series CUSTOM.
func resolveRecurrence(in RecurrenceInput) meeting.Recurrence {
	freq, _ := meeting.ParseFrequency(in.Frequency)
	if in.WeekDays.Any() {
		freq = meeting.FrequencyCustom
	}
	rec := meeting.Recurrence{Frequency: freq}
	if freq.Recurring() {
		rec.Until = in.Until
	}
	if freq == meeting.FrequencyCustom {
		rec.WeekDays = in.WeekDays
	}
	return rec
}

func validateOwner(ownerID string) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(ownerID) == "" {
		vErr.add("owner", "owner is required")
	}
	return vErr
}

func validateMeetingInput(in MeetingInput) *ValidationError {
	vErr := &ValidationError{}

	switch in.Category {
	case meeting.CategoryNormal, meeting.CategoryInstant, meeting.CategoryStatic:
	default:
		vErr.add("category", "category must be normal, instant or static")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		vErr.add("name", "name is required")
	} else if len(name) > maxNameLength {
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if len(in.Info) > maxInfoLength {
		vErr.add("info", fmt.Sprintf("info must be at most %d characters", maxInfoLength))
	}

	if in.Category != meeting.CategoryStatic {
		switch {
		case in.Start.IsZero():
			vErr.add("start", "start is required")
		case in.End.IsZero():
			vErr.add("end", "end is required")
		case !in.End.After(in.Start):
			vErr.add("end", "end must be after start")
		}
	}

	if in.Recurrence != nil {
		vErr.merge(validateRecurrence(*in.Recurrence, in.Start))
		if in.Category != meeting.CategoryNormal {
			if freq, _ := meeting.ParseFrequency(in.Recurrence.Frequency); freq.Recurring() || in.Recurrence.WeekDays.Any() {
				vErr.add("recurrence", "only normal meetings can recur")
			}
		}
	}

	for i, p := range in.Participants {
		if !strings.Contains(p.Email, "@") {
			vErr.add(fmt.Sprintf("participants[%d].email", i), "a valid e-mail is required")
		}
		if strings.TrimSpace(p.Role) != "" {
			if _, ok := meeting.ParseRole(p.Role); !ok {
				vErr.add(fmt.Sprintf("participants[%d].role", i), "role must be organizer, moderator or guest")
			}
		}
	}
	return vErr
}

func validateRecurrence(in RecurrenceInput, start time.Time) *ValidationError {
	vErr := &ValidationError{}
	freq, ok := meeting.ParseFrequency(in.Frequency)
	if !ok {
		vErr.add("recurrence.frequency", "frequency must be ONCE, DAILY, WEEKLY, MONTHLY or CUSTOM")
		return vErr
	}
	if freq == meeting.FrequencyCustom && !in.WeekDays.Any() {
		vErr.add("recurrence.weekDays", "a custom series needs at least one weekday")
	}
	if freq.Recurring() || in.WeekDays.Any() {
		switch {
		case in.Until.IsZero():
			vErr.add("recurrence.until", "series end is required")
		case !start.IsZero() && !in.Until.After(start):
			vErr.add("recurrence.until", "series end must be after start")
		}
	}
	return vErr
}

func countMutation(operation string, err error) {
	metrics.SeriesMutationsTotal.WithLabelValues(operation, metrics.ErrorKindLabel(string(ErrorKind(err)))).Inc()
}

func positionLabel(p meeting.Position) string {
	switch p.(type) {
	case meeting.SeriesRoot:
		return "series_root"
	case meeting.SeriesOccurrence:
		return "series_occurrence"
	default:
		return "single"
	}
}

func mapMeetingRepoError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return notFound(resource, id)
	case errors.Is(err, persistence.ErrDuplicateDialInCode):
		return ErrPinExhausted
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	default:
		return err
	}
}

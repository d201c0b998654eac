package sqlstore

import (
	"database/sql"
	"time"

	"github.com/example/meeting-rooms/internal/meeting"
)

const meetingColumns = `id, parent_id, owner_id, name, info, password, lobby_enabled,
	start_time, end_time, frequency, week_days, series_end,
	is_instant, is_static, is_excluded,
	last_visit, delete_candidate, room_deletion_due_date,
	last_password_change, password_change_candidate, password_change_due_date, has_organizer,
	dial_in_code, phone_number, sip_link, created_at, updated_at`

type meetingRow struct {
	ID                      string         `db:"id"`
	ParentID                sql.NullString `db:"parent_id"`
	OwnerID                 string         `db:"owner_id"`
	Name                    string         `db:"name"`
	Info                    string         `db:"info"`
	Password                string         `db:"password"`
	LobbyEnabled            bool           `db:"lobby_enabled"`
	StartTime               time.Time      `db:"start_time"`
	EndTime                 time.Time      `db:"end_time"`
	Frequency               string         `db:"frequency"`
	WeekDays                int            `db:"week_days"`
	SeriesEnd               sql.NullTime   `db:"series_end"`
	Instant                 bool           `db:"is_instant"`
	Static                  bool           `db:"is_static"`
	Excluded                bool           `db:"is_excluded"`
	LastVisit               sql.NullTime   `db:"last_visit"`
	DeleteCandidate         bool           `db:"delete_candidate"`
	RoomDeletionDueDate     sql.NullTime   `db:"room_deletion_due_date"`
	LastPasswordChange      sql.NullTime   `db:"last_password_change"`
	PasswordChangeCandidate bool           `db:"password_change_candidate"`
	PasswordChangeDueDate   sql.NullTime   `db:"password_change_due_date"`
	HasOrganizer            bool           `db:"has_organizer"`
	DialInCode              sql.NullString `db:"dial_in_code"`
	PhoneNumber             string         `db:"phone_number"`
	SIPLink                 string         `db:"sip_link"`
	CreatedAt               time.Time      `db:"created_at"`
	UpdatedAt               time.Time      `db:"updated_at"`
}

func toMeetingRow(m meeting.Meeting) meetingRow {
	frequency := m.Frequency
	if frequency == "" {
		frequency = meeting.FrequencyOnce
	}
	return meetingRow{
		ID:                      m.ID,
		ParentID:                nullString(m.ParentID),
		OwnerID:                 m.OwnerID,
		Name:                    m.Name,
		Info:                    m.Info,
		Password:                m.Password,
		LobbyEnabled:            m.LobbyEnabled,
		StartTime:               m.Start.UTC(),
		EndTime:                 m.End.UTC(),
		Frequency:               string(frequency),
		WeekDays:                weekDaysMask(m.WeekDays),
		SeriesEnd:               nullTime(m.SeriesEnd),
		Instant:                 m.Instant,
		Static:                  m.Static,
		Excluded:                m.Excluded,
		LastVisit:               nullTime(m.LastVisit),
		DeleteCandidate:         m.DeleteCandidate,
		RoomDeletionDueDate:     nullTime(m.RoomDeletionDueDate),
		LastPasswordChange:      nullTime(m.LastPasswordChange),
		PasswordChangeCandidate: m.PasswordChangeCandidate,
		PasswordChangeDueDate:   nullTime(m.PasswordChangeDueDate),
		HasOrganizer:            m.HasOrganizer,
		DialInCode:              nullString(m.DialInCode),
		PhoneNumber:             m.PhoneNumber,
		SIPLink:                 m.SIPLink,
		CreatedAt:               m.CreatedAt.UTC(),
		UpdatedAt:               m.UpdatedAt.UTC(),
	}
}

func (r meetingRow) toMeeting() meeting.Meeting {
	return meeting.Meeting{
		ID:                      r.ID,
		ParentID:                r.ParentID.String,
		OwnerID:                 r.OwnerID,
		Name:                    r.Name,
		Info:                    r.Info,
		Password:                r.Password,
		LobbyEnabled:            r.LobbyEnabled,
		Start:                   r.StartTime.UTC(),
		End:                     r.EndTime.UTC(),
		Frequency:               meeting.Frequency(r.Frequency),
		WeekDays:                weekDaysFromMask(r.WeekDays),
		SeriesEnd:               timePtr(r.SeriesEnd),
		Instant:                 r.Instant,
		Static:                  r.Static,
		Excluded:                r.Excluded,
		LastVisit:               timePtr(r.LastVisit),
		DeleteCandidate:         r.DeleteCandidate,
		RoomDeletionDueDate:     timePtr(r.RoomDeletionDueDate),
		LastPasswordChange:      timePtr(r.LastPasswordChange),
		PasswordChangeCandidate: r.PasswordChangeCandidate,
		PasswordChangeDueDate:   timePtr(r.PasswordChangeDueDate),
		HasOrganizer:            r.HasOrganizer,
		DialInCode:              r.DialInCode.String,
		PhoneNumber:             r.PhoneNumber,
		SIPLink:                 r.SIPLink,
		CreatedAt:               r.CreatedAt.UTC(),
		UpdatedAt:               r.UpdatedAt.UTC(),
	}
}

const participantColumns = `id, meeting_id, user_id, email, role, created_at, updated_at`

type participantRow struct {
	ID        string    `db:"id"`
	MeetingID string    `db:"meeting_id"`
	UserID    string    `db:"user_id"`
	Email     string    `db:"email"`
	Role      string    `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toParticipantRow(p meeting.Participant) participantRow {
	return participantRow{
		ID:        p.ID,
		MeetingID: p.MeetingID,
		UserID:    p.UserID,
		Email:     p.Email,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (r participantRow) toParticipant() meeting.Participant {
	return meeting.Participant{
		ID:        r.ID,
		MeetingID: r.MeetingID,
		UserID:    r.UserID,
		Email:     r.Email,
		Role:      meeting.Role(r.Role),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

const notificationColumns = `id, user_id, type, message, meeting_id, room_name,
	room_deletion_due_date, password_change_due_date, viewed, viewed_at, created_at`

type notificationRow struct {
	ID                    string         `db:"id"`
	UserID                string         `db:"user_id"`
	Type                  string         `db:"type"`
	Message               string         `db:"message"`
	MeetingID             sql.NullString `db:"meeting_id"`
	RoomName              string         `db:"room_name"`
	RoomDeletionDueDate   sql.NullTime   `db:"room_deletion_due_date"`
	PasswordChangeDueDate sql.NullTime   `db:"password_change_due_date"`
	Viewed                bool           `db:"viewed"`
	ViewedAt              sql.NullTime   `db:"viewed_at"`
	CreatedAt             time.Time      `db:"created_at"`
}

func toNotificationRow(n meeting.Notification) notificationRow {
	return notificationRow{
		ID:                    n.ID,
		UserID:                n.UserID,
		Type:                  string(n.Type),
		Message:               n.Message,
		MeetingID:             nullString(n.MeetingID),
		RoomName:              n.RoomName,
		RoomDeletionDueDate:   nullTime(n.RoomDeletionDueDate),
		PasswordChangeDueDate: nullTime(n.PasswordChangeDueDate),
		Viewed:                n.Viewed,
		ViewedAt:              nullTime(n.ViewedAt),
		CreatedAt:             n.CreatedAt.UTC(),
	}
}

func (r notificationRow) toNotification() meeting.Notification {
	return meeting.Notification{
		ID:                    r.ID,
		UserID:                r.UserID,
		Type:                  meeting.NotificationType(r.Type),
		Message:               r.Message,
		MeetingID:             r.MeetingID.String,
		RoomName:              r.RoomName,
		RoomDeletionDueDate:   timePtr(r.RoomDeletionDueDate),
		PasswordChangeDueDate: timePtr(r.PasswordChangeDueDate),
		Viewed:                r.Viewed,
		ViewedAt:              timePtr(r.ViewedAt),
		CreatedAt:             r.CreatedAt.UTC(),
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// weekDaysMask packs the selection with bit n standing for time.Weekday(n).
func weekDaysMask(w meeting.WeekDays) int {
	mask := 0
	for _, d := range w.Days() {
		mask |= 1 << int(d)
	}
	return mask
}

func weekDaysFromMask(mask int) meeting.WeekDays {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if mask&(1<<int(d)) != 0 {
			days = append(days, d)
		}
	}
	return meeting.WeekDaysOf(days...)
}

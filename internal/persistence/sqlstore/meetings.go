package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

const (
	selectMeetingByID = `SELECT ` + meetingColumns + ` FROM meeting WHERE id = ?`

	upsertMeeting = `INSERT INTO meeting (` + meetingColumns + `)
VALUES (:id, :parent_id, :owner_id, :name, :info, :password, :lobby_enabled,
	:start_time, :end_time, :frequency, :week_days, :series_end,
	:is_instant, :is_static, :is_excluded,
	:last_visit, :delete_candidate, :room_deletion_due_date,
	:last_password_change, :password_change_candidate, :password_change_due_date, :has_organizer,
	:dial_in_code, :phone_number, :sip_link, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	parent_id = excluded.parent_id,
	owner_id = excluded.owner_id,
	name = excluded.name,
	info = excluded.info,
	password = excluded.password,
	lobby_enabled = excluded.lobby_enabled,
	start_time = excluded.start_time,
	end_time = excluded.end_time,
	frequency = excluded.frequency,
	week_days = excluded.week_days,
	series_end = excluded.series_end,
	is_instant = excluded.is_instant,
	is_static = excluded.is_static,
	is_excluded = excluded.is_excluded,
	last_visit = excluded.last_visit,
	delete_candidate = excluded.delete_candidate,
	room_deletion_due_date = excluded.room_deletion_due_date,
	last_password_change = excluded.last_password_change,
	password_change_candidate = excluded.password_change_candidate,
	password_change_due_date = excluded.password_change_due_date,
	has_organizer = excluded.has_organizer,
	dial_in_code = excluded.dial_in_code,
	phone_number = excluded.phone_number,
	sip_link = excluded.sip_link,
	updated_at = excluded.updated_at`

	existsDialInCode = `SELECT EXISTS (SELECT 1 FROM meeting WHERE dial_in_code = ? AND parent_id IS NULL)`

	selectEndedBefore = `SELECT ` + meetingColumns + ` FROM meeting
WHERE is_static = ? AND parent_id IS NULL
	AND COALESCE(CASE WHEN frequency <> 'ONCE' THEN series_end END, end_time) < ?
ORDER BY id`
)

type meetingRepository struct {
	tx *sqlx.Tx
}

func (r meetingRepository) FindByID(ctx context.Context, id string) (meeting.Meeting, error) {
	var row meetingRow
	if err := r.tx.GetContext(ctx, &row, r.tx.Rebind(selectMeetingByID), id); err != nil {
		return meeting.Meeting{}, mapError(err)
	}
	return row.toMeeting(), nil
}

func (r meetingRepository) FindChildren(ctx context.Context, parentID string, includeExcluded bool) ([]meeting.Meeting, error) {
	if parentID == "" {
		return nil, nil
	}
	query := `SELECT ` + meetingColumns + ` FROM meeting WHERE parent_id = ?`
	args := []any{parentID}
	if !includeExcluded {
		query += ` AND is_excluded = ?`
		args = append(args, false)
	}
	query += ` ORDER BY end_time, id`
	return r.selectMeetings(ctx, query, args...)
}

func (r meetingRepository) Save(ctx context.Context, m meeting.Meeting) error {
	if m.ID == "" {
		return fmt.Errorf("%w: meeting id is required", persistence.ErrConstraintViolation)
	}
	if _, err := r.tx.NamedExecContext(ctx, upsertMeeting, toMeetingRow(m)); err != nil {
		return mapError(err)
	}
	return nil
}

func (r meetingRepository) SaveAll(ctx context.Context, ms []meeting.Meeting) error {
	for _, m := range ms {
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r meetingRepository) Delete(ctx context.Context, id string) error {
	deleted, err := r.deleteCascade(ctx, []string{id})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r meetingRepository) DeleteAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.deleteCascade(ctx, ids)
	return err
}

// deleteCascade removes the rooms, their occurrences and everything attached
// to either. It reports how many of ids existed.
func (r meetingRepository) deleteCascade(ctx context.Context, ids []string) (int64, error) {
	const scope = `(meeting_id IN (?) OR meeting_id IN (SELECT id FROM meeting WHERE parent_id IN (?)))`
	statements := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM participant WHERE ` + scope, []any{ids, ids}},
		{`DELETE FROM notification WHERE ` + scope, []any{ids, ids}},
		{`DELETE FROM meeting WHERE parent_id IN (?)`, []any{ids}},
	}
	for _, stmt := range statements {
		if _, err := execIn(ctx, r.tx, stmt.query, stmt.args...); err != nil {
			return 0, err
		}
	}
	res, err := execIn(ctx, r.tx, `DELETE FROM meeting WHERE id IN (?)`, ids)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

func (r meetingRepository) ExistsByDialInCode(ctx context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	var exists bool
	if err := r.tx.GetContext(ctx, &exists, r.tx.Rebind(existsDialInCode), code); err != nil {
		return false, mapError(err)
	}
	return exists, nil
}

func (r meetingRepository) FindStaticRooms(ctx context.Context, q persistence.StaticRoomQuery) ([]meeting.Meeting, error) {
	var where strings.Builder
	where.WriteString(`is_static = ?`)
	args := []any{true}

	if q.WithoutOrganizer {
		where.WriteString(` AND has_organizer = ?`)
		args = append(args, false)
	}

	var instant, candidate string
	switch q.Field {
	case persistence.FieldNone:
	case persistence.FieldLastVisit:
		instant, candidate = "last_visit", "delete_candidate"
	case persistence.FieldLastPasswordChange:
		instant, candidate = "last_password_change", "password_change_candidate"
	default:
		return nil, fmt.Errorf("unknown lifecycle field %d", q.Field)
	}
	if instant != "" {
		op, err := comparisonOperator(q.Compare)
		if err != nil {
			return nil, err
		}
		if q.Candidate != nil {
			fmt.Fprintf(&where, ` AND %s = ?`, candidate)
			args = append(args, *q.Candidate)
		}
		fmt.Fprintf(&where, ` AND %s IS NOT NULL AND %s %s ?`, instant, instant, op)
		args = append(args, q.Threshold.UTC())
	}

	query := `SELECT ` + meetingColumns + ` FROM meeting WHERE ` + where.String() + ` ORDER BY id`
	query, args = withLimit(query, args, q.Limit)
	return r.selectMeetings(ctx, query, args...)
}

func (r meetingRepository) FindEndedBefore(ctx context.Context, threshold time.Time, limit int) ([]meeting.Meeting, error) {
	query, args := withLimit(selectEndedBefore, []any{false, threshold.UTC()}, limit)
	return r.selectMeetings(ctx, query, args...)
}

func (r meetingRepository) selectMeetings(ctx context.Context, query string, args ...any) ([]meeting.Meeting, error) {
	var rows []meetingRow
	if err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]meeting.Meeting, len(rows))
	for i, row := range rows {
		out[i] = row.toMeeting()
	}
	return out, nil
}

func comparisonOperator(c persistence.Comparison) (string, error) {
	switch c {
	case persistence.AtOrBefore:
		return "<=", nil
	case persistence.Before:
		return "<", nil
	case persistence.After:
		return ">", nil
	}
	return "", fmt.Errorf("unknown comparison %d", c)
}

func withLimit(query string, args []any, limit int) (string, []any) {
	if limit <= 0 {
		return query, args
	}
	return query + ` LIMIT ?`, append(args, limit)
}

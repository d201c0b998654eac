package sqlstore

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

const (
	selectParticipantByID = `SELECT ` + participantColumns + ` FROM participant WHERE id = ?`

	selectParticipantsByMeeting = `SELECT ` + participantColumns + ` FROM participant
WHERE meeting_id = ? ORDER BY created_at, id`

	upsertParticipant = `INSERT INTO participant (` + participantColumns + `)
VALUES (:id, :meeting_id, :user_id, :email, :role, :created_at, :updated_at)
ON CONFLICT (id) DO UPDATE SET
	meeting_id = excluded.meeting_id,
	user_id = excluded.user_id,
	email = excluded.email,
	role = excluded.role,
	updated_at = excluded.updated_at`

	deleteParticipant           = `DELETE FROM participant WHERE id = ?`
	deleteParticipantsByMeeting = `DELETE FROM participant WHERE meeting_id = ?`
)

type participantRepository struct {
	tx *sqlx.Tx
}

func (r participantRepository) FindByID(ctx context.Context, id string) (meeting.Participant, error) {
	var row participantRow
	if err := r.tx.GetContext(ctx, &row, r.tx.Rebind(selectParticipantByID), id); err != nil {
		return meeting.Participant{}, mapError(err)
	}
	return row.toParticipant(), nil
}

func (r participantRepository) FindByMeeting(ctx context.Context, meetingID string) ([]meeting.Participant, error) {
	var rows []participantRow
	if err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(selectParticipantsByMeeting), meetingID); err != nil {
		return nil, mapError(err)
	}
	out := make([]meeting.Participant, len(rows))
	for i, row := range rows {
		out[i] = row.toParticipant()
	}
	return out, nil
}

func (r participantRepository) Save(ctx context.Context, p meeting.Participant) error {
	if p.ID == "" || p.MeetingID == "" {
		return fmt.Errorf("%w: participant id and meeting id are required", persistence.ErrConstraintViolation)
	}
	if _, err := r.tx.NamedExecContext(ctx, upsertParticipant, toParticipantRow(p)); err != nil {
		return mapError(err)
	}
	return nil
}

func (r participantRepository) SaveAll(ctx context.Context, ps []meeting.Participant) error {
	for _, p := range ps {
		if err := r.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (r participantRepository) Delete(ctx context.Context, id string) error {
	res, err := r.tx.ExecContext(ctx, r.tx.Rebind(deleteParticipant), id)
	if err != nil {
		return mapError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r participantRepository) DeleteByMeeting(ctx context.Context, meetingID string) error {
	if _, err := r.tx.ExecContext(ctx, r.tx.Rebind(deleteParticipantsByMeeting), meetingID); err != nil {
		return mapError(err)
	}
	return nil
}

package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

const (
	selectNotificationsByMeeting = `SELECT ` + notificationColumns + ` FROM notification
WHERE meeting_id = ? ORDER BY created_at, id`

	selectNotificationsCreatedBefore = `SELECT ` + notificationColumns + ` FROM notification
WHERE created_at < ? ORDER BY created_at, id`

	insertNotification = `INSERT INTO notification (` + notificationColumns + `)
VALUES (:id, :user_id, :type, :message, :meeting_id, :room_name,
	:room_deletion_due_date, :password_change_due_date, :viewed, :viewed_at, :created_at)`

	deleteNotificationsByMeeting = `DELETE FROM notification WHERE meeting_id = ?`
)

type notificationRepository struct {
	tx *sqlx.Tx
}

func (r notificationRepository) FindByMeeting(ctx context.Context, meetingID string) ([]meeting.Notification, error) {
	return r.selectNotifications(ctx, selectNotificationsByMeeting, meetingID)
}

func (r notificationRepository) FindCreatedBefore(ctx context.Context, threshold time.Time, limit int) ([]meeting.Notification, error) {
	query, args := withLimit(selectNotificationsCreatedBefore, []any{threshold.UTC()}, limit)
	return r.selectNotifications(ctx, query, args...)
}

func (r notificationRepository) SaveAll(ctx context.Context, ns []meeting.Notification) error {
	for _, n := range ns {
		if n.ID == "" {
			return fmt.Errorf("%w: notification id is required", persistence.ErrConstraintViolation)
		}
		if _, err := r.tx.NamedExecContext(ctx, insertNotification, toNotificationRow(n)); err != nil {
			return mapError(err)
		}
	}
	return nil
}

func (r notificationRepository) DeleteByMeeting(ctx context.Context, meetingID string) error {
	if _, err := r.tx.ExecContext(ctx, r.tx.Rebind(deleteNotificationsByMeeting), meetingID); err != nil {
		return mapError(err)
	}
	return nil
}

func (r notificationRepository) DeleteAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := execIn(ctx, r.tx, `DELETE FROM notification WHERE id IN (?)`, ids)
	return err
}

func (r notificationRepository) selectNotifications(ctx context.Context, query string, args ...any) ([]meeting.Notification, error) {
	var rows []notificationRow
	if err := r.tx.SelectContext(ctx, &rows, r.tx.Rebind(query), args...); err != nil {
		return nil, mapError(err)
	}
	out := make([]meeting.Notification, len(rows))
	for i, row := range rows {
		out[i] = row.toNotification()
	}
	return out, nil
}

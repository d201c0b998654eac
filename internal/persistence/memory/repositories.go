package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/example/meeting-rooms/internal/meeting"
	"github.com/example/meeting-rooms/internal/persistence"
)

// --- ParticipantRepository implementation ---

type participantRepository struct {
	txn *memdb.Txn
}

func (r participantRepository) FindByID(_ context.Context, id string) (meeting.Participant, error) {
	raw, err := r.txn.First(tableParticipant, indexID, id)
	if err != nil {
		return meeting.Participant{}, err
	}
	if raw == nil {
		return meeting.Participant{}, persistence.ErrNotFound
	}
	return *raw.(*meeting.Participant), nil
}

func (r participantRepository) FindByMeeting(_ context.Context, meetingID string) ([]meeting.Participant, error) {
	it, err := r.txn.Get(tableParticipant, indexMeeting, meetingID)
	if err != nil {
		return nil, err
	}
	out := make([]meeting.Participant, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		out = append(out, *raw.(*meeting.Participant))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r participantRepository) Save(_ context.Context, p meeting.Participant) error {
	if p.ID == "" || p.MeetingID == "" {
		return fmt.Errorf("%w: participant id and meeting id are required", persistence.ErrConstraintViolation)
	}
	owner, err := r.txn.First(tableMeeting, indexID, p.MeetingID)
	if err != nil {
		return err
	}
	if owner == nil {
		return fmt.Errorf("%w: meeting %s does not exist", persistence.ErrConstraintViolation, p.MeetingID)
	}
	stored := p
	return r.txn.Insert(tableParticipant, &stored)
}

func (r participantRepository) SaveAll(ctx context.Context, ps []meeting.Participant) error {
	for _, p := range ps {
		if err := r.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (r participantRepository) Delete(_ context.Context, id string) error {
	raw, err := r.txn.First(tableParticipant, indexID, id)
	if err != nil {
		return err
	}
	if raw == nil {
		return persistence.ErrNotFound
	}
	return r.txn.Delete(tableParticipant, raw)
}

func (r participantRepository) DeleteByMeeting(_ context.Context, meetingID string) error {
	_, err := r.txn.DeleteAll(tableParticipant, indexMeeting, meetingID)
	return err
}

// --- NotificationRepository implementation ---

type notificationRepository struct {
	txn *memdb.Txn
}

func (r notificationRepository) FindByMeeting(_ context.Context, meetingID string) ([]meeting.Notification, error) {
	it, err := r.txn.Get(tableNotification, indexMeeting, meetingID)
	if err != nil {
		return nil, err
	}
	return sortedNotifications(it, func(*meeting.Notification) bool { return true }, 0), nil
}

func (r notificationRepository) FindCreatedBefore(_ context.Context, threshold time.Time, limit int) ([]meeting.Notification, error) {
	it, err := r.txn.Get(tableNotification, indexID)
	if err != nil {
		return nil, err
	}
	return sortedNotifications(it, func(n *meeting.Notification) bool {
		return n.CreatedAt.Before(threshold)
	}, limit), nil
}

func (r notificationRepository) SaveAll(_ context.Context, ns []meeting.Notification) error {
	for _, n := range ns {
		if n.ID == "" {
			return fmt.Errorf("%w: notification id is required", persistence.ErrConstraintViolation)
		}
		stored := n
		if err := r.txn.Insert(tableNotification, &stored); err != nil {
			return err
		}
	}
	return nil
}

func (r notificationRepository) DeleteByMeeting(_ context.Context, meetingID string) error {
	_, err := r.txn.DeleteAll(tableNotification, indexMeeting, meetingID)
	return err
}

func (r notificationRepository) DeleteAll(_ context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := r.txn.DeleteAll(tableNotification, indexID, id); err != nil {
			return err
		}
	}
	return nil
}

func sortedNotifications(it memdb.ResultIterator, keep func(*meeting.Notification) bool, limit int) []meeting.Notification {
	out := make([]meeting.Notification, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		n := raw.(*meeting.Notification)
		if keep(n) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

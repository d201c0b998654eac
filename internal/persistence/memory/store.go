// Package memory implements the repository boundary on hashicorp/go-memdb.
// It backs tests and single-process development runs.
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

const (
	tableMeeting      = "meeting"
	tableParticipant  = "participant"
	tableNotification = "notification"

	indexID      = "id"
	indexParent  = "parent"
	indexDialIn  = "dial_in"
	indexStatic  = "static"
	indexMeeting = "meeting"
)

func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableMeeting: {
				Name: tableMeeting,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexParent: {
						Name:         indexParent,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "ParentID"},
					},
					indexDialIn: {
						Name:         indexDialIn,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "DialInCode"},
					},
					indexStatic: {
						Name:    indexStatic,
						Indexer: &memdb.BoolFieldIndex{Field: "Static"},
					},
				},
			},
			tableParticipant: {
				Name: tableParticipant,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexMeeting: {
						Name:    indexMeeting,
						Indexer: &memdb.StringFieldIndex{Field: "MeetingID"},
					},
				},
			},
			tableNotification: {
				Name: tableNotification,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexMeeting: {
						Name:         indexMeeting,
						AllowMissing: true,
						Indexer:      &memdb.StringFieldIndex{Field: "MeetingID"},
					},
				},
			},
		},
	}
}

// Store is an in-memory persistence.Store.
type Store struct {
	db *memdb.MemDB
}

var _ persistence.Store = (*Store)(nil)

// Open returns an empty store.
func Open() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("memory: create database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases resources held by the store. No-op for the in-memory implementation.
func (s *Store) Close() error {
	return nil
}

// Atomic runs fn inside one write transaction. Writers are serialized.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, uow persistence.UnitOfWork) error) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(ctx, &unitOfWork{txn: txn}); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

type unitOfWork struct {
	txn *memdb.Txn
}

func (u *unitOfWork) Meetings() persistence.MeetingRepository {
	return meetingRepository{txn: u.txn}
}

func (u *unitOfWork) Participants() persistence.ParticipantRepository {
	return participantRepository{txn: u.txn}
}

func (u *unitOfWork) Notifications() persistence.NotificationRepository {
	return notificationRepository{txn: u.txn}
}

// --- MeetingRepository implementation ---

type meetingRepository struct {
	txn *memdb.Txn
}

func (r meetingRepository) FindByID(_ context.Context, id string) (meeting.Meeting, error) {
	raw, err := r.txn.First(tableMeeting, indexID, id)
	if err != nil {
		return meeting.Meeting{}, err
	}
	if raw == nil {
		return meeting.Meeting{}, persistence.ErrNotFound
	}
	return raw.(*meeting.Meeting).Clone(), nil
}

func (r meetingRepository) FindChildren(_ context.Context, parentID string, includeExcluded bool) ([]meeting.Meeting, error) {
	if parentID == "" {
		return nil, nil
	}
	children, err := collectMeetings(r.txn, indexParent, parentID, func(m *meeting.Meeting) bool {
		return includeExcluded || !m.Excluded
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].End.Equal(children[j].End) {
			return children[i].ID < children[j].ID
		}
		return children[i].End.Before(children[j].End)
	})
	return children, nil
}

func (r meetingRepository) Save(ctx context.Context, m meeting.Meeting) error {
	if m.ID == "" {
		return fmt.Errorf("%w: meeting id is required", persistence.ErrConstraintViolation)
	}
	if err := r.ensureUniqueDialIn(m); err != nil {
		return err
	}
	stored := m.Clone()
	return r.txn.Insert(tableMeeting, &stored)
}

func (r meetingRepository) SaveAll(ctx context.Context, ms []meeting.Meeting) error {
	for _, m := range ms {
		if err := r.Save(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r meetingRepository) Delete(_ context.Context, id string) error {
	raw, err := r.txn.First(tableMeeting, indexID, id)
	if err != nil {
		return err
	}
	if raw == nil {
		return persistence.ErrNotFound
	}
	return deleteMeetingCascade(r.txn, raw.(*meeting.Meeting))
}

func (r meetingRepository) DeleteAll(_ context.Context, ids []string) error {
	for _, id := range ids {
		raw, err := r.txn.First(tableMeeting, indexID, id)
		if err != nil {
			return err
		}
		if raw == nil {
			continue
		}
		if err := deleteMeetingCascade(r.txn, raw.(*meeting.Meeting)); err != nil {
			return err
		}
	}
	return nil
}

func (r meetingRepository) ExistsByDialInCode(_ context.Context, code string) (bool, error) {
	if code == "" {
		return false, nil
	}
	it, err := r.txn.Get(tableMeeting, indexDialIn, code)
	if err != nil {
		return false, err
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		if raw.(*meeting.Meeting).ParentID == "" {
			return true, nil
		}
	}
	return false, nil
}

func (r meetingRepository) FindStaticRooms(_ context.Context, q persistence.StaticRoomQuery) ([]meeting.Meeting, error) {
	rooms, err := collectMeetings(r.txn, indexStatic, true, func(m *meeting.Meeting) bool {
		return q.Matches(*m)
	})
	if err != nil {
		return nil, err
	}
	return limitByID(rooms, q.Limit), nil
}

func (r meetingRepository) FindEndedBefore(_ context.Context, threshold time.Time, limit int) ([]meeting.Meeting, error) {
	rooms, err := collectMeetings(r.txn, indexStatic, false, func(m *meeting.Meeting) bool {
		return m.ParentID == "" && m.EffectiveEnd().Before(threshold)
	})
	if err != nil {
		return nil, err
	}
	return limitByID(rooms, limit), nil
}

func (r meetingRepository) ensureUniqueDialIn(m meeting.Meeting) error {
	if m.ParentID != "" || m.DialInCode == "" {
		return nil
	}
	it, err := r.txn.Get(tableMeeting, indexDialIn, m.DialInCode)
	if err != nil {
		return err
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		other := raw.(*meeting.Meeting)
		if other.ParentID == "" && other.ID != m.ID {
			return persistence.ErrDuplicateDialInCode
		}
	}
	return nil
}

func collectMeetings(txn *memdb.Txn, index string, arg any, keep func(*meeting.Meeting) bool) ([]meeting.Meeting, error) {
	it, err := txn.Get(tableMeeting, index, arg)
	if err != nil {
		return nil, err
	}
	out := make([]meeting.Meeting, 0)
	for raw := it.Next(); raw != nil; raw = it.Next() {
		m := raw.(*meeting.Meeting)
		if keep(m) {
			out = append(out, m.Clone())
		}
	}
	return out, nil
}

func deleteMeetingCascade(txn *memdb.Txn, m *meeting.Meeting) error {
	if m.ParentID == "" {
		children, err := collectMeetings(txn, indexParent, m.ID, func(*meeting.Meeting) bool { return true })
		if err != nil {
			return err
		}
		for i := range children {
			if err := deleteMeetingCascade(txn, &children[i]); err != nil {
				return err
			}
		}
	}
	if _, err := txn.DeleteAll(tableParticipant, indexMeeting, m.ID); err != nil {
		return err
	}
	if _, err := txn.DeleteAll(tableNotification, indexMeeting, m.ID); err != nil {
		return err
	}
	return txn.Delete(tableMeeting, m)
}

func limitByID(rooms []meeting.Meeting, limit int) []meeting.Meeting {
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	if limit > 0 && len(rooms) > limit {
		rooms = rooms[:limit]
	}
	return rooms
}
